package models

import "time"

// PricingInfo is the sales agent's record of a quoted service price.
type PricingInfo struct {
	ServiceName    string         `json:"service_name"`
	Price          string         `json:"price"`
	Currency       string         `json:"currency"`
	PaymentMethods []string       `json:"payment_methods,omitempty"`
	Promotions     string         `json:"promotions,omitempty"`
	SourceAgent    AgentKey       `json:"source_agent"`
	Timestamp      time.Time      `json:"timestamp"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// ScheduleInfo tracks the in-progress or confirmed booking state for a user.
type ScheduleInfo struct {
	Treatment     string         `json:"treatment"`
	Date          string         `json:"date,omitempty"`
	Time          string         `json:"time,omitempty"`
	PatientName   string         `json:"patient_name,omitempty"`
	PatientPhone  string         `json:"patient_phone,omitempty"`
	Status        ScheduleStatus `json:"status"`
	BookingID     string         `json:"booking_id,omitempty"`
	SourceAgent   AgentKey       `json:"source_agent"`
	Timestamp     time.Time      `json:"timestamp"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// ScheduleStatus is the lifecycle state of a ScheduleInfo record.
type ScheduleStatus string

const (
	ScheduleStatusPending   ScheduleStatus = "pending"
	ScheduleStatusConfirmed ScheduleStatus = "confirmed"
	ScheduleStatusCancelled ScheduleStatus = "cancelled"
)

// UserInfo accumulates facts learned about a user across the conversation.
type UserInfo struct {
	UserID        string         `json:"user_id"`
	Name          string         `json:"name,omitempty"`
	Phone         string         `json:"phone,omitempty"`
	Email         string         `json:"email,omitempty"`
	Preferences   map[string]any `json:"preferences,omitempty"`
	IntentHistory []string       `json:"intent_history,omitempty"`
	LastUpdated   time.Time      `json:"last_updated"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// ServiceInfo records that a service/treatment was mentioned in conversation.
type ServiceInfo struct {
	ServiceName     string    `json:"service_name"`
	Category        string    `json:"category,omitempty"`
	Description     string    `json:"description,omitempty"`
	MentionedByAgent AgentKey `json:"mentioned_by_agent"`
	Timestamp       time.Time `json:"timestamp"`
}

// SupportInfo records a general support question and its resolution state.
type SupportInfo struct {
	QuestionType string    `json:"question_type"`
	Question     string    `json:"question"`
	Answer       string    `json:"answer,omitempty"`
	Resolved     bool      `json:"resolved"`
	SourceAgent  AgentKey  `json:"source_agent"`
	Timestamp    time.Time `json:"timestamp"`
}

// EmergencyInfo records a detected medical emergency and the action taken.
type EmergencyInfo struct {
	Symptoms      []string  `json:"symptoms,omitempty"`
	UrgencyLevel  string    `json:"urgency_level"`
	ActionTaken   string    `json:"action_taken,omitempty"`
	DetectedBy    AgentKey  `json:"detected_by_agent"`
	Timestamp     time.Time `json:"timestamp"`
}

// HandoffInfo records a single cross-agent handoff.
type HandoffInfo struct {
	FromAgent        AgentKey       `json:"from_agent"`
	ToAgent          AgentKey       `json:"to_agent"`
	Reason           string         `json:"reason"`
	Context          map[string]any `json:"context,omitempty"`
	ReturnToOriginal bool           `json:"return_to_original"`
	Timestamp        time.Time      `json:"timestamp"`
}
