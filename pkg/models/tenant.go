package models

// ScheduleBackendKind identifies the concrete schedule backend integration.
type ScheduleBackendKind string

const (
	ScheduleBackendGeneric        ScheduleBackendKind = "generic"
	ScheduleBackendGoogleCalendar ScheduleBackendKind = "google_calendar"
	ScheduleBackendCalendly       ScheduleBackendKind = "calendly"
	ScheduleBackendWebhook        ScheduleBackendKind = "webhook"
)

// ScheduleBackend describes how to reach a tenant's appointment backend.
type ScheduleBackend struct {
	URL  string              `json:"url" yaml:"url"`
	Kind ScheduleBackendKind `json:"kind" yaml:"kind"`
}

// TreatmentDuration describes how long a service takes to schedule and the
// booking metadata the schedule backend needs to reserve it.
type TreatmentDuration struct {
	Minutes  int     `json:"minutes" yaml:"minutes"`
	Sessions int     `json:"sessions" yaml:"sessions"`
	Deposit  float64 `json:"deposit" yaml:"deposit"`
	AgendaID string  `json:"agenda_id" yaml:"agenda_id"`
}

// KeywordSets are the tenant-specific keyword families used for classification
// and secondary-intent detection.
type KeywordSets struct {
	Emergency []string `json:"emergency" yaml:"emergency"`
	Sales     []string `json:"sales" yaml:"sales"`
	Schedule  []string `json:"schedule" yaml:"schedule"`
	Support   []string `json:"support" yaml:"support"`
}

// ModelParams configures the LLM call shape for a tenant.
type ModelParams struct {
	ModelName   string  `json:"model_name" yaml:"model_name"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
}

// TenantConfig is the read-only snapshot a request resolves a company_id into.
type TenantConfig struct {
	CompanyID             string                       `json:"company_id" yaml:"company_id"`
	DisplayName           string                       `json:"display_name" yaml:"display_name"`
	Services              []string                     `json:"services" yaml:"services"`
	RedisPrefix           string                       `json:"redis_prefix" yaml:"redis_prefix"`
	VectorIndexName       string                       `json:"vector_index_name" yaml:"vector_index_name"`
	ScheduleBackend       ScheduleBackend              `json:"schedule_backend" yaml:"schedule_backend"`
	TreatmentDurations    map[string]TreatmentDuration `json:"treatment_durations" yaml:"treatment_durations"`
	Keywords              KeywordSets                  `json:"keywords" yaml:"keywords"`
	RequiredBookingFields []string                     `json:"required_booking_fields" yaml:"required_booking_fields"`
	ModelParams           ModelParams                  `json:"model_params" yaml:"model_params"`
	MaxContextMessages    int                          `json:"max_context_messages" yaml:"max_context_messages"`
	Language              string                       `json:"language" yaml:"language"`

	// BotActiveStatuses lists the conversation statuses (Chatwoot-shaped) for
	// which the bot is allowed to reply. Defaults to {"open"}.
	BotActiveStatuses []string `json:"bot_active_statuses" yaml:"bot_active_statuses"`
}
