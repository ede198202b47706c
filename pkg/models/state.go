package models

import "time"

// Intent is one of the four canonical classification labels. Any
// out-of-set value the router produces is treated as IntentSupport.
type Intent string

const (
	IntentSales     Intent = "SALES"
	IntentSupport   Intent = "SUPPORT"
	IntentEmergency Intent = "EMERGENCY"
	IntentSchedule  Intent = "SCHEDULE"
)

// Validation is a non-blocking note recorded by a graph node.
type Validation struct {
	Node    string `json:"node"`
	Message string `json:"message"`
}

// Execution records one node's pass through the graph for bookkeeping.
type Execution struct {
	Node       string        `json:"node"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
}

// OrchestratorState is the request-scoped, mutable record threaded through
// every node of the Orchestration Graph.
type OrchestratorState struct {
	// Immutable inputs.
	Question      string    `json:"question"`
	UserID        string    `json:"user_id"`
	CompanyID     string    `json:"company_id"`
	ConversationID string   `json:"conversation_id,omitempty"`
	ChatHistory   []Message `json:"chat_history"`
	Context       string    `json:"context"`

	// Classification.
	Intent             Intent   `json:"intent"`
	Confidence         float64  `json:"confidence"`
	IntentKeywords     []string `json:"intent_keywords"`
	SecondaryIntent    Intent   `json:"secondary_intent,omitempty"`
	SecondaryConfidence float64 `json:"secondary_confidence"`

	// Execution.
	CurrentAgent  AgentKey `json:"current_agent"`
	AgentResponse string   `json:"agent_response"`

	// Cross-agent coordination.
	SharedContext      map[string]any `json:"shared_context"`
	HandoffRequested   bool           `json:"handoff_requested"`
	HandoffFrom        AgentKey       `json:"handoff_from,omitempty"`
	HandoffTo          AgentKey       `json:"handoff_to,omitempty"`
	HandoffReason      string         `json:"handoff_reason,omitempty"`
	HandoffCompleted   bool           `json:"handoff_completed"`
	handoffContextText string

	// Control.
	Retries        int             `json:"retries"`
	ShouldRetry    bool            `json:"should_retry"`
	ShouldEscalate bool            `json:"should_escalate"`
	ToolsToExecute []string        `json:"tools_to_execute"`
	ToolsExecuted  []string        `json:"tools_executed"`
	ToolResults    map[string]any  `json:"tool_results"`
	ToolErrors     map[string]string `json:"tool_errors"`

	// Bookkeeping.
	Validations []Validation `json:"validations"`
	Executions  []Execution  `json:"executions"`
	Errors      []string     `json:"errors"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt time.Time    `json:"completed_at"`

	// Transitions counts node hops for the recursion-limit safety net.
	Transitions int `json:"-"`
}

// NewOrchestratorState seeds a fresh state for one inbound request.
func NewOrchestratorState(companyID, userID, conversationID, question, context string, history []Message) *OrchestratorState {
	return &OrchestratorState{
		Question:       question,
		UserID:         userID,
		CompanyID:      companyID,
		ConversationID: conversationID,
		ChatHistory:    history,
		Context:        context,
		SharedContext:  make(map[string]any),
		ToolResults:    make(map[string]any),
		ToolErrors:     make(map[string]string),
		StartedAt:      time.Now(),
	}
}

// RecordValidation appends a non-blocking validation note.
func (s *OrchestratorState) RecordValidation(node, message string) {
	s.Validations = append(s.Validations, Validation{Node: node, Message: message})
}

// RecordExecution appends a node execution record.
func (s *OrchestratorState) RecordExecution(node string, started time.Time, err error) {
	e := Execution{Node: node, StartedAt: started, Duration: time.Since(started)}
	if err != nil {
		e.Error = err.Error()
	}
	s.Executions = append(s.Executions, e)
}

// SetHandoffContext snapshots the outgoing agent's reply so the agent it
// hands off to can see what was already said.
func (s *OrchestratorState) SetHandoffContext(text string) {
	s.handoffContextText = text
}

// HandoffContext returns whatever the last handoff snapshotted, if any.
func (s *OrchestratorState) HandoffContext() string {
	return s.handoffContextText
}
