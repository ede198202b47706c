// Package audit implements the Audit Log (§4.I): a durable, append-only,
// never-on-the-critical-path record of every side-effecting action the
// orchestrator takes.
package audit

import "time"

// Status is an audit entry's lifecycle state.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Entry is one audit record: an action taken (or about to be taken), its
// eventual outcome, and whether it can be compensated.
type Entry struct {
	ID                 string         `json:"id"`
	UserID             string         `json:"user_id"`
	ActionType         string         `json:"action_type"`
	ActionName         string         `json:"action_name"`
	InputParams        map[string]any `json:"input_params"`
	Compensable        bool           `json:"compensable"`
	CompensationAction string         `json:"compensation_action,omitempty"`
	Status             Status         `json:"status"`
	Result             any            `json:"result,omitempty"`
	ErrorMessage       string         `json:"error_message,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	CompletedAt        time.Time      `json:"completed_at,omitempty"`
}

// Config configures a Logger.
type Config struct {
	Enabled       bool
	BufferSize    int
	FlushInterval time.Duration
	SampleRate    float64 // 0.0-1.0; 1.0 logs every entry
}

// DefaultConfig returns a sensible default audit configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		BufferSize:    1000,
		FlushInterval: 5 * time.Second,
		SampleRate:    1.0,
	}
}
