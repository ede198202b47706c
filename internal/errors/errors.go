// Package errors defines the tagged error taxonomy used across the
// orchestrator: a closed set of sentinel kinds plus a structured
// OrchestratorError carrying the request context a node failed under.
package errors

import (
	"errors"
	"fmt"
)

// Kind enumerates the orchestrator's closed error taxonomy.
type Kind string

const (
	KindInputInvalid             Kind = "input_invalid"
	KindClassificationParseFailure Kind = "classification_parse_failure"
	KindAgentExecutionFailure    Kind = "agent_execution_failure"
	KindOutputInvalid            Kind = "output_invalid"
	KindToolFailure              Kind = "tool_failure"
	KindExternalTimeout          Kind = "external_timeout"
	KindStorageUnavailable       Kind = "storage_unavailable"
)

// Sentinel errors for cases callers want to match with errors.Is.
var (
	ErrTenantUnknown      = errors.New("unknown tenant")
	ErrTenantMismatch     = errors.New("company_id does not match tenant")
	ErrRecursionExceeded  = errors.New("orchestration graph exceeded recursion limit")
	ErrDuplicateMessage   = errors.New("duplicate webhook message")
	ErrBotInactive        = errors.New("bot is inactive for this conversation")
)

// OrchestratorError is the structured error type raised by graph nodes,
// adapters, and tool executions. It carries enough request context to log
// and classify the failure without propagating out of the graph.
type OrchestratorError struct {
	Kind      Kind
	Node      string
	CompanyID string
	UserID    string
	Cause     error
}

// Error implements the error interface.
func (e *OrchestratorError) Error() string {
	msg := fmt.Sprintf("[%s] node=%s company=%s user=%s", e.Kind, e.Node, e.CompanyID, e.UserID)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e *OrchestratorError) Unwrap() error {
	return e.Cause
}

// New builds an OrchestratorError with the given kind and context.
func New(kind Kind, node, companyID, userID string, cause error) *OrchestratorError {
	return &OrchestratorError{Kind: kind, Node: node, CompanyID: companyID, UserID: userID, Cause: cause}
}

// Is allows errors.Is(err, &OrchestratorError{Kind: ...}) style matching by
// kind alone; the target's other fields, Cause included, are ignored.
func (e *OrchestratorError) Is(target error) bool {
	t, ok := target.(*OrchestratorError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}
