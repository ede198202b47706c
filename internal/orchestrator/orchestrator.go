// Package orchestrator implements the Orchestration Graph (§4.K): a
// directed graph of nodes that classifies an inbound question, dispatches
// it to a specialist agent, runs side-effecting tools through the
// Compensation Orchestrator, and decides whether to hand off to another
// specialist, retry, or reply.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/clinicflow/orchestrator/internal/adapter"
	"github.com/clinicflow/orchestrator/internal/agents"
	"github.com/clinicflow/orchestrator/internal/observability"
	"github.com/clinicflow/orchestrator/internal/saga"
	"github.com/clinicflow/orchestrator/internal/sharedstate"
	"github.com/clinicflow/orchestrator/internal/tenant"
	"github.com/clinicflow/orchestrator/internal/tools"
	"github.com/clinicflow/orchestrator/pkg/models"
	"go.opentelemetry.io/otel/trace"
)

// maxTransitions is the recursion cap (§4.K): exceeding it fails the
// request with the generic error reply rather than looping forever.
const maxTransitions = 50

// genericErrorReply is returned whenever the graph cannot produce a real
// answer: invalid input or a blown recursion budget.
const genericErrorReply = "Sorry, I wasn't able to process that request. Please try again."

// node names. execute_<intent> in the spec is modeled as one generic node
// that dispatches on state.CurrentAgent, set by detect_secondary_intent,
// handle_agent_handoff, or handle_retry.
const (
	nodeValidateInput        = "validate_input"
	nodeClassifyIntent       = "classify_intent"
	nodeDetectSecondary      = "detect_secondary_intent"
	nodeExecuteAgent         = "execute_agent"
	nodeValidateOutput       = "validate_output"
	nodeCheckAvailability    = "check_availability"
	nodeExecuteBooking       = "execute_booking"
	nodeSendNotification     = "send_notification"
	nodeCreateTicket         = "create_ticket"
	nodeValidateCrossAgent   = "validate_cross_agent_info"
	nodeHandleAgentHandoff   = "handle_agent_handoff"
	nodeHandleRetry          = "handle_retry"
	nodeEnd                  = "END"
)

// Input is what a caller (webhook ingress or a test) hands the graph.
type Input struct {
	Question       string
	UserID         string
	CompanyID      string
	ConversationID string
	ChatHistory    []models.Message
	Context        string
}

// Reply is the graph's output: the text to send back, plus the full state
// for logging/inspection.
type Reply struct {
	Text  string
	State *models.OrchestratorState
}

// Orchestrator holds every dependency a graph node needs.
type Orchestrator struct {
	registry *tenant.Registry
	router   *agents.Router
	routerA  *adapter.Adapter
	agentsA  map[models.AgentKey]*adapter.Adapter
	tools    tools.Executor
	sagas    *saga.Orchestrator
	store    sharedstate.Store
	logger   *slog.Logger
	metrics  *observability.Metrics
	tracer   *observability.Tracer
}

// New builds an Orchestrator. agentsA must have an entry for each of
// IntentSales/IntentSupport/IntentEmergency/IntentSchedule. metrics/tracer
// may be nil, in which case the graph runs uninstrumented.
func New(
	registry *tenant.Registry,
	router *agents.Router,
	routerA *adapter.Adapter,
	agentsA map[models.AgentKey]*adapter.Adapter,
	toolExec tools.Executor,
	sagas *saga.Orchestrator,
	store sharedstate.Store,
	logger *slog.Logger,
	metrics *observability.Metrics,
	tracer *observability.Tracer,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		registry: registry,
		router:   router,
		routerA:  routerA,
		agentsA:  agentsA,
		tools:    toolExec,
		sagas:    sagas,
		store:    store,
		logger:   logger.With("component", "orchestrator"),
		metrics:  metrics,
		tracer:   tracer,
	}
}

// Handle runs in to completion through the graph and returns the reply.
func (o *Orchestrator) Handle(ctx context.Context, in Input) (*Reply, error) {
	state := models.NewOrchestratorState(in.CompanyID, in.UserID, in.ConversationID, in.Question, in.Context, in.ChatHistory)

	node := nodeValidateInput
	for node != nodeEnd {
		state.Transitions++
		if state.Transitions > maxTransitions {
			state.AgentResponse = genericErrorReply
			state.Errors = append(state.Errors, "orchestrator: recursion limit exceeded")
			o.logger.Warn("recursion limit exceeded", "company_id", in.CompanyID, "user_id", in.UserID)
			break
		}

		started := time.Now()
		nodeCtx := ctx
		var span trace.Span
		if o.tracer != nil {
			nodeCtx, span = o.tracer.TraceGraphTransition(ctx, node, in.CompanyID)
		}
		next, err := o.dispatch(nodeCtx, node, state)
		if span != nil {
			if err != nil {
				o.tracer.RecordError(span, err)
			}
			span.End()
		}
		state.RecordExecution(node, started, err)
		if o.metrics != nil {
			o.metrics.GraphTransitions.WithLabelValues(node).Inc()
		}
		if err != nil {
			state.Errors = append(state.Errors, err.Error())
			o.logger.Warn("node failed", "node", node, "error", err)
		}
		node = next
	}

	state.CompletedAt = time.Now()
	if o.metrics != nil {
		o.metrics.GraphTransitionDuration.WithLabelValues(in.CompanyID).Observe(float64(state.Transitions))
	}
	return &Reply{Text: state.AgentResponse, State: state}, nil
}

func (o *Orchestrator) dispatch(ctx context.Context, node string, state *models.OrchestratorState) (string, error) {
	switch node {
	case nodeValidateInput:
		return o.validateInput(state)
	case nodeClassifyIntent:
		return o.classifyIntent(ctx, state)
	case nodeDetectSecondary:
		return o.detectSecondaryIntent(state)
	case nodeExecuteAgent:
		return o.executeAgent(ctx, state)
	case nodeValidateOutput:
		return o.validateOutput(state)
	case nodeCheckAvailability:
		return o.checkAvailability(ctx, state)
	case nodeExecuteBooking:
		return o.executeBooking(ctx, state)
	case nodeSendNotification:
		return o.sendNotification(ctx, state)
	case nodeCreateTicket:
		return o.createTicket(ctx, state)
	case nodeValidateCrossAgent:
		return o.validateCrossAgentInfo(state)
	case nodeHandleAgentHandoff:
		return o.handleAgentHandoff(state)
	case nodeHandleRetry:
		return o.handleRetry(state)
	default:
		return nodeEnd, nil
	}
}
