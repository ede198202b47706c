package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the process-wide set of Prometheus collectors for the
// orchestrator service: webhook ingress, graph node transitions, agent
// adapter invocations, tool executions, and saga compensations.
type Metrics struct {
	// WebhookReceived counts inbound webhook deliveries by event type and
	// outcome. The webhook handler derives the outcome from the HTTP status
	// alone (processed|rate_limited|rejected|error), so ignored, duplicate
	// and bot-inactive deliveries, which answer 200, count as processed.
	WebhookReceived *prometheus.CounterVec

	// WebhookDuration measures end-to-end webhook handling latency.
	WebhookDuration *prometheus.HistogramVec

	// GraphTransitions counts orchestration-graph node transitions by node
	// name; it carries no company label.
	GraphTransitions *prometheus.CounterVec

	// GraphTransitionDuration measures per-request total transition count
	// distribution, a proxy for how close requests run to the recursion cap.
	GraphTransitionDuration *prometheus.HistogramVec

	// AgentInvocations counts adapter.Invoke calls by agent name and outcome
	// (success|failed).
	AgentInvocations *prometheus.CounterVec

	// AgentInvocationDuration measures adapter.Invoke latency by agent name.
	AgentInvocationDuration *prometheus.HistogramVec

	// AgentRetries counts retry attempts issued by the agent adapter.
	AgentRetries *prometheus.CounterVec

	// ToolExecutions counts tool executor calls by tool name and outcome.
	ToolExecutions *prometheus.CounterVec

	// ToolExecutionDuration measures tool executor call latency.
	ToolExecutionDuration *prometheus.HistogramVec

	// SagaCompensations counts compensation attempts by outcome
	// (success|failed).
	SagaCompensations *prometheus.CounterVec
}

// NewMetrics registers every collector with reg and returns the handle
// cmd/orchestrator threads through the webhook handler, orchestrator,
// adapter, tool executor, and saga coordinator. Pass prometheus.DefaultRegisterer
// at process startup; tests should pass a fresh prometheus.NewRegistry()
// so repeated calls don't collide on the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		WebhookReceived: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orchestrator_webhook_received_total",
				Help: "Inbound webhook deliveries by event type and outcome",
			},
			[]string{"event", "outcome"},
		),
		WebhookDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orchestrator_webhook_duration_seconds",
				Help:    "Webhook request handling latency",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"event"},
		),
		GraphTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orchestrator_graph_transitions_total",
				Help: "Orchestration graph node transitions by node name",
			},
			[]string{"node"},
		),
		GraphTransitionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orchestrator_graph_transitions_per_request",
				Help:    "Number of node transitions taken per request",
				Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34, 50},
			},
			[]string{"company_id"},
		),
		AgentInvocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orchestrator_agent_invocations_total",
				Help: "Agent adapter invocations by agent name and outcome",
			},
			[]string{"agent", "outcome"},
		),
		AgentInvocationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orchestrator_agent_invocation_duration_seconds",
				Help:    "Agent adapter invocation latency",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"agent"},
		),
		AgentRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orchestrator_agent_retries_total",
				Help: "Agent adapter retry attempts by agent name",
			},
			[]string{"agent"},
		),
		ToolExecutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orchestrator_tool_executions_total",
				Help: "Tool executor calls by tool name and outcome",
			},
			[]string{"tool", "outcome"},
		),
		ToolExecutionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orchestrator_tool_execution_duration_seconds",
				Help:    "Tool executor call latency",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"tool"},
		),
		SagaCompensations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orchestrator_saga_compensations_total",
				Help: "Saga compensation attempts by outcome",
			},
			[]string{"outcome"},
		),
	}
}
