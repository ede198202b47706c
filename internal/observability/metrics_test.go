package observability

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetricsRegistersAllCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.WebhookReceived.WithLabelValues("message", "processed").Inc()
	m.GraphTransitions.WithLabelValues("collect_info").Inc()
	m.AgentInvocations.WithLabelValues("scheduling", "success").Inc()
	m.AgentRetries.WithLabelValues("scheduling").Inc()
	m.ToolExecutions.WithLabelValues("book_appointment", "success").Inc()
	m.SagaCompensations.WithLabelValues("success").Inc()
	m.WebhookDuration.WithLabelValues("message").Observe(0.05)
	m.GraphTransitionDuration.WithLabelValues("acme").Observe(3)
	m.AgentInvocationDuration.WithLabelValues("scheduling").Observe(1.2)
	m.ToolExecutionDuration.WithLabelValues("book_appointment").Observe(0.3)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) != 10 {
		t.Fatalf("expected 10 registered metric families, got %d", len(families))
	}
}

func TestNewMetricsCalledTwiceWithDistinctRegistriesDoesNotPanic(t *testing.T) {
	NewMetrics(prometheus.NewRegistry())
	NewMetrics(prometheus.NewRegistry())
}

func TestWebhookReceivedLabelsEventAndOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.WebhookReceived.WithLabelValues("message", "processed").Inc()
	m.WebhookReceived.WithLabelValues("message", "processed").Inc()
	m.WebhookReceived.WithLabelValues("message", "duplicate").Inc()
	m.WebhookReceived.WithLabelValues("status", "ignored").Inc()

	expected := `
		# HELP orchestrator_webhook_received_total Inbound webhook deliveries by event type and outcome
		# TYPE orchestrator_webhook_received_total counter
		orchestrator_webhook_received_total{event="message",outcome="duplicate"} 1
		orchestrator_webhook_received_total{event="message",outcome="processed"} 2
		orchestrator_webhook_received_total{event="status",outcome="ignored"} 1
	`
	if err := testutil.CollectAndCompare(m.WebhookReceived, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metric value: %v", err)
	}
}

func TestGraphTransitionsCountsPerNode(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.GraphTransitions.WithLabelValues("collect_info").Inc()
	m.GraphTransitions.WithLabelValues("collect_info").Inc()
	m.GraphTransitions.WithLabelValues("route_to_agent").Inc()

	if count := testutil.CollectAndCount(m.GraphTransitions); count != 2 {
		t.Errorf("expected 2 label combinations, got %d", count)
	}
}

func TestAgentInvocationsSeparatesSuccessAndFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.AgentInvocations.WithLabelValues("scheduling", "success").Inc()
	m.AgentInvocations.WithLabelValues("scheduling", "failed").Inc()
	m.AgentRetries.WithLabelValues("scheduling").Inc()
	m.AgentRetries.WithLabelValues("scheduling").Inc()

	if count := testutil.CollectAndCount(m.AgentInvocations); count != 2 {
		t.Errorf("expected separate success and failed series, got %d", count)
	}

	expected := `
		# HELP orchestrator_agent_retries_total Agent adapter retry attempts by agent name
		# TYPE orchestrator_agent_retries_total counter
		orchestrator_agent_retries_total{agent="scheduling"} 2
	`
	if err := testutil.CollectAndCompare(m.AgentRetries, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metric value: %v", err)
	}
}

func TestToolExecutionDurationObservesAcrossBuckets(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	for _, d := range []float64{0.01, 0.1, 1, 10} {
		m.ToolExecutionDuration.WithLabelValues("book_appointment").Observe(d)
	}

	if count := testutil.CollectAndCount(m.ToolExecutionDuration); count != 1 {
		t.Errorf("expected a single label combination, got %d", count)
	}
}

func TestSagaCompensationsCountsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.SagaCompensations.WithLabelValues("success").Inc()
	m.SagaCompensations.WithLabelValues("success").Inc()
	m.SagaCompensations.WithLabelValues("failed").Inc()

	expected := `
		# HELP orchestrator_saga_compensations_total Saga compensation attempts by outcome
		# TYPE orchestrator_saga_compensations_total counter
		orchestrator_saga_compensations_total{outcome="failed"} 1
		orchestrator_saga_compensations_total{outcome="success"} 2
	`
	if err := testutil.CollectAndCompare(m.SagaCompensations, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metric value: %v", err)
	}
}
