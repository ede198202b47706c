package observability

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func TestNewTracerNoEndpointIsNoOp(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{ServiceName: "orchestrator-test"})
	defer func() { _ = shutdown(context.Background()) }()

	if tracer == nil || tracer.tracer == nil {
		t.Fatal("expected a usable no-op tracer")
	}
	if tracer.provider != nil {
		t.Error("expected no SDK provider when no endpoint is configured")
	}
}

func TestNewTracerDefaultsServiceName(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{})
	defer func() { _ = shutdown(context.Background()) }()

	if tracer.config.ServiceName != "orchestrator" {
		t.Errorf("expected default service name orchestrator, got %q", tracer.config.ServiceName)
	}
}

func TestTracerStartReturnsUsableSpan(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{})
	defer func() { _ = shutdown(context.Background()) }()

	ctx, span := tracer.Start(context.Background(), "test-operation")
	defer span.End()

	if span == nil {
		t.Fatal("Start() returned nil span")
	}
	if trace.SpanFromContext(ctx) == nil {
		t.Error("expected span embedded in returned context")
	}
}

func TestTraceGraphTransitionReturnsSpan(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{})
	defer func() { _ = shutdown(context.Background()) }()

	_, span := tracer.TraceGraphTransition(context.Background(), "collect_info", "acme")
	defer span.End()

	if span == nil {
		t.Fatal("expected a span")
	}
}

func TestTraceToolExecutionAndAgentInvocation(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{})
	defer func() { _ = shutdown(context.Background()) }()

	_, toolSpan := tracer.TraceToolExecution(context.Background(), "book_appointment")
	defer toolSpan.End()

	_, agentSpan := tracer.TraceAgentInvocation(context.Background(), "scheduling")
	defer agentSpan.End()

	if toolSpan == nil || agentSpan == nil {
		t.Fatal("expected both spans to be created")
	}
}

func TestRecordErrorOnSpanRequiresNonNilError(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{})
	defer func() { _ = shutdown(context.Background()) }()

	_, span := tracer.Start(context.Background(), "op")
	defer span.End()

	// Must not panic, and nil errors are ignored.
	tracer.RecordError(span, nil)
	tracer.RecordError(span, errors.New("boom"))
}

func TestWithSpanPropagatesFunctionError(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{})
	defer func() { _ = shutdown(context.Background()) }()

	wantErr := errors.New("tool failed")
	err := WithSpan(context.Background(), tracer, "tool.book_appointment", func(ctx context.Context, span trace.Span) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected WithSpan to propagate the function's error, got %v", err)
	}
}

func TestWithSpanReturnsNilOnSuccess(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{})
	defer func() { _ = shutdown(context.Background()) }()

	err := WithSpan(context.Background(), tracer, "tool.book_appointment", func(ctx context.Context, span trace.Span) error {
		return nil
	})
	if err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}

func TestGetTraceIDAndSpanIDEmptyWithoutActiveSpan(t *testing.T) {
	ctx := context.Background()
	if id := GetTraceID(ctx); id != "" {
		t.Errorf("expected empty trace id, got %q", id)
	}
	if id := GetSpanID(ctx); id != "" {
		t.Errorf("expected empty span id, got %q", id)
	}
}

func TestMapCarrierGetSetKeys(t *testing.T) {
	carrier := make(MapCarrier)
	carrier.Set("traceparent", "00-abc-def-01")

	if got := carrier.Get("traceparent"); got != "00-abc-def-01" {
		t.Errorf("expected round-tripped value, got %q", got)
	}
	keys := carrier.Keys()
	if len(keys) != 1 || keys[0] != "traceparent" {
		t.Errorf("expected single key 'traceparent', got %v", keys)
	}
}

func TestAttributesFromKeyvalsSkipsNonStringKeys(t *testing.T) {
	attrs := attributesFromKeyvals([]any{"name", "book_appointment", 42, "ignored", "count", 3})
	if len(attrs) != 2 {
		t.Fatalf("expected 2 valid attributes, got %d", len(attrs))
	}
}
