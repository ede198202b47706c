// Package adapter implements the Agent Adapter (spec §4.E): a uniform
// wrapper around any handler implementing Invoke, adding timing, retry
// with exponential backoff, input/output validation, and lock-free stats.
package adapter

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/clinicflow/orchestrator/internal/observability"
	"github.com/clinicflow/orchestrator/pkg/models"
	"go.opentelemetry.io/otel/trace"
)

// AgentInputs is the closed record every handler accepts (§9: "Dynamic
// duck-typed inputs to handlers" re-architected as a fixed struct).
type AgentInputs struct {
	Question    string
	ChatHistory []models.Message
	Context     string
	UserID      string
	CompanyID   string
}

// Handler is the capability every specialist and the router implement.
type Handler interface {
	Invoke(ctx context.Context, in AgentInputs) (string, error)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, in AgentInputs) (string, error)

// Invoke calls f.
func (f HandlerFunc) Invoke(ctx context.Context, in AgentInputs) (string, error) {
	return f(ctx, in)
}

// InputValidator checks inputs before invocation; a non-nil error fails the
// call before the handler runs.
type InputValidator func(AgentInputs) error

// OutputValidator checks the handler's output after a successful call.
// Unlike InputValidator, a non-nil error here is a non-blocking warning:
// it is recorded but does not fail the Result.
type OutputValidator func(output string) error

// ExecutionState records the timing and outcome of one Invoke call.
type ExecutionState struct {
	StartedAt   time.Time
	CompletedAt time.Time
	DurationMs  int64
	Retries     int
	Status      string // "success" | "failed"
}

// Result is the outcome of Adapter.Invoke.
type Result struct {
	Success        bool
	Output         string
	Error          error
	ExecutionState ExecutionState
	Validation     []string
	Retries        int
}

// AdapterStats is the per-agent statistics snapshot surfaced by Stats(),
// grounded on the original's get_stats/reset_stats (SPEC_FULL §C.1).
type AdapterStats struct {
	AgentName       string
	TotalExecutions int64
	TotalErrors     int64
	TotalDurationMs int64
	ErrorRate       float64
}

// Adapter wraps a Handler with retry, validation, and statistics.
type Adapter struct {
	handler        Handler
	agentName      string
	timeout        time.Duration
	maxRetries     int
	validateInput  InputValidator
	validateOutput OutputValidator
	metrics        *observability.Metrics
	tracer         *observability.Tracer

	totalExecutions atomic.Int64
	totalErrors     atomic.Int64
	totalDurationMs atomic.Int64
}

// New builds an Adapter. validateInput and validateOutput may be nil.
// metrics/tracer may be nil, in which case Invoke runs uninstrumented.
func New(handler Handler, agentName string, timeout time.Duration, maxRetries int, validateInput InputValidator, validateOutput OutputValidator, metrics *observability.Metrics, tracer *observability.Tracer) *Adapter {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Adapter{
		handler:        handler,
		agentName:      agentName,
		timeout:        timeout,
		maxRetries:     maxRetries,
		validateInput:  validateInput,
		validateOutput: validateOutput,
		metrics:        metrics,
		tracer:         tracer,
	}
}

// Invoke runs the wrapped handler. On failure it sleeps 2^attempt seconds
// (attempt 1-indexed) and retries up to maxRetries times, per §4.E.
func (a *Adapter) Invoke(ctx context.Context, in AgentInputs) Result {
	started := time.Now()
	state := ExecutionState{StartedAt: started}

	if a.tracer != nil {
		var span trace.Span
		ctx, span = a.tracer.TraceAgentInvocation(ctx, a.agentName)
		defer span.End()
	}

	if a.validateInput != nil {
		if err := a.validateInput(in); err != nil {
			a.record(started, true)
			state.CompletedAt = time.Now()
			state.DurationMs = time.Since(started).Milliseconds()
			state.Status = "failed"
			return Result{Success: false, Error: err, ExecutionState: state}
		}
	}

	var (
		output   string
		lastErr  error
		warnings []string
	)

attempts:
	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		if attempt > 0 {
			state.Retries = attempt
			if a.metrics != nil {
				a.metrics.AgentRetries.WithLabelValues(a.agentName).Inc()
			}
			delay := time.Duration(math.Pow(2, float64(attempt))) * time.Second
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
				break attempts
			case <-time.After(delay):
			}
		}

		callCtx := ctx
		var cancel context.CancelFunc
		if a.timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, a.timeout)
		}
		output, lastErr = a.handler.Invoke(callCtx, in)
		if cancel != nil {
			cancel()
		}
		if lastErr == nil {
			break
		}
	}

	a.record(started, lastErr != nil)
	state.CompletedAt = time.Now()
	state.DurationMs = time.Since(started).Milliseconds()
	if a.metrics != nil {
		a.metrics.AgentInvocationDuration.WithLabelValues(a.agentName).Observe(time.Since(started).Seconds())
	}

	if lastErr != nil {
		state.Status = "failed"
		if a.metrics != nil {
			a.metrics.AgentInvocations.WithLabelValues(a.agentName, "failed").Inc()
		}
		return Result{Success: false, Error: fmt.Errorf("adapter %s: %w", a.agentName, lastErr), ExecutionState: state, Retries: state.Retries}
	}
	if a.metrics != nil {
		a.metrics.AgentInvocations.WithLabelValues(a.agentName, "success").Inc()
	}

	if a.validateOutput != nil {
		if err := a.validateOutput(output); err != nil {
			warnings = append(warnings, err.Error())
		}
	}

	state.Status = "success"
	return Result{
		Success:        true,
		Output:         output,
		ExecutionState: state,
		Validation:     warnings,
		Retries:        state.Retries,
	}
}

func (a *Adapter) record(started time.Time, failed bool) {
	a.totalExecutions.Add(1)
	a.totalDurationMs.Add(time.Since(started).Milliseconds())
	if failed {
		a.totalErrors.Add(1)
	}
}

// Stats returns a snapshot of this adapter's lock-free counters with a
// derived error rate.
func (a *Adapter) Stats() AdapterStats {
	total := a.totalExecutions.Load()
	errs := a.totalErrors.Load()
	var rate float64
	if total > 0 {
		rate = float64(errs) / float64(total)
	}
	return AdapterStats{
		AgentName:       a.agentName,
		TotalExecutions: total,
		TotalErrors:     errs,
		TotalDurationMs: a.totalDurationMs.Load(),
		ErrorRate:       rate,
	}
}

// ResetStats zeroes the adapter's counters; used by tests and ops tooling.
func (a *Adapter) ResetStats() {
	a.totalExecutions.Store(0)
	a.totalErrors.Store(0)
	a.totalDurationMs.Store(0)
}
