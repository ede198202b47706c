// Package tools implements the Tool Executor (§4.H): a single entry point
// for every side-effecting action a graph node or saga step can take.
package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/clinicflow/orchestrator/internal/observability"
	"go.opentelemetry.io/otel/trace"
)

// Name identifies a recognized tool.
type Name string

const (
	GoogleCalendar Name = "google_calendar"
	SendEmail      Name = "send_email"
	CreateTicket   Name = "create_ticket"
	CloseTicket    Name = "close_ticket"
)

// Result is the outcome of one Execute call.
type Result struct {
	Success bool
	Data    map[string]any
	Error   string
}

// Executor is the uniform tool-execution contract consumed by the
// Orchestration Graph and the Compensation Orchestrator.
type Executor interface {
	Execute(ctx context.Context, tool Name, params map[string]any, userID, agentName, conversationID string) (Result, error)
}

// ToolExecutor is the concrete Executor. Each backend it wraps is an
// interface so tests substitute fakes without touching real HTTP/SMTP.
type ToolExecutor struct {
	schedule ScheduleClient
	email    EmailSender
	tickets  TicketSystem
	metrics  *observability.Metrics
	tracer   *observability.Tracer
}

// New builds a ToolExecutor. Any backend may be nil; calling a tool whose
// backend is nil returns a failed Result rather than panicking. metrics/
// tracer may be nil, in which case Execute runs uninstrumented.
func New(schedule ScheduleClient, email EmailSender, tickets TicketSystem, metrics *observability.Metrics, tracer *observability.Tracer) *ToolExecutor {
	return &ToolExecutor{schedule: schedule, email: email, tickets: tickets, metrics: metrics, tracer: tracer}
}

// Execute validates params against the tool's parameter schema, then
// dispatches to the matching backend. A validation failure or backend
// error both come back as a failed Result rather than a Go error, matching
// §4.H's `{success, data, error}` shape; the error return is reserved for
// programmer errors such as an unrecognized tool name.
func (t *ToolExecutor) Execute(ctx context.Context, tool Name, params map[string]any, userID, agentName, conversationID string) (Result, error) {
	started := time.Now()
	if t.tracer != nil {
		var span trace.Span
		ctx, span = t.tracer.TraceToolExecution(ctx, string(tool))
		defer span.End()
	}

	result, err := t.execute(ctx, tool, params)

	if t.metrics != nil {
		outcome := "success"
		if err != nil || !result.Success {
			outcome = "failed"
		}
		t.metrics.ToolExecutions.WithLabelValues(string(tool), outcome).Inc()
		t.metrics.ToolExecutionDuration.WithLabelValues(string(tool)).Observe(time.Since(started).Seconds())
	}
	return result, err
}

func (t *ToolExecutor) execute(ctx context.Context, tool Name, params map[string]any) (Result, error) {
	if _, ok := paramSchemas[tool]; !ok {
		return Result{}, fmt.Errorf("tools: unrecognized tool %q", tool)
	}
	if err := validateParams(tool, params); err != nil {
		return Result{Success: false, Error: err.Error()}, nil
	}

	switch tool {
	case GoogleCalendar:
		return t.executeCalendar(ctx, params)
	case SendEmail:
		return t.executeSendEmail(ctx, params)
	case CreateTicket:
		return t.executeCreateTicket(ctx, params)
	case CloseTicket:
		return t.executeCloseTicket(ctx, params)
	default:
		return Result{}, fmt.Errorf("tools: unrecognized tool %q", tool)
	}
}

func (t *ToolExecutor) executeCalendar(ctx context.Context, params map[string]any) (Result, error) {
	if t.schedule == nil {
		return Result{Success: false, Error: "schedule backend not configured"}, nil
	}
	action, _ := params["action"].(string)
	switch action {
	case "check_availability":
		date, _ := params["date"].(string)
		treatment, _ := params["treatment"].(string)
		slots, err := t.schedule.CheckAvailabilityRaw(ctx, date, treatment)
		if err != nil {
			return Result{Success: false, Error: err.Error()}, nil
		}
		return Result{Success: true, Data: map[string]any{"available_slots": slots}}, nil

	case "create_booking":
		treatment, _ := params["treatment"].(string)
		date, _ := params["date"].(string)
		timeStr, _ := params["time"].(string)
		patientName, _ := params["patient_name"].(string)
		patientPhone, _ := params["patient_phone"].(string)
		booking, err := t.schedule.CreateBooking(ctx, BookingRequest{
			Treatment:    treatment,
			Date:         date,
			Time:         timeStr,
			PatientName:  patientName,
			PatientPhone: patientPhone,
		})
		if err != nil {
			return Result{Success: false, Error: err.Error()}, nil
		}
		return Result{Success: true, Data: map[string]any{
			"event_id":      booking.EventID,
			"calendar_link": booking.CalendarLink,
		}}, nil

	case "delete_event":
		eventID, _ := params["event_id"].(string)
		if err := t.schedule.DeleteEvent(ctx, eventID); err != nil {
			return Result{Success: false, Error: err.Error()}, nil
		}
		return Result{Success: true}, nil

	default:
		return Result{Success: false, Error: fmt.Sprintf("unrecognized google_calendar action %q", action)}, nil
	}
}

func (t *ToolExecutor) executeSendEmail(ctx context.Context, params map[string]any) (Result, error) {
	if t.email == nil {
		return Result{Success: false, Error: "email sender not configured"}, nil
	}
	toEmail, _ := params["to_email"].(string)
	templateName, _ := params["template_name"].(string)
	vars, _ := params["template_vars"].(map[string]any)

	if err := t.email.Send(ctx, toEmail, templateName, vars); err != nil {
		return Result{Success: false, Error: err.Error()}, nil
	}
	return Result{Success: true}, nil
}

func (t *ToolExecutor) executeCreateTicket(ctx context.Context, params map[string]any) (Result, error) {
	if t.tickets == nil {
		return Result{Success: false, Error: "ticket system not configured"}, nil
	}
	subject, _ := params["subject"].(string)
	description, _ := params["description"].(string)
	priority, _ := params["priority"].(string)
	requesterID, _ := params["requester_id"].(string)

	ticketID, err := t.tickets.Create(ctx, subject, description, priority, requesterID)
	if err != nil {
		return Result{Success: false, Error: err.Error()}, nil
	}
	return Result{Success: true, Data: map[string]any{"ticket_id": ticketID}}, nil
}

func (t *ToolExecutor) executeCloseTicket(ctx context.Context, params map[string]any) (Result, error) {
	if t.tickets == nil {
		return Result{Success: false, Error: "ticket system not configured"}, nil
	}
	ticketID, _ := params["ticket_id"].(string)
	if err := t.tickets.Close(ctx, ticketID); err != nil {
		return Result{Success: false, Error: err.Error()}, nil
	}
	return Result{Success: true}, nil
}
