package orchestrator

import (
	"context"
	"errors"

	"github.com/clinicflow/orchestrator/internal/tools"
	"github.com/clinicflow/orchestrator/pkg/models"
)

// checkAvailability calls the schedule backend through the Tool Executor
// and loops back into execute_schedule (§4.K: "single loopback") so the
// schedule agent can compose a reply that includes the slots it found.
func (o *Orchestrator) checkAvailability(ctx context.Context, state *models.OrchestratorState) (string, error) {
	info := state.SharedContext["schedule_info"].(map[string]any)

	res, err := o.tools.Execute(ctx, tools.GoogleCalendar, map[string]any{
		"action":    "check_availability",
		"date":      info["date"],
		"treatment": info["treatment"],
	}, state.UserID, string(state.CurrentAgent), state.ConversationID)

	state.ToolsExecuted = append(state.ToolsExecuted, "check_availability")
	if err != nil || !res.Success {
		state.ToolErrors["check_availability"] = errMessage(err, res.Error)
		return nodeExecuteAgent, err
	}
	state.ToolResults["check_availability"] = res.Data
	return nodeExecuteAgent, nil
}

// executeBooking books the appointment via a one-action saga whose
// compensator deletes the calendar event (§4.J). The confirmation email is
// sent afterwards by sendNotification in a separate saga, so an email
// failure does not delete the event; with a single action in this saga,
// its compensator never runs.
func (o *Orchestrator) executeBooking(ctx context.Context, state *models.OrchestratorState) (string, error) {
	info := state.SharedContext["schedule_info"].(map[string]any)

	s := o.sagas.CreateSaga(state.UserID, "book_appointment")
	err := o.sagas.AddAction(s.SagaID, "tool", "google_calendar",
		func(ctx context.Context, in map[string]any) (map[string]any, error) {
			res, err := o.tools.Execute(ctx, tools.GoogleCalendar, map[string]any{
				"action":        "create_booking",
				"date":          in["date"],
				"treatment":     in["treatment"],
				"patient_name":  in["patient_name"],
				"patient_phone": in["patient_phone"],
			}, state.UserID, string(state.CurrentAgent), state.ConversationID)
			if err != nil {
				return nil, err
			}
			if !res.Success {
				return nil, errors.New(res.Error)
			}
			return res.Data, nil
		},
		func(ctx context.Context, result map[string]any) error {
			eventID, _ := result["event_id"].(string)
			_, err := o.tools.Execute(ctx, tools.GoogleCalendar, map[string]any{
				"action":   "delete_event",
				"event_id": eventID,
			}, state.UserID, string(state.CurrentAgent), state.ConversationID)
			return err
		},
		map[string]any{
			"date":          info["date"],
			"treatment":     info["treatment"],
			"patient_name":  info["patient_name"],
			"patient_phone": info["patient_phone"],
		},
	)
	if err != nil {
		return nodeValidateCrossAgent, err
	}

	result, err := o.sagas.ExecuteSaga(ctx, s.SagaID)
	state.ToolsExecuted = append(state.ToolsExecuted, "execute_booking")
	if err != nil || !result.Success {
		state.ToolErrors["execute_booking"] = errMessage(err, result.Error)
		return nodeValidateCrossAgent, err
	}
	state.ToolResults["execute_booking"] = result.Steps[0].Result
	return nodeValidateCrossAgent, nil
}

// sendNotification emails the patient a booking confirmation. It is not
// compensable: an already-sent email cannot be unsent, so it carries no
// compensator.
func (o *Orchestrator) sendNotification(ctx context.Context, state *models.OrchestratorState) (string, error) {
	info, _ := state.SharedContext["schedule_info"].(map[string]any)
	booking, _ := state.ToolResults["execute_booking"].(map[string]any)

	s := o.sagas.CreateSaga(state.UserID, "notify_booking")
	_ = o.sagas.AddAction(s.SagaID, "tool", "send_email",
		func(ctx context.Context, in map[string]any) (map[string]any, error) {
			res, err := o.tools.Execute(ctx, tools.SendEmail, map[string]any{
				"to_email":      info["patient_email"],
				"template_name": "booking_confirmation",
				"template_vars": map[string]any{
					"treatment": info["treatment"],
					"date":      info["date"],
					"booking":   booking,
				},
			}, state.UserID, string(state.CurrentAgent), state.ConversationID)
			if err != nil {
				return nil, err
			}
			if !res.Success {
				return nil, errors.New(res.Error)
			}
			return res.Data, nil
		}, nil, nil)

	result, err := o.sagas.ExecuteSaga(ctx, s.SagaID)
	state.ToolsExecuted = append(state.ToolsExecuted, "send_notification")
	if err != nil || !result.Success {
		state.ToolErrors["send_notification"] = errMessage(err, result.Error)
	}
	return nodeValidateCrossAgent, nil
}

// createTicket opens a support ticket via a one-action saga compensated by
// closing the ticket if a later step in the same saga fails.
func (o *Orchestrator) createTicket(ctx context.Context, state *models.OrchestratorState) (string, error) {
	s := o.sagas.CreateSaga(state.UserID, "open_ticket")
	err := o.sagas.AddAction(s.SagaID, "tool", "create_ticket",
		func(ctx context.Context, in map[string]any) (map[string]any, error) {
			res, err := o.tools.Execute(ctx, tools.CreateTicket, map[string]any{
				"subject":      "Support request",
				"description":  state.Question,
				"priority":     "medium",
				"requester_id": state.UserID,
			}, state.UserID, string(state.CurrentAgent), state.ConversationID)
			if err != nil {
				return nil, err
			}
			if !res.Success {
				return nil, errors.New(res.Error)
			}
			return res.Data, nil
		},
		func(ctx context.Context, result map[string]any) error {
			ticketID, _ := result["ticket_id"].(string)
			_, err := o.tools.Execute(ctx, tools.CloseTicket, map[string]any{
				"ticket_id": ticketID,
			}, state.UserID, string(state.CurrentAgent), state.ConversationID)
			return err
		},
		nil,
	)
	if err != nil {
		return nodeValidateCrossAgent, err
	}

	result, err := o.sagas.ExecuteSaga(ctx, s.SagaID)
	state.ToolsExecuted = append(state.ToolsExecuted, "create_ticket")
	if err != nil || !result.Success {
		state.ToolErrors["create_ticket"] = errMessage(err, result.Error)
		return nodeValidateCrossAgent, err
	}
	state.ToolResults["create_ticket"] = result.Steps[0].Result
	return nodeValidateCrossAgent, nil
}

func errMessage(err error, fallback string) string {
	if err != nil {
		return err.Error()
	}
	return fallback
}
