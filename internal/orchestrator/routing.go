package orchestrator

import (
	"github.com/clinicflow/orchestrator/internal/agents"
	"github.com/clinicflow/orchestrator/pkg/models"
)

// routeAfterValidateOutput implements the six-step routing policy at
// validate_output (§4.K). Order matters: handoff-completion precedence
// comes first so a completed handoff this turn can never loop back into
// another handoff, then pending secondary-intent handoff, then tool
// applicability, then the schedule/pricing cross-agent check, then retry,
// then end.
func (o *Orchestrator) routeAfterValidateOutput(state *models.OrchestratorState) string {
	if state.HandoffCompleted {
		return nodeEnd
	}

	if state.SecondaryIntent != "" && state.SecondaryConfidence >= 0.7 && !state.HandoffCompleted {
		return nodeHandleAgentHandoff
	}

	if tool := o.applicableTool(state); tool != "" {
		return tool
	}

	if state.CurrentAgent == "schedule" && agents.HasPricingSignal(state.AgentResponse) {
		return nodeValidateCrossAgent
	}

	if state.ShouldRetry && state.Retries < 2 {
		return nodeHandleRetry
	}

	return nodeEnd
}

// applicableTool implements step 3 of the routing policy: which tool node,
// if any, the current agent's turn still needs.
func (o *Orchestrator) applicableTool(state *models.OrchestratorState) string {
	switch state.CurrentAgent {
	case "schedule":
		info, ok := state.SharedContext["schedule_info"].(map[string]any)
		if !ok {
			return ""
		}
		dateValid, _ := info["date_valid"].(bool)
		treatmentValid, _ := info["treatment_valid"].(bool)
		isPriceQuery, _ := info["is_price_query"].(bool)
		missing, _ := info["missing_fields"].([]string)

		switch {
		case dateValid && treatmentValid && !isPriceQuery && !contains(state.ToolsExecuted, "check_availability"):
			return nodeCheckAvailability
		case dateValid && treatmentValid && len(missing) == 0 &&
			contains(state.ToolsExecuted, "check_availability") &&
			!contains(state.ToolsExecuted, "execute_booking") &&
			confirmsBooking(state.Question):
			return nodeExecuteBooking
		case contains(state.ToolsExecuted, "execute_booking") && !contains(state.ToolsExecuted, "send_notification"):
			return nodeSendNotification
		}
	case "support":
		info, ok := state.SharedContext["support_info"].(map[string]any)
		if !ok {
			return ""
		}
		hasProblem, _ := info["has_problem"].(bool)
		if hasProblem && !contains(state.ToolsExecuted, "create_ticket") {
			return nodeCreateTicket
		}
	}
	return ""
}

var bookingConfirmationWords = []string{"confirmar", "confirmo", "confirm", "sí, reservar", "si, reservar", "book it", "agendar esa"}

func confirmsBooking(question string) bool {
	return agents.HasKeyword(question, bookingConfirmationWords)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
