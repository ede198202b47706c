package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/clinicflow/orchestrator/internal/adapter"
	"github.com/clinicflow/orchestrator/internal/agents"
	"github.com/clinicflow/orchestrator/internal/agents/schedule"
	orcherrors "github.com/clinicflow/orchestrator/internal/errors"
	"github.com/clinicflow/orchestrator/pkg/models"
)

func (o *Orchestrator) validateInput(state *models.OrchestratorState) (string, error) {
	if strings.TrimSpace(state.Question) == "" || strings.TrimSpace(state.UserID) == "" {
		state.AgentResponse = genericErrorReply
		return nodeEnd, orcherrors.New(orcherrors.KindInputInvalid, nodeValidateInput, state.CompanyID, state.UserID, fmt.Errorf("empty question or user_id"))
	}
	cfg, ok := o.registry.Get(state.CompanyID)
	if !ok || cfg.CompanyID != state.CompanyID {
		state.AgentResponse = genericErrorReply
		return nodeEnd, orcherrors.New(orcherrors.KindInputInvalid, nodeValidateInput, state.CompanyID, state.UserID, orcherrors.ErrTenantUnknown)
	}
	return nodeClassifyIntent, nil
}

func (o *Orchestrator) classifyIntent(ctx context.Context, state *models.OrchestratorState) (string, error) {
	result := o.routerA.Invoke(ctx, adapter.AgentInputs{
		Question:    state.Question,
		ChatHistory: state.ChatHistory,
		Context:     state.Context,
		UserID:      state.UserID,
		CompanyID:   state.CompanyID,
	})
	if !result.Success {
		state.Intent = models.IntentSupport
		state.Confidence = 0.3
		return nodeDetectSecondary, result.Error
	}

	c := agents.Parse(result.Output)
	state.Intent = c.Intent
	state.Confidence = c.Confidence
	state.IntentKeywords = c.Keywords
	return nodeDetectSecondary, nil
}

// detectSecondaryIntent scans for a secondary intent in strict priority
// order (§4.K): emergency beats pricing beats schedule beats support.
func (o *Orchestrator) detectSecondaryIntent(state *models.OrchestratorState) (string, error) {
	cfg, _ := o.registry.Get(state.CompanyID)
	question := state.Question

	switch {
	case agents.HasKeyword(question, cfg.Keywords.Emergency) && state.Intent != models.IntentEmergency:
		state.SecondaryIntent = models.IntentEmergency
		state.SecondaryConfidence = 0.9
	case (state.Intent == models.IntentSchedule || state.Intent == models.IntentSupport) && agents.HasKeyword(question, cfg.Keywords.Sales):
		state.SecondaryIntent = models.IntentSales
		state.SecondaryConfidence = 0.8
	case (state.Intent == models.IntentSales || state.Intent == models.IntentSupport) && agents.HasKeyword(question, cfg.Keywords.Schedule):
		state.SecondaryIntent = models.IntentSchedule
		state.SecondaryConfidence = 0.8
	case (state.Intent == models.IntentSales || state.Intent == models.IntentSchedule) && agents.HasKeyword(question, cfg.Keywords.Support):
		state.SecondaryIntent = models.IntentSupport
		state.SecondaryConfidence = 0.75
	}

	// Confidence <= 0.7 on the primary intent defaults routing to support
	// (§4.K edge annotation), but the classified intent/confidence are
	// still recorded above for observability.
	if state.Confidence <= 0.7 {
		state.CurrentAgent = models.AgentKey(strings.ToLower(string(models.IntentSupport)))
	} else {
		state.CurrentAgent = models.AgentKey(strings.ToLower(string(state.Intent)))
	}
	return nodeExecuteAgent, nil
}

func (o *Orchestrator) executeAgent(ctx context.Context, state *models.OrchestratorState) (string, error) {
	intent := models.Intent(strings.ToUpper(string(state.CurrentAgent)))
	a, ok := o.agentsA[state.CurrentAgent]
	if !ok {
		state.AgentResponse = genericErrorReply
		return nodeEnd, orcherrors.New(orcherrors.KindAgentExecutionFailure, nodeExecuteAgent, state.CompanyID, state.UserID, fmt.Errorf("no handler registered for agent %q", state.CurrentAgent))
	}

	questionCtx := state.Context
	if state.HandoffRequested && state.HandoffContext() != "" {
		questionCtx = strings.TrimSpace(questionCtx + "\n\n" + state.HandoffContext())
	}

	result := a.Invoke(ctx, adapter.AgentInputs{
		Question:    state.Question,
		ChatHistory: state.ChatHistory,
		Context:     questionCtx,
		UserID:      state.UserID,
		CompanyID:   state.CompanyID,
	})
	if !result.Success {
		state.AgentResponse = ""
		return nodeValidateOutput, orcherrors.New(orcherrors.KindAgentExecutionFailure, nodeExecuteAgent, state.CompanyID, state.UserID, result.Error)
	}

	state.AgentResponse = result.Output
	o.recordAgentSummary(state, intent)
	return nodeValidateOutput, nil
}

// recordAgentSummary writes the per-agent facts the cross-agent
// coordination nodes rely on (§4.K: "persist per-agent summary into
// shared_context").
func (o *Orchestrator) recordAgentSummary(state *models.OrchestratorState, intent models.Intent) {
	switch intent {
	case models.IntentSales:
		state.SharedContext["sales_info"] = map[string]any{
			"has_pricing": agents.HasPricingSignal(state.AgentResponse),
		}
	case models.IntentSchedule:
		cfg, _ := o.registry.Get(state.CompanyID)
		info := schedule.Extract(state.Question, state.ChatHistory, cfg.TreatmentDurations, time.Now())
		val := schedule.Validate(info, cfg, time.Now())
		state.SharedContext["schedule_info"] = map[string]any{
			"date":            info.Date,
			"treatment":       info.Treatment,
			"date_valid":      val.DateValid,
			"treatment_valid": val.TreatmentValid,
			"missing_fields":  val.MissingFields,
			"is_price_query":  schedule.IsPriceQuery(state.Question),
			"patient_name":    info.PatientName,
			"patient_phone":   info.Phone,
		}
	case models.IntentSupport:
		state.SharedContext["support_info"] = map[string]any{
			"has_problem": agents.HasSupportSignal(state.Question),
		}
	}
}

func (o *Orchestrator) validateOutput(state *models.OrchestratorState) (string, error) {
	if len(strings.TrimSpace(state.AgentResponse)) < 10 {
		state.ShouldRetry = true
	}
	return o.routeAfterValidateOutput(state), nil
}

// validateCrossAgentInfo is non-blocking: it only records a warning when
// the current agent's reply carries another family's signal without being
// that family's canonical author (§4.K).
func (o *Orchestrator) validateCrossAgentInfo(state *models.OrchestratorState) (string, error) {
	intent := models.Intent(strings.ToUpper(string(state.CurrentAgent)))
	reply := state.AgentResponse

	if intent != models.IntentSales && agents.HasPricingSignal(reply) {
		state.RecordValidation(nodeValidateCrossAgent, "pricing signal present in a non-sales reply")
	}
	if intent != models.IntentSchedule && agents.HasScheduleSignal(reply) {
		state.RecordValidation(nodeValidateCrossAgent, "scheduling signal present in a non-schedule reply")
	}
	if intent != models.IntentEmergency {
		cfg, _ := o.registry.Get(state.CompanyID)
		if agents.HasKeyword(reply, cfg.Keywords.Emergency) {
			state.RecordValidation(nodeValidateCrossAgent, "emergency signal present in a non-emergency reply")
		}
	}
	return nodeEnd, nil
}

// handleAgentHandoff hands off to the detected secondary intent once, per
// conversation turn (§4.K: handoff_completed is always set true on exit,
// preventing a second handoff in the same turn).
func (o *Orchestrator) handleAgentHandoff(state *models.OrchestratorState) (string, error) {
	defer func() { state.HandoffCompleted = true }()

	to := models.AgentKey(strings.ToLower(string(state.SecondaryIntent)))
	if state.SecondaryIntent == "" || to == state.CurrentAgent {
		return nodeEnd, nil
	}

	state.HandoffRequested = true
	state.HandoffFrom = state.CurrentAgent
	state.HandoffTo = to
	state.HandoffReason = fmt.Sprintf("secondary intent %s detected with confidence %.2f", state.SecondaryIntent, state.SecondaryConfidence)
	state.SetHandoffContext(state.AgentResponse)
	state.CurrentAgent = to
	return nodeExecuteAgent, nil
}

func (o *Orchestrator) handleRetry(state *models.OrchestratorState) (string, error) {
	state.Retries++
	if state.Retries >= 2 || strings.TrimSpace(state.AgentResponse) == "" {
		state.ShouldEscalate = true
		state.CurrentAgent = models.AgentKey(strings.ToLower(string(models.IntentSupport)))
		return nodeExecuteAgent, nil
	}
	return nodeExecuteAgent, nil
}
