// Package schedule implements the Schedule specialist handler (§4.G) as a
// small sub-state-machine (§4.K.1): extract_info -> validate_info ->
// (check_availability | skip) -> generate_response.
package schedule

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/clinicflow/orchestrator/internal/adapter"
	"github.com/clinicflow/orchestrator/internal/llm"
	"github.com/clinicflow/orchestrator/internal/prompts"
	"github.com/clinicflow/orchestrator/internal/tenant"
	"github.com/clinicflow/orchestrator/pkg/models"
)

// SlotPreviewLimit bounds how many merged slots are shown in the reply
// prompt, per §4.K.1's generate_response node.
const SlotPreviewLimit = 5

// AvailabilityProbe checks the schedule backend for open slots on a date
// for a treatment. It exists as an interface, not a pointer back to the
// tool executor, so the schedule handler and the tool layer never hold
// mutual references.
type AvailabilityProbe interface {
	CheckAvailability(ctx context.Context, tenant models.TenantConfig, date, treatment string) ([]string, error)
}

// Handler implements adapter.Handler for the schedule specialist.
type Handler struct {
	llmClient llm.Client
	resolver  *prompts.Resolver
	registry  *tenant.Registry
	probe     AvailabilityProbe
	model     string
	maxTokens int
	now       func() time.Time
}

// New builds a schedule Handler. probe may be nil, in which case
// availability is never checked and the reply always asks for missing
// fields or states that availability could not be confirmed.
func New(llmClient llm.Client, resolver *prompts.Resolver, registry *tenant.Registry, probe AvailabilityProbe, model string, maxTokens int) *Handler {
	return &Handler{
		llmClient: llmClient,
		resolver:  resolver,
		registry:  registry,
		probe:     probe,
		model:     model,
		maxTokens: maxTokens,
		now:       time.Now,
	}
}

// Invoke runs the sub-state-machine for in.Question and produces the
// schedule reply.
func (h *Handler) Invoke(ctx context.Context, in adapter.AgentInputs) (string, error) {
	cfg, ok := h.registry.Get(in.CompanyID)
	if !ok {
		return "", fmt.Errorf("schedule: unknown company_id %q", in.CompanyID)
	}

	now := time.Now
	if h.now != nil {
		now = h.now
	}
	today := now()

	info := Extract(in.Question, in.ChatHistory, cfg.TreatmentDurations, today)
	val := Validate(info, cfg, today)

	var slotPreview []string
	shouldCheckAvailability := val.DateValid && val.TreatmentValid && !IsPriceQuery(in.Question)
	if shouldCheckAvailability && h.probe != nil {
		raw, err := h.probe.CheckAvailability(ctx, cfg, info.Date, info.Treatment)
		if err == nil {
			merged := MergeSlots(raw, cfg.TreatmentDurations[info.Treatment])
			slotPreview = limitSlots(merged, SlotPreviewLimit)
		}
		// A probe failure degrades to no availability preview (§7
		// StorageUnavailable/ExternalTimeout); generate_response still runs.
	}

	tmpl := h.resolver.Resolve(ctx, in.CompanyID, models.AgentSchedule)
	system := prompts.Render(tmpl.Body, prompts.Vars{
		Question:    in.Question,
		ChatHistory: renderHistory(in.ChatHistory),
		Context:     composeContext(info, val, slotPreview),
		CompanyName: cfg.DisplayName,
	})

	reply, err := h.llmClient.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: system,
		Messages:     []llm.Message{{Role: "user", Content: in.Question}},
		Model:        h.model,
		MaxTokens:    h.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("schedule: completion: %w", err)
	}
	return reply, nil
}

// composeContext builds the known-date/treatment/slots/missing-fields
// summary that generate_response feeds the LLM, per §4.K.1.
func composeContext(info ExtractedInfo, val ValidationResult, slotPreview []string) string {
	var sb strings.Builder
	if info.Date != "" {
		fmt.Fprintf(&sb, "date: %s (valid: %v)\n", info.Date, val.DateValid)
	}
	if info.Treatment != "" {
		fmt.Fprintf(&sb, "treatment: %s (valid: %v)\n", info.Treatment, val.TreatmentValid)
	}
	if len(slotPreview) > 0 {
		fmt.Fprintf(&sb, "available_slots: %s\n", strings.Join(slotPreview, ", "))
	}
	if len(val.MissingFields) > 0 {
		fmt.Fprintf(&sb, "missing_fields: %s\n", strings.Join(val.MissingFields, ", "))
	}
	return sb.String()
}

func limitSlots(slots []string, n int) []string {
	if len(slots) <= n {
		return slots
	}
	return slots[:n]
}

func renderHistory(messages []models.Message) string {
	var sb strings.Builder
	for _, m := range messages {
		sb.WriteString(string(m.Role))
		sb.WriteString(": ")
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}
