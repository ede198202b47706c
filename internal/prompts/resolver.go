package prompts

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/clinicflow/orchestrator/pkg/models"
)

// hardcoded is the language-neutral tier-3 fallback per agent_key.
var hardcoded = map[models.AgentKey]string{
	models.AgentRouter: "Classify the user's question into SALES, SUPPORT, EMERGENCY, or SCHEDULE. " +
		"Question: {question}\nHistory: {chat_history}",
	models.AgentSales: "You are a sales assistant for {company_name}. Answer using: {context}\n" +
		"Question: {question}",
	models.AgentSupport: "You are a support assistant for {company_name}. Answer using: {context}\n" +
		"Question: {question}",
	models.AgentEmergency: "You are handling a medical emergency inquiry for {company_name}. " +
		"Context: {context}\nQuestion: {question}",
	models.AgentSchedule: "You help schedule appointments for {company_name}. Services: {services}\n" +
		"Question: {question}",
}

// emergencyTemplate is the tier-4 last resort: it embeds only
// {company_name} and {services} and does nothing else, per spec §4.B.
const emergencyTemplate = "Thank you for contacting {company_name}. Our services include: {services}. " +
	"A team member will follow up shortly."

// Resolver implements the Prompt Resolver (§4.B): Resolve searches custom,
// then tenant default, then hardcoded, then emergency, never failing the
// request — failures of tiers 1-3 are logged and fall through.
type Resolver struct {
	store  Store
	logger *slog.Logger
}

// NewResolver builds a Resolver backed by store. store may be nil, in which
// case every lookup falls straight through to the hardcoded/emergency tiers
// (used in tests and for tenants with no persisted prompts).
func NewResolver(store Store, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: store, logger: logger.With("component", "prompt_resolver")}
}

// Resolve returns the best available PromptTemplate for (company_id,
// agent_key), with Provenance recording which tier satisfied the request.
func (r *Resolver) Resolve(ctx context.Context, companyID string, agentKey models.AgentKey) models.PromptTemplate {
	if r.store != nil {
		if pt, err := r.store.GetCustom(ctx, companyID, agentKey); err == nil {
			return *pt
		} else if !errors.Is(err, ErrNotFound) {
			r.logger.Warn("custom prompt lookup failed", "company_id", companyID, "agent_key", agentKey, "error", err)
		}

		if pt, err := r.store.GetDefault(ctx, companyID, agentKey); err == nil {
			return *pt
		} else if !errors.Is(err, ErrNotFound) {
			r.logger.Warn("default prompt lookup failed", "company_id", companyID, "agent_key", agentKey, "error", err)
		}
	}

	if body, ok := hardcoded[agentKey]; ok {
		return models.PromptTemplate{
			CompanyID:    companyID,
			AgentKey:     agentKey,
			Body:         body,
			Provenance:   models.ProvenanceHardcoded,
			LastModified: time.Now(),
		}
	}

	r.logger.Warn("no hardcoded prompt registered, using emergency template", "company_id", companyID, "agent_key", agentKey)
	return models.PromptTemplate{
		CompanyID:    companyID,
		AgentKey:     agentKey,
		Body:         emergencyTemplate,
		Provenance:   models.ProvenanceEmergency,
		LastModified: time.Now(),
	}
}
