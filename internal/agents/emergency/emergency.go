// Package emergency implements the Emergency specialist handler (§4.G):
// retrieval biased toward emergency keywords, a short reply, and a fixed
// escalation line appended to every response.
package emergency

import (
	"context"
	"fmt"
	"strings"

	"github.com/clinicflow/orchestrator/internal/adapter"
	"github.com/clinicflow/orchestrator/internal/llm"
	"github.com/clinicflow/orchestrator/internal/prompts"
	"github.com/clinicflow/orchestrator/internal/retrieval"
	"github.com/clinicflow/orchestrator/pkg/models"
)

// TopK is the number of retrieved documents joined into the prompt context.
const TopK = 3

// EscalationLine is appended to every emergency reply so a human is always
// notified, regardless of what the model produced.
const EscalationLine = "This has been flagged for immediate staff attention."

// Handler implements adapter.Handler for the emergency specialist.
type Handler struct {
	llmClient llm.Client
	resolver  *prompts.Resolver
	index     retrieval.Index
	indexName string
	model     string
	maxTokens int
}

// New builds an emergency Handler.
func New(llmClient llm.Client, resolver *prompts.Resolver, index retrieval.Index, indexName, model string, maxTokens int) *Handler {
	if index == nil {
		index = retrieval.NullIndex{}
	}
	return &Handler{llmClient: llmClient, resolver: resolver, index: index, indexName: indexName, model: model, maxTokens: maxTokens}
}

// Invoke produces the emergency reply for in.Question, biasing retrieval
// with emergency keywords and always ending with EscalationLine.
func (h *Handler) Invoke(ctx context.Context, in adapter.AgentInputs) (string, error) {
	query := biasedQuery(in.Question)
	docs, err := h.index.Search(ctx, h.indexName, query, TopK, retrieval.Filter{CompanyID: in.CompanyID})
	if err != nil {
		docs = nil // StorageUnavailable degrade (§7).
	}

	tmpl := h.resolver.Resolve(ctx, in.CompanyID, models.AgentEmergency)
	system := prompts.Render(tmpl.Body, prompts.Vars{
		Question: in.Question,
		Context:  joinDocuments(docs),
	})

	reply, err := h.llmClient.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: system,
		Messages:     []llm.Message{{Role: "user", Content: in.Question}},
		Model:        h.model,
		MaxTokens:    h.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("emergency: completion: %w", err)
	}
	return ensureEscalation(reply), nil
}

// biasedQuery ORs a fixed emergency vocabulary into the retrieval query so
// results skew toward urgent-care documents even when the question itself
// doesn't name one.
func biasedQuery(question string) string {
	return question + " emergencia urgente urgent emergency"
}

func ensureEscalation(reply string) string {
	reply = strings.TrimSpace(reply)
	if strings.Contains(reply, EscalationLine) {
		return reply
	}
	if reply == "" {
		return EscalationLine
	}
	return reply + " " + EscalationLine
}

func joinDocuments(docs []models.Document) string {
	if len(docs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		parts = append(parts, d.Content)
	}
	return strings.Join(parts, "\n\n")
}
