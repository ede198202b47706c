// Package sales implements the Sales specialist handler (§4.G): retrieval
// of tenant-filtered documents, joined into a context string, with a
// prompt that enforces a greeting, up to three benefits, and a CTA to
// schedule.
package sales

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
const TopK = 4

// Handler implements adapter.Handler for the sales specialist.
type Handler struct {
	llmClient llm.Client
	resolver  *prompts.Resolver
	index     retrieval.Index
	indexName string
	model     string
	maxTokens int
}

// New builds a sales Handler.
func New(llmClient llm.Client, resolver *prompts.Resolver, index retrieval.Index, indexName, model string, maxTokens int) *Handler {
	if index == nil {
		index = retrieval.NullIndex{}
	}
	return &Handler{llmClient: llmClient, resolver: resolver, index: index, indexName: indexName, model: model, maxTokens: maxTokens}
}

// Invoke produces the sales reply for in.Question.
func (h *Handler) Invoke(ctx context.Context, in adapter.AgentInputs) (string, error) {
	docs, err := h.index.Search(ctx, h.indexName, in.Question, TopK, retrieval.Filter{CompanyID: in.CompanyID})
	if err != nil {
		docs = nil // StorageUnavailable degrade: retrieval returns empty context (§7).
	}

	docContext := joinDocuments(docs)
	tmpl := h.resolver.Resolve(ctx, in.CompanyID, models.AgentSales)
	system := prompts.Render(tmpl.Body, prompts.Vars{
		Question: in.Question,
		Context:  docContext,
	})

	reply, err := h.llmClient.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: system,
		Messages:     []llm.Message{{Role: "user", Content: in.Question}},
		Model:        h.model,
		MaxTokens:    h.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("sales: completion: %w", err)
	}
	return reply, nil
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
