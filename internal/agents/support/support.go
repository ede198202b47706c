// Package support implements the Support specialist handler (§4.G):
// retrieval optionally scoped to support documents, with a prompt that
// handles generic Q&A and suggests escalation when appropriate.
package support

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

// DocumentType scopes retrieval to support-tagged documents when the
// tenant's index distinguishes document types.
const DocumentType = "support"

// Handler implements adapter.Handler for the support specialist.
type Handler struct {
	llmClient llm.Client
	resolver  *prompts.Resolver
	index     retrieval.Index
	indexName string
	model     string
	maxTokens int
}

// New builds a support Handler.
func New(llmClient llm.Client, resolver *prompts.Resolver, index retrieval.Index, indexName, model string, maxTokens int) *Handler {
	if index == nil {
		index = retrieval.NullIndex{}
	}
	return &Handler{llmClient: llmClient, resolver: resolver, index: index, indexName: indexName, model: model, maxTokens: maxTokens}
}

// Invoke produces the support reply for in.Question.
func (h *Handler) Invoke(ctx context.Context, in adapter.AgentInputs) (string, error) {
	docs, err := h.index.Search(ctx, h.indexName, in.Question, TopK, retrieval.Filter{
		CompanyID:    in.CompanyID,
		DocumentType: DocumentType,
	})
	if err != nil {
		docs = nil // StorageUnavailable degrade (§7): answer without retrieved context.
	}

	tmpl := h.resolver.Resolve(ctx, in.CompanyID, models.AgentSupport)
	system := prompts.Render(tmpl.Body, prompts.Vars{
		Question:    in.Question,
		ChatHistory: renderHistory(in.ChatHistory),
		Context:     joinDocuments(docs),
	})

	reply, err := h.llmClient.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: system,
		Messages:     []llm.Message{{Role: "user", Content: in.Question}},
		Model:        h.model,
		MaxTokens:    h.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("support: completion: %w", err)
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
