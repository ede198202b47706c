package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/clinicflow/orchestrator/internal/adapter"
	"github.com/clinicflow/orchestrator/internal/llm"
	"github.com/clinicflow/orchestrator/internal/prompts"
	"github.com/clinicflow/orchestrator/pkg/models"
)

// Classification is the Router Handler's output (§4.F).
type Classification struct {
	Intent     models.Intent `json:"intent"`
	Confidence float64       `json:"confidence"`
	Keywords   []string      `json:"keywords"`
	Reasoning  string        `json:"reasoning"`
}

// fallbackClassification is returned whenever the router's raw text fails
// to parse as JSON, per spec §4.F and §7 (ClassificationParseFailure).
var fallbackClassification = Classification{Intent: models.IntentSupport, Confidence: 0.3}

// Router implements the Router Handler: it classifies the primary intent
// of a question into one of {SALES, SUPPORT, EMERGENCY, SCHEDULE}. It is
// stateless; all state lives in the caller's AgentInputs.
type Router struct {
	llmClient llm.Client
	resolver  *prompts.Resolver
	model     string
	maxTokens int
}

// NewRouter builds a Router.
func NewRouter(llmClient llm.Client, resolver *prompts.Resolver, model string, maxTokens int) *Router {
	return &Router{llmClient: llmClient, resolver: resolver, model: model, maxTokens: maxTokens}
}

// Invoke satisfies adapter.Handler: it resolves the router prompt, calls
// the LLM, and returns the raw completion text for the caller to parse
// with Parse. Keeping JSON-parsing out of Invoke lets the adapter retry
// raw LLM failures independently of classification parse failures, which
// per §7 are never retried — they default instead.
func (r *Router) Invoke(ctx context.Context, in adapter.AgentInputs) (string, error) {
	tmpl := r.resolver.Resolve(ctx, in.CompanyID, models.AgentRouter)
	system := prompts.Render(tmpl.Body, prompts.Vars{
		Question:    in.Question,
		ChatHistory: renderHistory(in.ChatHistory),
		Context:     in.Context,
	})

	reply, err := r.llmClient.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: system,
		Messages:     []llm.Message{{Role: "user", Content: in.Question}},
		Model:        r.model,
		MaxTokens:    r.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("router: completion: %w", err)
	}
	return reply, nil
}

// Parse decodes the router's raw reply into a Classification. Any failure
// to parse valid JSON with a recognized intent defaults to SUPPORT/0.3 and
// never returns an error, matching §4.F and the ClassificationParseFailure
// recovery policy in §7.
func Parse(raw string) Classification {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	if !validatesAgainstSchema([]byte(raw)) {
		return fallbackClassification
	}

	var c Classification
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return fallbackClassification
	}
	return c
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
