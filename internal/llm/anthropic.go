package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/otel/trace"

	"github.com/clinicflow/orchestrator/internal/backoff"
	"github.com/clinicflow/orchestrator/internal/observability"
)

// AnthropicClient implements Client against Anthropic's Messages API. It is
// the single concrete LLM provider wired by this service; swapping in
// another provider means implementing Client, not changing call sites.
type AnthropicClient struct {
	client       anthropic.Client
	defaultModel string
	maxRetries   int
	policy       backoff.BackoffPolicy
	metrics      *observability.Metrics
	tracer       *observability.Tracer
}

// AnthropicConfig configures AnthropicClient construction.
type AnthropicConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	MaxRetries   int
	Metrics      *observability.Metrics
	Tracer       *observability.Tracer
}

// NewAnthropicClient builds a Client backed by the Anthropic SDK.
func NewAnthropicClient(cfg AnthropicConfig) (*AnthropicClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("llm: anthropic api key is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.DefaultModel
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &AnthropicClient{
		client:       anthropic.NewClient(opts...),
		defaultModel: model,
		maxRetries:   maxRetries,
		policy:       backoff.DefaultPolicy(),
		metrics:      cfg.Metrics,
		tracer:       cfg.Tracer,
	}, nil
}

// Complete sends a single, non-streaming completion request. Transient
// errors are retried with exponential backoff; the context deadline set by
// the caller (§5: 30s default for LLM calls) bounds total retry time.
func (c *AnthropicClient) Complete(ctx context.Context, req CompletionRequest) (out string, err error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	if c.tracer != nil {
		var span trace.Span
		ctx, span = c.tracer.TraceLLMRequest(ctx, "anthropic", model)
		defer span.End()
		defer func() {
			if err != nil {
				c.tracer.RecordError(span, err)
			}
		}()
	}

	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		block := anthropic.NewTextBlock(m.Content)
		if strings.EqualFold(m.Role, "assistant") {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}

	result, err := backoff.RetryWithBackoff(ctx, c.policy, c.maxRetries, func(attempt int) (string, error) {
		resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(model),
			MaxTokens: int64(maxTokens),
			System: []anthropic.TextBlockParam{
				{Text: req.SystemPrompt},
			},
			Messages: messages,
		})
		if err != nil {
			return "", fmt.Errorf("anthropic completion (attempt %d): %w", attempt, err)
		}
		var sb strings.Builder
		for _, block := range resp.Content {
			if block.Type == "text" {
				sb.WriteString(block.Text)
			}
		}
		return sb.String(), nil
	})
	if err != nil {
		return "", err
	}
	return result.Value, nil
}

// completionTimeout is the 30s default deadline for LLM calls (§5). Nothing
// in this package applies it: Complete runs under whatever deadline the
// caller's context carries.
const completionTimeout = 30 * time.Second
