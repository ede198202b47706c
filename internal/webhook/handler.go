// Package webhook implements Webhook Ingress (spec §4.L): it parses an
// inbound Chatwoot-shaped event, resolves the tenant, gates on bot-active
// status and idempotency, extracts the contact, calls the Orchestration
// Graph, persists the turn to Conversation Memory, and sends the reply
// back through the chat-platform adapter.
package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/clinicflow/orchestrator/internal/convmemory"
	orcherrors "github.com/clinicflow/orchestrator/internal/errors"
	"github.com/clinicflow/orchestrator/internal/observability"
	"github.com/clinicflow/orchestrator/internal/orchestrator"
	"github.com/clinicflow/orchestrator/internal/platform"
	"github.com/clinicflow/orchestrator/internal/ratelimit"
	"github.com/clinicflow/orchestrator/internal/tenant"
	"github.com/clinicflow/orchestrator/pkg/models"
	"go.opentelemetry.io/otel/trace"
)

const defaultMaxBodyBytes = 256 * 1024

// defaultBotActiveStatuses is used when a tenant leaves BotActiveStatuses
// unset (§4.L: "default {open}").
var defaultBotActiveStatuses = []string{"open"}

// AckResult is the handler's outcome for one event, returned as the HTTP
// response body and used by tests to assert behavior without parsing JSON.
type AckResult struct {
	OK        bool   `json:"ok"`
	Reason    string `json:"reason,omitempty"`
	CompanyID string `json:"company_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
}

// Handler wires the Webhook Ingress boundary to the rest of the system.
type Handler struct {
	registry     *tenant.Registry
	orchestrator *orchestrator.Orchestrator
	memory       *convmemory.Memory
	adapter      platform.Adapter
	status       StatusStore
	transcriber  Transcriber
	describer    Describer
	limiter      *ratelimit.Limiter
	logger       *slog.Logger
	metrics      *observability.Metrics
	tracer       *observability.Tracer
	maxBodyBytes int64
}

// New builds a Handler. transcriber/describer default to no-op
// implementations when nil (audio/image processing is out of scope, §1).
// Inbound deliveries are rate limited per tenant using ratelimit.DefaultConfig.
// metrics/tracer may be nil, in which case webhook handling runs
// uninstrumented.
func New(registry *tenant.Registry, orch *orchestrator.Orchestrator, memory *convmemory.Memory, adapter platform.Adapter, status StatusStore, transcriber Transcriber, describer Describer, logger *slog.Logger, metrics *observability.Metrics, tracer *observability.Tracer) *Handler {
	if transcriber == nil {
		transcriber = NoopTranscriber{}
	}
	if describer == nil {
		describer = NoopDescriber{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		registry:     registry,
		orchestrator: orch,
		memory:       memory,
		adapter:      adapter,
		status:       status,
		transcriber:  transcriber,
		describer:    describer,
		limiter:      ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		logger:       logger.With("component", "webhook"),
		metrics:      metrics,
		tracer:       tracer,
		maxBodyBytes: defaultMaxBodyBytes,
	}
}

// SetRateLimitConfig replaces the handler's rate limiter. cmd/orchestrator
// calls this once at startup with the operator-configured rate, since New
// always starts a Handler on ratelimit.DefaultConfig.
func (h *Handler) SetRateLimitConfig(cfg ratelimit.Config) {
	h.limiter = ratelimit.NewLimiter(cfg)
}

// ServeHTTP implements http.Handler for the inbound Chatwoot webhook
// (`POST /webhook/chatwoot`, §6).
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, AckResult{OK: false, Reason: "body too large or unreadable"})
		return
	}

	payload, err := ParsePayload(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, AckResult{OK: false, Reason: err.Error()})
		return
	}
	if payload.ConversationKey() == "" {
		writeJSON(w, http.StatusBadRequest, AckResult{OK: false, Reason: "missing conversation"})
		return
	}

	result, status := h.handleEvent(r.Context(), payload)
	writeJSON(w, status, result)
}

func (h *Handler) handleEvent(ctx context.Context, payload *Payload) (AckResult, int) {
	start := time.Now()
	companyID := h.registry.Resolve(payload.tenantResolve())

	if h.tracer != nil {
		var span trace.Span
		ctx, span = h.tracer.TraceWebhookEvent(ctx, payload.Event, companyID)
		defer span.End()
	}

	result, status := h.dispatchEvent(ctx, payload, companyID)

	if h.metrics != nil {
		h.metrics.WebhookReceived.WithLabelValues(payload.Event, webhookOutcome(status)).Inc()
		h.metrics.WebhookDuration.WithLabelValues(payload.Event).Observe(time.Since(start).Seconds())
	}
	return result, status
}

func (h *Handler) dispatchEvent(ctx context.Context, payload *Payload, companyID string) (AckResult, int) {
	cfg, err := h.registry.MustGet(companyID)
	if err != nil {
		return AckResult{OK: false, Reason: err.Error()}, http.StatusBadRequest
	}

	if !h.limiter.Allow(companyID) {
		return AckResult{OK: false, Reason: "rate limit exceeded", CompanyID: companyID}, http.StatusTooManyRequests
	}

	switch payload.Event {
	case eventConversationUpdate:
		return h.handleConversationUpdated(ctx, payload, cfg)
	case eventMessageCreated:
		return h.handleMessageCreated(ctx, payload, cfg)
	default:
		return AckResult{OK: true, Reason: "event ignored", CompanyID: companyID}, http.StatusOK
	}
}

func webhookOutcome(status int) string {
	switch {
	case status == http.StatusOK:
		return "processed"
	case status == http.StatusTooManyRequests:
		return "rate_limited"
	case status >= 500:
		return "error"
	default:
		return "rejected"
	}
}

func (h *Handler) handleConversationUpdated(ctx context.Context, payload *Payload, cfg models.TenantConfig) (AckResult, int) {
	active := isBotActiveStatus(cfg, payload.Conversation.Status)
	if err := h.status.SetBotStatus(ctx, cfg.RedisPrefix, payload.ConversationKey(), cfg.CompanyID, payload.Conversation.Status, active); err != nil {
		h.logger.Warn("set bot status failed", "error", err, "company_id", cfg.CompanyID)
	}
	return AckResult{OK: true, Reason: "status updated", CompanyID: cfg.CompanyID}, http.StatusOK
}

func isBotActiveStatus(cfg models.TenantConfig, status string) bool {
	statuses := cfg.BotActiveStatuses
	if len(statuses) == 0 {
		statuses = defaultBotActiveStatuses
	}
	for _, s := range statuses {
		if strings.EqualFold(s, status) {
			return true
		}
	}
	return false
}

func (h *Handler) handleMessageCreated(ctx context.Context, payload *Payload, cfg models.TenantConfig) (AckResult, int) {
	if !payload.IsIncoming() {
		return AckResult{OK: true, Reason: "non-incoming message ignored", CompanyID: cfg.CompanyID}, http.StatusOK
	}

	active, err := h.status.IsBotActive(ctx, cfg.RedisPrefix, payload.ConversationKey())
	if err != nil {
		h.logger.Warn("bot status lookup failed", "error", err, "company_id", cfg.CompanyID)
	}
	if !active {
		return AckResult{OK: true, Reason: orcherrors.ErrBotInactive.Error(), CompanyID: cfg.CompanyID}, http.StatusOK
	}

	duplicate, err := h.status.MarkProcessed(ctx, cfg.RedisPrefix, payload.ConversationKey(), payload.MessageKey())
	if err != nil {
		h.logger.Warn("idempotency check failed", "error", err, "company_id", cfg.CompanyID)
	}
	if duplicate {
		return AckResult{OK: true, Reason: orcherrors.ErrDuplicateMessage.Error(), CompanyID: cfg.CompanyID}, http.StatusOK
	}

	contactID, err := payload.ContactID()
	if err != nil {
		return AckResult{OK: false, Reason: err.Error()}, http.StatusBadRequest
	}
	userID := UserID(cfg.CompanyID, contactID)

	mediaContext := h.buildMediaContext(ctx, h.adapter, payload.Attachments)

	history, err := h.memory.Get(ctx, cfg.RedisPrefix, cfg.CompanyID, userID)
	if err != nil {
		h.logger.Warn("memory get failed, degrading to empty history", "error", err, "company_id", cfg.CompanyID)
	}

	reply, err := h.orchestrator.Handle(ctx, orchestrator.Input{
		Question:       payload.Content,
		UserID:         userID,
		CompanyID:      cfg.CompanyID,
		ConversationID: payload.ConversationKey(),
		ChatHistory:    history,
		Context:        mediaContext,
	})
	if err != nil {
		h.logger.Error("orchestrator handle failed", "error", err, "company_id", cfg.CompanyID, "user_id", userID)
		return AckResult{OK: false, Reason: "internal error", CompanyID: cfg.CompanyID, UserID: userID}, http.StatusInternalServerError
	}

	if _, err := h.memory.Append(ctx, cfg.RedisPrefix, cfg.CompanyID, userID, models.RoleUser, payload.Content, cfg.MaxContextMessages, 0); err != nil {
		h.logger.Warn("memory append (user) failed", "error", err, "company_id", cfg.CompanyID)
	}
	if _, err := h.memory.Append(ctx, cfg.RedisPrefix, cfg.CompanyID, userID, models.RoleAssistant, reply.Text, cfg.MaxContextMessages, 0); err != nil {
		h.logger.Warn("memory append (assistant) failed", "error", err, "company_id", cfg.CompanyID)
	}

	sendCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := h.adapter.Send(sendCtx, platform.OutgoingMessage{
		AccountID:      payload.Conversation.Account.ID.String(),
		ConversationID: payload.ConversationKey(),
		Content:        reply.Text,
	}); err != nil {
		h.logger.Error("platform send failed", "error", err, "company_id", cfg.CompanyID, "user_id", userID)
		return AckResult{OK: false, Reason: "reply send failed", CompanyID: cfg.CompanyID, UserID: userID}, http.StatusInternalServerError
	}

	return AckResult{OK: true, Reason: "processed", CompanyID: cfg.CompanyID, UserID: userID}, http.StatusOK
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
