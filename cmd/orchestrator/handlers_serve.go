package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/clinicflow/orchestrator/internal/adapter"
	"github.com/clinicflow/orchestrator/internal/agents"
	"github.com/clinicflow/orchestrator/internal/agents/emergency"
	"github.com/clinicflow/orchestrator/internal/agents/sales"
	"github.com/clinicflow/orchestrator/internal/agents/schedule"
	"github.com/clinicflow/orchestrator/internal/agents/support"
	"github.com/clinicflow/orchestrator/internal/audit"
	"github.com/clinicflow/orchestrator/internal/config"
	"github.com/clinicflow/orchestrator/internal/convmemory"
	"github.com/clinicflow/orchestrator/internal/llm"
	"github.com/clinicflow/orchestrator/internal/observability"
	"github.com/clinicflow/orchestrator/internal/orchestrator"
	"github.com/clinicflow/orchestrator/internal/platform"
	"github.com/clinicflow/orchestrator/internal/prompts"
	"github.com/clinicflow/orchestrator/internal/ratelimit"
	"github.com/clinicflow/orchestrator/internal/saga"
	"github.com/clinicflow/orchestrator/internal/sharedstate"
	"github.com/clinicflow/orchestrator/internal/tenant"
	"github.com/clinicflow/orchestrator/internal/tools"
	"github.com/clinicflow/orchestrator/internal/webhook"
	"github.com/clinicflow/orchestrator/pkg/models"
)

const llmCompletionTimeout = 30 * time.Second

func runServe(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewSlogLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	slog.SetDefault(logger)

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	tracer, shutdownTracer := observability.NewTracer(observability.TraceConfig{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: version,
		Environment:    cfg.Tracing.Environment,
		Endpoint:       cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
		Attributes:     cfg.Tracing.Attributes,
		EnableInsecure: cfg.Tracing.EnableInsecure,
	})

	handler, err := wireHandler(cmd.Context(), cfg, logger, metrics, tracer)
	if err != nil {
		return fmt.Errorf("wire orchestrator: %w", err)
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	webhookAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort)
	metricsAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.MetricsPort)

	webhookMux := http.NewServeMux()
	webhookMux.Handle("/webhook/chatwoot", handler)
	webhookServer := &http.Server{Addr: webhookAddr, Handler: webhookMux}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{Addr: metricsAddr, Handler: metricsMux}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("webhook listener starting", "addr", webhookAddr)
		if err := webhookServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("webhook server: %w", err)
		}
	}()
	go func() {
		logger.Info("metrics listener starting", "addr", metricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	_ = webhookServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Warn("tracer shutdown failed", "error", err)
	}

	logger.Info("orchestrator stopped")
	return nil
}

// wireHandler builds the full dependency graph from cfg: tenant registry,
// prompt resolver, shared state, conversation memory, LLM client, router,
// specialist agents, tool executor, compensation orchestrator, audit log,
// orchestration graph, and finally the webhook handler itself.
func wireHandler(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, tracer *observability.Tracer) (*webhook.Handler, error) {
	registry, err := tenant.NewRegistry(cfg.Tenant.SeedPath, cfg.Tenant.Watch, logger)
	if err != nil {
		return nil, fmt.Errorf("tenant registry: %w", err)
	}

	var promptStore prompts.Store
	if cfg.Postgres.DSN != "" {
		store, err := prompts.NewPostgresStore(cfg.Postgres.DSN)
		if err != nil {
			logger.Warn("prompt store unavailable, falling back to hardcoded prompts", "error", err)
		} else {
			promptStore = store
		}
	}
	resolver := prompts.NewResolver(promptStore, logger)

	sharedStore := sharedstate.NewStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)

	memBackend := newConvMemoryBackend(cfg.Redis, logger)
	memory := convmemory.New(memBackend)

	llmClient, err := llm.NewAnthropicClient(llm.AnthropicConfig{
		APIKey:       cfg.Anthropic.APIKey,
		BaseURL:      cfg.Anthropic.BaseURL,
		DefaultModel: cfg.Anthropic.DefaultModel,
		MaxRetries:   cfg.Anthropic.MaxRetries,
		Metrics:      metrics,
		Tracer:       tracer,
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic client: %w", err)
	}

	model := cfg.Anthropic.DefaultModel
	maxTokens := 1024

	router := agents.NewRouter(llmClient, resolver, model, maxTokens)
	routerAdapter := adapter.New(router, "router", llmCompletionTimeout, 2, nil, nil, metrics, tracer)

	scheduleProbe := tools.NewScheduleProbe()

	agentHandlers := map[models.AgentKey]*adapter.Adapter{
		models.AgentSales: adapter.New(
			sales.New(llmClient, resolver, nil, "", model, maxTokens),
			"sales", llmCompletionTimeout, 2, nil, nil, metrics, tracer),
		models.AgentSupport: adapter.New(
			support.New(llmClient, resolver, nil, "", model, maxTokens),
			"support", llmCompletionTimeout, 2, nil, nil, metrics, tracer),
		models.AgentEmergency: adapter.New(
			emergency.New(llmClient, resolver, nil, "", model, maxTokens),
			"emergency", llmCompletionTimeout, 2, nil, nil, metrics, tracer),
		models.AgentSchedule: adapter.New(
			schedule.New(llmClient, resolver, registry, scheduleProbe, model, maxTokens),
			"schedule", llmCompletionTimeout, 2, nil, nil, metrics, tracer),
	}

	var emailSender tools.EmailSender
	if cfg.SMTP.Host != "" {
		emailSender = tools.NewSMTPEmailSender(tools.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}, nil)
	}
	var ticketSystem tools.TicketSystem
	if cfg.Ticketing.BaseURL != "" {
		ticketSystem = tools.NewHTTPTicketSystem(cfg.Ticketing.BaseURL, cfg.Ticketing.APIToken)
	}
	toolExecutor := tools.New(scheduleProbe, emailSender, ticketSystem, metrics, tracer)

	var auditSink audit.Sink
	if cfg.Postgres.DSN != "" {
		sink, err := audit.NewPostgresSink(ctx, cfg.Postgres.DSN)
		if err != nil {
			logger.Warn("audit sink unavailable, audit entries will be discarded", "error", err)
		} else {
			auditSink = sink
		}
	}
	auditLogger := audit.NewLogger(audit.Config{
		Enabled:       cfg.Audit.Enabled,
		BufferSize:    cfg.Audit.BufferSize,
		FlushInterval: cfg.Audit.FlushInterval,
		SampleRate:    cfg.Audit.SampleRate,
	}, auditSink, logger)

	sagaOrchestrator := saga.New(auditLogger, metrics)

	orc := orchestrator.New(registry, router, routerAdapter, agentHandlers, toolExecutor, sagaOrchestrator, sharedStore, logger, metrics, tracer)

	platformAdapter := platform.NewChatwootAdapter(platform.ChatwootConfig{
		BaseURL:   cfg.Chatwoot.BaseURL,
		AccountID: cfg.Chatwoot.AccountID,
		APIToken:  cfg.Chatwoot.APIToken,
	})

	statusStore := newStatusStore(cfg.Redis, logger)

	handler := webhook.New(registry, orc, memory, platformAdapter, statusStore, nil, nil, logger, metrics, tracer)
	handler.SetRateLimitConfig(ratelimit.Config{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.BurstSize,
		Enabled:           cfg.RateLimit.Enabled,
	})
	return handler, nil
}

// newConvMemoryBackend dials Redis for conversation memory, falling back to
// an in-memory backend if no address is configured or the ping fails,
// matching the Shared State Store's own degrade policy.
func newConvMemoryBackend(cfg config.RedisConfig, logger *slog.Logger) convmemory.Backend {
	if cfg.Addr == "" {
		logger.Warn("no redis address configured, using in-memory conversation memory")
		return convmemory.NewInMemoryBackend()
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis conversation memory backend unavailable, falling back to in-memory", "error", err)
		return convmemory.NewInMemoryBackend()
	}
	return convmemory.NewRedisBackend(client)
}

// newStatusStore dials Redis for bot-status/idempotency tracking, with the
// same in-memory fallback policy as newConvMemoryBackend.
func newStatusStore(cfg config.RedisConfig, logger *slog.Logger) webhook.StatusStore {
	if cfg.Addr == "" {
		logger.Warn("no redis address configured, using in-memory webhook status store")
		return webhook.NewInMemoryStatusStore()
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis webhook status backend unavailable, falling back to in-memory", "error", err)
		return webhook.NewInMemoryStatusStore()
	}
	return webhook.NewRedisStatusStore(client)
}
