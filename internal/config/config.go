// Package config loads the orchestrator service's layered YAML+env
// configuration, patterned on the teacher's internal/config/loader.go:
// a single YAML file expanded against the environment, decoded into a
// typed Config, defaulted, then validated before cmd/orchestrator wires
// it into the rest of the service.
package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for cmd/orchestrator.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Redis     RedisConfig     `yaml:"redis"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	Tenant    TenantConfig    `yaml:"tenant"`
	Prompts   PromptsConfig   `yaml:"prompts"`
	Audit     AuditConfig     `yaml:"audit"`
	Logging   LoggingConfig   `yaml:"logging"`
	Tracing   TracingConfig   `yaml:"tracing"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Chatwoot  ChatwootConfig  `yaml:"chatwoot"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	Ticketing TicketingConfig `yaml:"ticketing"`
}

// ServerConfig configures the webhook HTTP listener.
type ServerConfig struct {
	Host        string `yaml:"host"`
	HTTPPort    int    `yaml:"http_port"`
	MetricsPort int    `yaml:"metrics_port"`
}

// RedisConfig configures the Shared State Store and Conversation Memory's
// Redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// PostgresConfig configures the Prompt Resolver's persistence tier and the
// durable audit sink.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxConnections  int           `yaml:"max_connections"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// AnthropicConfig configures the LLM backend binding.
type AnthropicConfig struct {
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	DefaultModel string `yaml:"default_model"`
	MaxRetries   int    `yaml:"max_retries"`
}

// TenantConfig configures the Tenant Registry's seed file.
type TenantConfig struct {
	SeedPath string `yaml:"seed_path"`
	Watch    bool   `yaml:"watch"`
}

// PromptsConfig configures the Prompt Resolver's default-prompt fallback
// tier.
type PromptsConfig struct {
	DefaultsPath string `yaml:"defaults_path"`
}

// AuditConfig configures the Audit Log.
type AuditConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BufferSize    int           `yaml:"buffer_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	SampleRate    float64       `yaml:"sample_rate"`
}

// LoggingConfig configures the process-wide slog.Logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
}

// TracingConfig configures the OTLP span exporter. An empty Endpoint
// disables tracing entirely (observability.NewTracer returns a no-op).
type TracingConfig struct {
	Endpoint       string            `yaml:"endpoint"`
	ServiceName    string            `yaml:"service_name"`
	Environment    string            `yaml:"environment"`
	SamplingRate   float64           `yaml:"sampling_rate"`
	EnableInsecure bool              `yaml:"enable_insecure"`
	Attributes     map[string]string `yaml:"attributes"`
}

// RateLimitConfig configures the per-tenant webhook ingress limiter.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size"`
	Enabled           bool    `yaml:"enabled"`
}

// ChatwootConfig configures the platform.Adapter egress boundary.
type ChatwootConfig struct {
	BaseURL   string `yaml:"base_url"`
	AccountID string `yaml:"account_id"`
	APIToken  string `yaml:"api_token"`
}

// SMTPConfig configures the send_email tool's backend.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// TicketingConfig configures the create_ticket/close_ticket tool backend.
type TicketingConfig struct {
	BaseURL  string `yaml:"base_url"`
	APIToken string `yaml:"api_token"`
}

// Load reads, expands, decodes, defaults, and validates the config file at
// path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	decoder := yaml.NewDecoder(strings.NewReader(expanded))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("parse config: expected a single YAML document")
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.HTTPPort == 0 {
		cfg.Server.HTTPPort = 8080
	}
	if cfg.Server.MetricsPort == 0 {
		cfg.Server.MetricsPort = 9090
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Postgres.MaxConnections == 0 {
		cfg.Postgres.MaxConnections = 10
	}
	if cfg.Postgres.ConnMaxLifetime == 0 {
		cfg.Postgres.ConnMaxLifetime = 5 * time.Minute
	}
	if cfg.Anthropic.DefaultModel == "" {
		cfg.Anthropic.DefaultModel = "claude-sonnet-4-20250514"
	}
	if cfg.Anthropic.MaxRetries == 0 {
		cfg.Anthropic.MaxRetries = 3
	}
	if cfg.Tenant.SeedPath == "" {
		cfg.Tenant.SeedPath = "tenants.yaml"
	}
	if cfg.Prompts.DefaultsPath == "" {
		cfg.Prompts.DefaultsPath = "prompts/defaults"
	}
	if !cfg.Audit.Enabled && cfg.Audit.BufferSize == 0 && cfg.Audit.SampleRate == 0 {
		cfg.Audit.Enabled = true
	}
	if cfg.Audit.BufferSize == 0 {
		cfg.Audit.BufferSize = 1000
	}
	if cfg.Audit.FlushInterval == 0 {
		cfg.Audit.FlushInterval = 5 * time.Second
	}
	if cfg.Audit.SampleRate == 0 {
		cfg.Audit.SampleRate = 1.0
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = "orchestrator"
	}
	if cfg.Tracing.SamplingRate == 0 {
		cfg.Tracing.SamplingRate = 1.0
	}
	if !cfg.RateLimit.Enabled && cfg.RateLimit.RequestsPerSecond == 0 && cfg.RateLimit.BurstSize == 0 {
		cfg.RateLimit.Enabled = true
	}
	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = 10.0
	}
	if cfg.RateLimit.BurstSize == 0 {
		cfg.RateLimit.BurstSize = 20
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("ORCHESTRATOR_HTTP_PORT")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Server.HTTPPort = parsed
		}
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_ADDR")); v != "" {
		cfg.Redis.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_PASSWORD")); v != "" {
		cfg.Redis.Password = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); v != "" {
		cfg.Anthropic.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("CHATWOOT_API_TOKEN")); v != "" {
		cfg.Chatwoot.APIToken = v
	}
	if v := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")); v != "" {
		cfg.Tracing.Endpoint = v
	}
}

// ValidationError collects every config problem found, so a user fixes
// them all in one pass rather than one error at a time.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return "config validation failed:\n- " + strings.Join(e.Issues, "\n- ")
}

// Validate checks the config for internal consistency. It is called by
// Load but exported so cmd/orchestrator can re-validate after manual
// overrides (e.g. flags).
func (cfg *Config) Validate() error {
	var issues []string

	if strings.TrimSpace(cfg.Anthropic.APIKey) == "" {
		issues = append(issues, "anthropic.api_key is required")
	}
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		issues = append(issues, "server.http_port must be between 1 and 65535")
	}
	if cfg.Audit.SampleRate < 0 || cfg.Audit.SampleRate > 1 {
		issues = append(issues, "audit.sample_rate must be between 0.0 and 1.0")
	}
	if cfg.Audit.BufferSize < 0 {
		issues = append(issues, "audit.buffer_size must be >= 0")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Format)) {
	case "json", "text":
	default:
		issues = append(issues, `logging.format must be "json" or "text"`)
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}
