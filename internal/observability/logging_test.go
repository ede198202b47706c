package observability

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSlogLoggerRedactsAPIKeyInMessage(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(newRedactingHandler(slog.NewJSONHandler(&buf, nil), DefaultRedactPatterns))

	logger.Info("calling provider", "api_key", "sk-ant-"+strings.Repeat("abcdefghijklmnop", 6))

	assert.Contains(t, buf.String(), "[REDACTED]")
	assert.NotContains(t, buf.String(), "abcdefghijklmnop")
}

func TestNewSlogLoggerRedactsBearerToken(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(newRedactingHandler(slog.NewJSONHandler(&buf, nil), DefaultRedactPatterns))

	logger.Info("auth header", "header", "Bearer abcdefghijklmnopqrstuvwxyz0123456789")

	assert.Contains(t, buf.String(), "[REDACTED]")
}

func TestNewSlogLoggerPassesThroughNonSensitiveFields(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(newRedactingHandler(slog.NewJSONHandler(&buf, nil), DefaultRedactPatterns))

	logger.Info("processed message", "company_id", "acme", "user_id", "acme_contact_1")

	out := buf.String()
	assert.Contains(t, out, "acme")
	assert.Contains(t, out, "acme_contact_1")
}

func TestNewSlogLoggerRespectsLevel(t *testing.T) {
	logger := NewSlogLogger(LogConfig{Level: "error", Format: "json"})
	ctx := context.Background()
	assert.False(t, logger.Enabled(ctx, slog.LevelInfo))
	assert.True(t, logger.Enabled(ctx, slog.LevelError))
}

func TestNewSlogLoggerDefaultsToInfoJSON(t *testing.T) {
	logger := NewSlogLogger(LogConfig{})
	ctx := context.Background()
	assert.True(t, logger.Enabled(ctx, slog.LevelInfo))
	assert.False(t, logger.Enabled(ctx, slog.LevelDebug))
}
