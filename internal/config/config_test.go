package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
anthropic:
  api_key: test-key
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.Anthropic.DefaultModel)
	assert.Equal(t, "tenants.yaml", cfg.Tenant.SeedPath)
	assert.True(t, cfg.Audit.Enabled)
	assert.Equal(t, 1.0, cfg.Audit.SampleRate)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadExpandsEnvironmentVariables(t *testing.T) {
	t.Setenv("TEST_ANTHROPIC_KEY", "env-key")
	path := writeConfig(t, `
anthropic:
  api_key: ${TEST_ANTHROPIC_KEY}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Anthropic.APIKey)
}

func TestLoadEnvOverridesWinOverFile(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis.internal:6380")
	path := writeConfig(t, `
anthropic:
  api_key: test-key
redis:
  addr: localhost:6379
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
}

func TestLoadMissingAPIKeyFailsValidation(t *testing.T) {
	path := writeConfig(t, `server:
  http_port: 8080
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.api_key is required")
}

func TestLoadInvalidLoggingFormatFailsValidation(t *testing.T) {
	path := writeConfig(t, `
anthropic:
  api_key: test-key
logging:
  format: xml
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.format")
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, `
anthropic:
  api_key: test-key
not_a_real_field: true
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsMultipleDocuments(t *testing.T) {
	path := writeConfig(t, `
anthropic:
  api_key: test-key
---
anthropic:
  api_key: second-document
`)
	_, err := Load(path)
	assert.Error(t, err)
}
