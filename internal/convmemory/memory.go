// Package convmemory implements Conversation Memory (spec §4.C): a
// per-tenant, per-user bounded sliding window of the last N messages with
// TTL, backed by Redis in production and an in-memory map in tests.
package convmemory

import (
	"context"
	"time"

	"github.com/clinicflow/orchestrator/pkg/models"
)

// DefaultWindow and DefaultTTL are the spec's stated defaults (§3); callers
// normally pass the tenant's configured values instead.
const (
	DefaultWindow = 10
	DefaultTTL    = 7 * 24 * time.Hour
)

// Backend is the storage boundary Memory drives. Keys are always derived
// from (companyID, userID) plus the tenant's redis_prefix; no operation
// accepts a bare key, which is what keeps cross-tenant reads impossible.
type Backend interface {
	Get(ctx context.Context, prefix, companyID, userID string) ([]models.Message, error)
	Append(ctx context.Context, prefix, companyID, userID string, msg models.Message, window int, ttl time.Duration) ([]models.Message, error)
	Clear(ctx context.Context, prefix, companyID, userID string) error
	Count(ctx context.Context, prefix, companyID string) (int, error)
}

// Memory is the Conversation Memory component.
type Memory struct {
	backend Backend
}

// New builds Memory over backend.
func New(backend Backend) *Memory {
	return &Memory{backend: backend}
}

// Get returns the ordered message window for (companyID, userID).
func (m *Memory) Get(ctx context.Context, prefix, companyID, userID string) ([]models.Message, error) {
	return m.backend.Get(ctx, prefix, companyID, userID)
}

// Append adds one message, dropping the oldest entries so that at most
// `window` remain (FIFO), resets the TTL, and returns the resulting window.
func (m *Memory) Append(ctx context.Context, prefix, companyID, userID string, role models.Role, content string, window int, ttl time.Duration) ([]models.Message, error) {
	if window <= 0 {
		window = DefaultWindow
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	msg := models.Message{Role: role, Content: content, Timestamp: time.Now()}
	return m.backend.Append(ctx, prefix, companyID, userID, msg, window, ttl)
}

// Clear deletes the memory for (companyID, userID).
func (m *Memory) Clear(ctx context.Context, prefix, companyID, userID string) error {
	return m.backend.Clear(ctx, prefix, companyID, userID)
}

// Stats returns the number of active conversations tracked for a tenant.
// The in-memory backend answers exactly; the Redis backend approximates via
// key-scan and should not be called on the request hot path.
func (m *Memory) Stats(ctx context.Context, prefix, companyID string) (int, error) {
	return m.backend.Count(ctx, prefix, companyID)
}
