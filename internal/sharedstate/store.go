// Package sharedstate implements the Shared State Store (spec §4.D): a
// per-tenant, per-user typed key-value store spanning seven slots
// (pricing, schedule, user, service, support, emergency, handoff),
// TTL-bound and safe for concurrent use.
package sharedstate

import (
	"context"
	"log/slog"
	"time"

	"github.com/clinicflow/orchestrator/pkg/models"
)

// Stats summarizes store occupancy for a tenant; counts are best-effort.
type Stats struct {
	Users          int
	PricingEntries int
	ScheduleEntries int
}

// Store is the Shared State Store contract. Every method takes the
// tenant's redis_prefix explicitly; no operation can address a key outside
// that namespace, which is what makes cross-tenant access structurally
// impossible rather than merely policy.
type Store interface {
	SetPricing(ctx context.Context, prefix, userID, service string, info models.PricingInfo, ttl time.Duration) error
	GetPricing(ctx context.Context, prefix, userID, service string) (models.PricingInfo, bool, error)
	GetAllPricingForUser(ctx context.Context, prefix, userID string) (map[string]models.PricingInfo, error)

	SetSchedule(ctx context.Context, prefix, userID string, info models.ScheduleInfo, ttl time.Duration) error
	GetSchedule(ctx context.Context, prefix, userID string) (models.ScheduleInfo, bool, error)
	UpdateScheduleStatus(ctx context.Context, prefix, userID string, status models.ScheduleStatus, ttl time.Duration) error

	SetUser(ctx context.Context, prefix, userID string, info models.UserInfo, ttl time.Duration) error
	GetUser(ctx context.Context, prefix, userID string) (models.UserInfo, bool, error)
	AddIntentToHistory(ctx context.Context, prefix, userID, intent string, ttl time.Duration) error

	AddService(ctx context.Context, prefix, userID string, info models.ServiceInfo, ttl time.Duration) error
	GetServices(ctx context.Context, prefix, userID string) ([]models.ServiceInfo, error)

	AddSupport(ctx context.Context, prefix, userID string, info models.SupportInfo, ttl time.Duration) error
	GetSupport(ctx context.Context, prefix, userID string) ([]models.SupportInfo, error)

	SetEmergency(ctx context.Context, prefix, userID string, info models.EmergencyInfo, ttl time.Duration) error
	GetEmergency(ctx context.Context, prefix, userID string) (models.EmergencyInfo, bool, error)

	AddHandoff(ctx context.Context, prefix, userID string, info models.HandoffInfo, ttl time.Duration) error
	GetHandoffs(ctx context.Context, prefix, userID string) ([]models.HandoffInfo, error)
	GetLastHandoff(ctx context.Context, prefix, userID string) (models.HandoffInfo, bool, error)

	ClearUserData(ctx context.Context, prefix, userID string) error
	Stats(ctx context.Context, prefix string) (Stats, error)
}

// DefaultTTL is the spec's stated default (§3): 3600s, reset on every write.
const DefaultTTL = time.Hour

// NewStore builds a Store against redisAddr. If the Redis client cannot be
// constructed or fails to ping, it silently falls back to the in-memory
// backend and logs a warning, matching the spec's §4.D failure mode.
func NewStore(redisAddr, redisPassword string, redisDB int, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "shared_state_store")

	if redisAddr == "" {
		logger.Warn("no redis address configured, using in-memory shared state store")
		return NewInMemoryStore()
	}

	client, err := newRedisClient(redisAddr, redisPassword, redisDB)
	if err != nil {
		logger.Warn("redis shared state backend unavailable, falling back to in-memory", "error", err)
		return NewInMemoryStore()
	}
	return NewRedisStore(client)
}
