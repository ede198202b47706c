package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Bot-status and idempotency TTLs, matching the persisted-state layout (§6):
// `{prefix}bot_status:{conv}` at 24h, `{prefix}processed_message:{conv}:{mid}` at 1h.
const (
	botStatusTTL        = 24 * time.Hour
	processedMessageTTL = time.Hour
)

// botStatusRecord is stored at `{prefix}bot_status:{conv}` as one JSON
// string value (SET with TTL), not as a Redis hash.
type botStatusRecord struct {
	Active    bool      `json:"active"`
	Status    string    `json:"status"`
	CompanyID string    `json:"company_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusStore tracks per-conversation bot-active status and webhook
// idempotency. Both keys live in the tenant's Redis prefix (§6) so a
// degraded in-memory fallback and a Redis-backed implementation share this
// interface the way sharedstate.Store and convmemory.Backend do.
type StatusStore interface {
	SetBotStatus(ctx context.Context, prefix, conversationID, companyID, status string, active bool) error
	IsBotActive(ctx context.Context, prefix, conversationID string) (bool, error)
	// MarkProcessed reports whether this (conversation, message) pair has
	// already been seen. true means "already processed" (SETNX missed).
	MarkProcessed(ctx context.Context, prefix, conversationID, messageID string) (alreadyProcessed bool, err error)
}

func botStatusKey(prefix, conversationID string) string {
	return prefix + "bot_status:" + conversationID
}

func processedMessageKey(prefix, conversationID, messageID string) string {
	return prefix + "processed_message:" + conversationID + ":" + messageID
}

// RedisStatusStore is the production StatusStore, backed by a shared
// *redis.Client (the same client convmemory and sharedstate dial).
type RedisStatusStore struct {
	client *redis.Client
}

// NewRedisStatusStore wraps an existing *redis.Client.
func NewRedisStatusStore(client *redis.Client) *RedisStatusStore {
	return &RedisStatusStore{client: client}
}

func (s *RedisStatusStore) SetBotStatus(ctx context.Context, prefix, conversationID, companyID, status string, active bool) error {
	rec := botStatusRecord{Active: active, Status: status, CompanyID: companyID, UpdatedAt: time.Now()}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("webhook: encode bot status: %w", err)
	}
	if err := s.client.Set(ctx, botStatusKey(prefix, conversationID), payload, botStatusTTL).Err(); err != nil {
		return fmt.Errorf("webhook: redis set bot status: %w", err)
	}
	return nil
}

func (s *RedisStatusStore) IsBotActive(ctx context.Context, prefix, conversationID string) (bool, error) {
	raw, err := s.client.Get(ctx, botStatusKey(prefix, conversationID)).Bytes()
	if err == redis.Nil {
		// No status recorded yet defaults to active: conversation_updated
		// hasn't arrived before the first message_created in some webhook
		// orderings.
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("webhook: redis get bot status: %w", err)
	}
	var rec botStatusRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return false, fmt.Errorf("webhook: decode bot status: %w", err)
	}
	return rec.Active, nil
}

func (s *RedisStatusStore) MarkProcessed(ctx context.Context, prefix, conversationID, messageID string) (bool, error) {
	key := processedMessageKey(prefix, conversationID, messageID)
	ok, err := s.client.SetNX(ctx, key, time.Now().Format(time.RFC3339), processedMessageTTL).Result()
	if err != nil {
		return false, fmt.Errorf("webhook: redis setnx: %w", err)
	}
	return !ok, nil
}

// InMemoryStatusStore is the degrade-mode / test StatusStore.
type InMemoryStatusStore struct {
	mu         sync.Mutex
	statuses   map[string]botStatusRecord
	processed  map[string]time.Time
}

// NewInMemoryStatusStore builds an empty in-memory StatusStore.
func NewInMemoryStatusStore() *InMemoryStatusStore {
	return &InMemoryStatusStore{
		statuses:  make(map[string]botStatusRecord),
		processed: make(map[string]time.Time),
	}
}

func (s *InMemoryStatusStore) SetBotStatus(ctx context.Context, prefix, conversationID, companyID, status string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[botStatusKey(prefix, conversationID)] = botStatusRecord{Active: active, Status: status, CompanyID: companyID, UpdatedAt: time.Now()}
	return nil
}

func (s *InMemoryStatusStore) IsBotActive(ctx context.Context, prefix, conversationID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.statuses[botStatusKey(prefix, conversationID)]
	if !ok {
		return true, nil
	}
	return rec.Active, nil
}

func (s *InMemoryStatusStore) MarkProcessed(ctx context.Context, prefix, conversationID, messageID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := processedMessageKey(prefix, conversationID, messageID)
	now := time.Now()
	if seenAt, ok := s.processed[key]; ok && now.Sub(seenAt) < processedMessageTTL {
		return true, nil
	}
	s.processed[key] = now
	return false, nil
}
