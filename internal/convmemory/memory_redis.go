package convmemory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clinicflow/orchestrator/pkg/models"
)

// RedisBackend stores the message window as a single JSON blob per key
// (`{prefix}chat_history:{user_id}`), matching the Redis key layout in §6.
// A blob, rather than a native Redis list, keeps window-trim and
// TTL-reset atomic under one SET...EX.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend wraps an existing *redis.Client.
func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

func redisMemKey(prefix, userID string) string {
	return prefix + "chat_history:" + userID
}

func (b *RedisBackend) Get(ctx context.Context, prefix, companyID, userID string) ([]models.Message, error) {
	raw, err := b.client.Get(ctx, redisMemKey(prefix, userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("convmemory: redis get: %w", err)
	}
	var messages []models.Message
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil, fmt.Errorf("convmemory: decode messages: %w", err)
	}
	return messages, nil
}

func (b *RedisBackend) Append(ctx context.Context, prefix, companyID, userID string, msg models.Message, window int, ttl time.Duration) ([]models.Message, error) {
	key := redisMemKey(prefix, userID)
	messages, err := b.Get(ctx, prefix, companyID, userID)
	if err != nil {
		return nil, err
	}
	messages = append(messages, msg)
	if len(messages) > window {
		messages = messages[len(messages)-window:]
	}
	payload, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("convmemory: encode messages: %w", err)
	}
	if err := b.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return nil, fmt.Errorf("convmemory: redis set: %w", err)
	}
	return messages, nil
}

func (b *RedisBackend) Clear(ctx context.Context, prefix, companyID, userID string) error {
	if err := b.client.Del(ctx, redisMemKey(prefix, userID)).Err(); err != nil {
		return fmt.Errorf("convmemory: redis del: %w", err)
	}
	return nil
}

func (b *RedisBackend) Count(ctx context.Context, prefix, companyID string) (int, error) {
	var cursor uint64
	count := 0
	pattern := prefix + "chat_history:*"
	for {
		keys, next, err := b.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return 0, fmt.Errorf("convmemory: redis scan: %w", err)
		}
		count += len(keys)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return count, nil
}
