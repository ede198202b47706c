package sharedstate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clinicflow/orchestrator/pkg/models"
)

func newRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// RedisStore implements Store over Redis, keyed exactly as §6 specifies:
// `{prefix}shared_state:{slot}:{user_id}[:{sub_key}]`.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing *redis.Client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func slotKey(prefix, slot, userID string, subKey ...string) string {
	key := prefix + "shared_state:" + slot + ":" + userID
	for _, s := range subKey {
		key += ":" + s
	}
	return key
}

func (s *RedisStore) setJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("sharedstate: encode: %w", err)
	}
	if err := s.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("sharedstate: redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) getJSON(ctx context.Context, key string, v any) (bool, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sharedstate: redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("sharedstate: decode %s: %w", key, err)
	}
	return true, nil
}

func (s *RedisStore) SetPricing(ctx context.Context, prefix, userID, service string, info models.PricingInfo, ttl time.Duration) error {
	return s.setJSON(ctx, slotKey(prefix, "pricing", userID, service), info, ttl)
}

func (s *RedisStore) GetPricing(ctx context.Context, prefix, userID, service string) (models.PricingInfo, bool, error) {
	var info models.PricingInfo
	ok, err := s.getJSON(ctx, slotKey(prefix, "pricing", userID, service), &info)
	return info, ok, err
}

func (s *RedisStore) GetAllPricingForUser(ctx context.Context, prefix, userID string) (map[string]models.PricingInfo, error) {
	pattern := slotKey(prefix, "pricing", userID, "*")
	out := map[string]models.PricingInfo{}
	var cursor uint64
	prefixLen := len(slotKey(prefix, "pricing", userID)) + 1
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("sharedstate: scan pricing: %w", err)
		}
		for _, key := range keys {
			var info models.PricingInfo
			if ok, err := s.getJSON(ctx, key, &info); err == nil && ok && len(key) > prefixLen {
				out[key[prefixLen:]] = info
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return out, nil
}

func (s *RedisStore) SetSchedule(ctx context.Context, prefix, userID string, info models.ScheduleInfo, ttl time.Duration) error {
	return s.setJSON(ctx, slotKey(prefix, "schedule", userID), info, ttl)
}

func (s *RedisStore) GetSchedule(ctx context.Context, prefix, userID string) (models.ScheduleInfo, bool, error) {
	var info models.ScheduleInfo
	ok, err := s.getJSON(ctx, slotKey(prefix, "schedule", userID), &info)
	return info, ok, err
}

func (s *RedisStore) UpdateScheduleStatus(ctx context.Context, prefix, userID string, status models.ScheduleStatus, ttl time.Duration) error {
	info, _, err := s.GetSchedule(ctx, prefix, userID)
	if err != nil {
		return err
	}
	info.Status = status
	info.Timestamp = time.Now()
	return s.SetSchedule(ctx, prefix, userID, info, ttl)
}

func (s *RedisStore) SetUser(ctx context.Context, prefix, userID string, info models.UserInfo, ttl time.Duration) error {
	existing, _, err := s.GetUser(ctx, prefix, userID)
	if err != nil {
		return err
	}
	if info.Name != "" {
		existing.Name = info.Name
	}
	if info.Phone != "" {
		existing.Phone = info.Phone
	}
	if info.Email != "" {
		existing.Email = info.Email
	}
	for k, v := range info.Preferences {
		if existing.Preferences == nil {
			existing.Preferences = map[string]any{}
		}
		existing.Preferences[k] = v
	}
	existing.IntentHistory = append(existing.IntentHistory, info.IntentHistory...)
	existing.UserID = userID
	existing.LastUpdated = time.Now()
	return s.setJSON(ctx, slotKey(prefix, "user", userID), existing, ttl)
}

func (s *RedisStore) GetUser(ctx context.Context, prefix, userID string) (models.UserInfo, bool, error) {
	var info models.UserInfo
	ok, err := s.getJSON(ctx, slotKey(prefix, "user", userID), &info)
	return info, ok, err
}

func (s *RedisStore) AddIntentToHistory(ctx context.Context, prefix, userID, intent string, ttl time.Duration) error {
	return s.SetUser(ctx, prefix, userID, models.UserInfo{IntentHistory: []string{intent}}, ttl)
}

func (s *RedisStore) AddService(ctx context.Context, prefix, userID string, info models.ServiceInfo, ttl time.Duration) error {
	var list []models.ServiceInfo
	if _, err := s.getJSON(ctx, slotKey(prefix, "service", userID), &list); err != nil {
		return err
	}
	list = append(list, info)
	return s.setJSON(ctx, slotKey(prefix, "service", userID), list, ttl)
}

func (s *RedisStore) GetServices(ctx context.Context, prefix, userID string) ([]models.ServiceInfo, error) {
	var list []models.ServiceInfo
	_, err := s.getJSON(ctx, slotKey(prefix, "service", userID), &list)
	return list, err
}

func (s *RedisStore) AddSupport(ctx context.Context, prefix, userID string, info models.SupportInfo, ttl time.Duration) error {
	var list []models.SupportInfo
	if _, err := s.getJSON(ctx, slotKey(prefix, "support", userID), &list); err != nil {
		return err
	}
	list = append(list, info)
	return s.setJSON(ctx, slotKey(prefix, "support", userID), list, ttl)
}

func (s *RedisStore) GetSupport(ctx context.Context, prefix, userID string) ([]models.SupportInfo, error) {
	var list []models.SupportInfo
	_, err := s.getJSON(ctx, slotKey(prefix, "support", userID), &list)
	return list, err
}

func (s *RedisStore) SetEmergency(ctx context.Context, prefix, userID string, info models.EmergencyInfo, ttl time.Duration) error {
	return s.setJSON(ctx, slotKey(prefix, "emergency", userID), info, ttl)
}

func (s *RedisStore) GetEmergency(ctx context.Context, prefix, userID string) (models.EmergencyInfo, bool, error) {
	var info models.EmergencyInfo
	ok, err := s.getJSON(ctx, slotKey(prefix, "emergency", userID), &info)
	return info, ok, err
}

func (s *RedisStore) AddHandoff(ctx context.Context, prefix, userID string, info models.HandoffInfo, ttl time.Duration) error {
	var list []models.HandoffInfo
	if _, err := s.getJSON(ctx, slotKey(prefix, "handoff", userID), &list); err != nil {
		return err
	}
	list = append(list, info)
	return s.setJSON(ctx, slotKey(prefix, "handoff", userID), list, ttl)
}

func (s *RedisStore) GetHandoffs(ctx context.Context, prefix, userID string) ([]models.HandoffInfo, error) {
	var list []models.HandoffInfo
	_, err := s.getJSON(ctx, slotKey(prefix, "handoff", userID), &list)
	return list, err
}

func (s *RedisStore) GetLastHandoff(ctx context.Context, prefix, userID string) (models.HandoffInfo, bool, error) {
	list, err := s.GetHandoffs(ctx, prefix, userID)
	if err != nil || len(list) == 0 {
		return models.HandoffInfo{}, false, err
	}
	return list[len(list)-1], true, nil
}

func (s *RedisStore) ClearUserData(ctx context.Context, prefix, userID string) error {
	pattern := prefix + "shared_state:*:" + userID + "*"
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("sharedstate: scan for clear: %w", err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("sharedstate: del: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return nil
}

func (s *RedisStore) Stats(ctx context.Context, prefix string) (Stats, error) {
	var st Stats
	pattern := prefix + "shared_state:user:*"
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return st, fmt.Errorf("sharedstate: scan stats: %w", err)
		}
		st.Users += len(keys)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return st, nil
}
