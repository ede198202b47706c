package sharedstate

import (
	"context"
	"sync"
	"time"

	"github.com/clinicflow/orchestrator/pkg/models"
)

type userSlots struct {
	pricing   map[string]models.PricingInfo
	schedule  *models.ScheduleInfo
	user      *models.UserInfo
	services  []models.ServiceInfo
	support   []models.SupportInfo
	emergency *models.EmergencyInfo
	handoffs  []models.HandoffInfo
	expiresAt time.Time
}

// InMemoryStore is the testing/degrade-mode Store: a single mutex around
// the per-(prefix,user) slot map, matching §9's "fine-grained locking is
// not required at expected load".
type InMemoryStore struct {
	mu   sync.Mutex
	data map[string]*userSlots
}

// NewInMemoryStore builds an empty in-memory Store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{data: make(map[string]*userSlots)}
}

func ssKey(prefix, userID string) string {
	return prefix + "shared_state:" + userID
}

func (s *InMemoryStore) slots(prefix, userID string, ttl time.Duration) *userSlots {
	key := ssKey(prefix, userID)
	u, ok := s.data[key]
	if !ok || time.Now().After(u.expiresAt) {
		u = &userSlots{pricing: make(map[string]models.PricingInfo)}
		s.data[key] = u
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	u.expiresAt = time.Now().Add(ttl)
	return u
}

func (s *InMemoryStore) SetPricing(ctx context.Context, prefix, userID, service string, info models.PricingInfo, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.slots(prefix, userID, ttl)
	u.pricing[service] = info
	return nil
}

func (s *InMemoryStore) GetPricing(ctx context.Context, prefix, userID, service string) (models.PricingInfo, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.data[ssKey(prefix, userID)]
	if !ok || time.Now().After(u.expiresAt) {
		return models.PricingInfo{}, false, nil
	}
	info, ok := u.pricing[service]
	return info, ok, nil
}

func (s *InMemoryStore) GetAllPricingForUser(ctx context.Context, prefix, userID string) (map[string]models.PricingInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.data[ssKey(prefix, userID)]
	if !ok || time.Now().After(u.expiresAt) {
		return map[string]models.PricingInfo{}, nil
	}
	out := make(map[string]models.PricingInfo, len(u.pricing))
	for k, v := range u.pricing {
		out[k] = v
	}
	return out, nil
}

func (s *InMemoryStore) SetSchedule(ctx context.Context, prefix, userID string, info models.ScheduleInfo, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.slots(prefix, userID, ttl)
	cp := info
	u.schedule = &cp
	return nil
}

func (s *InMemoryStore) GetSchedule(ctx context.Context, prefix, userID string) (models.ScheduleInfo, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.data[ssKey(prefix, userID)]
	if !ok || time.Now().After(u.expiresAt) || u.schedule == nil {
		return models.ScheduleInfo{}, false, nil
	}
	return *u.schedule, true, nil
}

func (s *InMemoryStore) UpdateScheduleStatus(ctx context.Context, prefix, userID string, status models.ScheduleStatus, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.slots(prefix, userID, ttl)
	if u.schedule == nil {
		u.schedule = &models.ScheduleInfo{}
	}
	u.schedule.Status = status
	u.schedule.Timestamp = time.Now()
	return nil
}

func (s *InMemoryStore) SetUser(ctx context.Context, prefix, userID string, info models.UserInfo, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.slots(prefix, userID, ttl)
	if u.user == nil {
		cp := info
		u.user = &cp
		return nil
	}
	// merge semantics: non-empty fields overwrite, intent_history appends.
	if info.Name != "" {
		u.user.Name = info.Name
	}
	if info.Phone != "" {
		u.user.Phone = info.Phone
	}
	if info.Email != "" {
		u.user.Email = info.Email
	}
	for k, v := range info.Preferences {
		if u.user.Preferences == nil {
			u.user.Preferences = map[string]any{}
		}
		u.user.Preferences[k] = v
	}
	u.user.IntentHistory = append(u.user.IntentHistory, info.IntentHistory...)
	u.user.LastUpdated = time.Now()
	return nil
}

func (s *InMemoryStore) GetUser(ctx context.Context, prefix, userID string) (models.UserInfo, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.data[ssKey(prefix, userID)]
	if !ok || time.Now().After(u.expiresAt) || u.user == nil {
		return models.UserInfo{}, false, nil
	}
	return *u.user, true, nil
}

func (s *InMemoryStore) AddIntentToHistory(ctx context.Context, prefix, userID, intent string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.slots(prefix, userID, ttl)
	if u.user == nil {
		u.user = &models.UserInfo{UserID: userID}
	}
	u.user.IntentHistory = append(u.user.IntentHistory, intent)
	u.user.LastUpdated = time.Now()
	return nil
}

func (s *InMemoryStore) AddService(ctx context.Context, prefix, userID string, info models.ServiceInfo, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.slots(prefix, userID, ttl)
	u.services = append(u.services, info)
	return nil
}

func (s *InMemoryStore) GetServices(ctx context.Context, prefix, userID string) ([]models.ServiceInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.data[ssKey(prefix, userID)]
	if !ok || time.Now().After(u.expiresAt) {
		return nil, nil
	}
	out := make([]models.ServiceInfo, len(u.services))
	copy(out, u.services)
	return out, nil
}

func (s *InMemoryStore) AddSupport(ctx context.Context, prefix, userID string, info models.SupportInfo, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.slots(prefix, userID, ttl)
	u.support = append(u.support, info)
	return nil
}

func (s *InMemoryStore) GetSupport(ctx context.Context, prefix, userID string) ([]models.SupportInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.data[ssKey(prefix, userID)]
	if !ok || time.Now().After(u.expiresAt) {
		return nil, nil
	}
	out := make([]models.SupportInfo, len(u.support))
	copy(out, u.support)
	return out, nil
}

func (s *InMemoryStore) SetEmergency(ctx context.Context, prefix, userID string, info models.EmergencyInfo, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.slots(prefix, userID, ttl)
	cp := info
	u.emergency = &cp
	return nil
}

func (s *InMemoryStore) GetEmergency(ctx context.Context, prefix, userID string) (models.EmergencyInfo, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.data[ssKey(prefix, userID)]
	if !ok || time.Now().After(u.expiresAt) || u.emergency == nil {
		return models.EmergencyInfo{}, false, nil
	}
	return *u.emergency, true, nil
}

func (s *InMemoryStore) AddHandoff(ctx context.Context, prefix, userID string, info models.HandoffInfo, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.slots(prefix, userID, ttl)
	u.handoffs = append(u.handoffs, info)
	return nil
}

func (s *InMemoryStore) GetHandoffs(ctx context.Context, prefix, userID string) ([]models.HandoffInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.data[ssKey(prefix, userID)]
	if !ok || time.Now().After(u.expiresAt) {
		return nil, nil
	}
	out := make([]models.HandoffInfo, len(u.handoffs))
	copy(out, u.handoffs)
	return out, nil
}

func (s *InMemoryStore) GetLastHandoff(ctx context.Context, prefix, userID string) (models.HandoffInfo, bool, error) {
	handoffs, err := s.GetHandoffs(ctx, prefix, userID)
	if err != nil || len(handoffs) == 0 {
		return models.HandoffInfo{}, false, err
	}
	return handoffs[len(handoffs)-1], true, nil
}

func (s *InMemoryStore) ClearUserData(ctx context.Context, prefix, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, ssKey(prefix, userID))
	return nil
}

func (s *InMemoryStore) Stats(ctx context.Context, prefix string) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st Stats
	keyPrefix := ssKey(prefix, "")
	now := time.Now()
	for k, u := range s.data {
		if len(k) < len(keyPrefix) || k[:len(keyPrefix)] != keyPrefix || now.After(u.expiresAt) {
			continue
		}
		st.Users++
		st.PricingEntries += len(u.pricing)
		if u.schedule != nil {
			st.ScheduleEntries++
		}
	}
	return st, nil
}
