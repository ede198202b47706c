package convmemory

import (
	"context"
	"sync"
	"time"

	"github.com/clinicflow/orchestrator/pkg/models"
)

type entry struct {
	messages []models.Message
	expires  time.Time
}

// InMemoryBackend is the test/degrade-mode Backend: a single mutex guards
// the slot map, which is fine-grained enough at expected load (§9).
type InMemoryBackend struct {
	mu   sync.Mutex
	data map[string]*entry
}

// NewInMemoryBackend constructs an empty in-memory backend.
func NewInMemoryBackend() *InMemoryBackend {
	return &InMemoryBackend{data: make(map[string]*entry)}
}

func memKey(prefix, companyID, userID string) string {
	return prefix + "chat_history:" + companyID + ":" + userID
}

func (b *InMemoryBackend) Get(ctx context.Context, prefix, companyID, userID string) ([]models.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.data[memKey(prefix, companyID, userID)]
	if !ok || time.Now().After(e.expires) {
		return nil, nil
	}
	out := make([]models.Message, len(e.messages))
	copy(out, e.messages)
	return out, nil
}

func (b *InMemoryBackend) Append(ctx context.Context, prefix, companyID, userID string, msg models.Message, window int, ttl time.Duration) ([]models.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := memKey(prefix, companyID, userID)
	e, ok := b.data[key]
	if !ok || time.Now().After(e.expires) {
		e = &entry{}
	}
	e.messages = append(e.messages, msg)
	if len(e.messages) > window {
		e.messages = e.messages[len(e.messages)-window:]
	}
	e.expires = time.Now().Add(ttl)
	b.data[key] = e

	out := make([]models.Message, len(e.messages))
	copy(out, e.messages)
	return out, nil
}

func (b *InMemoryBackend) Clear(ctx context.Context, prefix, companyID, userID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, memKey(prefix, companyID, userID))
	return nil
}

func (b *InMemoryBackend) Count(ctx context.Context, prefix, companyID string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	prefixKey := prefix + "chat_history:" + companyID + ":"
	n := 0
	now := time.Now()
	for k, e := range b.data {
		if len(k) >= len(prefixKey) && k[:len(prefixKey)] == prefixKey && now.Before(e.expires) {
			n++
		}
	}
	return n, nil
}
