// Package ratelimit provides per-key rate limiting for inbound webhook
// traffic, built on golang.org/x/time/rate.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config configures the limiter applied to each key.
type Config struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size"`
	Enabled           bool    `yaml:"enabled"`
}

// DefaultConfig matches a single tenant's webhook delivery rate under
// normal load: bursts of agent replies and status updates, not sustained
// high throughput.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 10.0,
		BurstSize:         20,
		Enabled:           true,
	}
}

// Limiter manages one rate.Limiter per key (typically a tenant's
// company_id), pruning idle entries so a long-running process doesn't
// accumulate one bucket per tenant forever.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*entry
	config  Config
	maxKeys int
}

type entry struct {
	limiter    *rate.Limiter
	lastActive time.Time
}

// NewLimiter creates a rate limiter keyed by an arbitrary string.
func NewLimiter(config Config) *Limiter {
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = 10.0
	}
	if config.BurstSize <= 0 {
		config.BurstSize = int(config.RequestsPerSecond * 2)
	}
	return &Limiter{
		buckets: make(map[string]*entry),
		config:  config,
		maxKeys: 10000,
	}
}

// Allow reports whether a request for key is permitted right now,
// consuming a token if so.
func (l *Limiter) Allow(key string) bool {
	if !l.config.Enabled {
		return true
	}
	return l.get(key).AllowN(time.Now(), 1)
}

// AllowN reports whether n requests for key are permitted right now.
func (l *Limiter) AllowN(key string, n int) bool {
	if !l.config.Enabled {
		return true
	}
	return l.get(key).AllowN(time.Now(), n)
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.buckets[key]; ok {
		e.lastActive = time.Now()
		return e.limiter
	}

	if len(l.buckets) >= l.maxKeys {
		l.pruneLocked()
	}

	lim := rate.NewLimiter(rate.Limit(l.config.RequestsPerSecond), l.config.BurstSize)
	l.buckets[key] = &entry{limiter: lim, lastActive: time.Now()}
	return lim
}

// pruneLocked evicts keys idle for more than ten minutes. Must be called
// with l.mu held.
func (l *Limiter) pruneLocked() {
	cutoff := time.Now().Add(-10 * time.Minute)
	for key, e := range l.buckets {
		if e.lastActive.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

// Reset clears the bucket for a key, letting the next request start fresh.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}
