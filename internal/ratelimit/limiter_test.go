package ratelimit

import "testing"

func TestLimiterAllowRespectsBurst(t *testing.T) {
	limiter := NewLimiter(Config{RequestsPerSecond: 10, BurstSize: 3, Enabled: true})

	for i := 0; i < 3; i++ {
		if !limiter.Allow("user1") {
			t.Errorf("request %d should be allowed within burst", i)
		}
	}
	if limiter.Allow("user1") {
		t.Error("request beyond burst should be denied")
	}
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	limiter := NewLimiter(Config{RequestsPerSecond: 10, BurstSize: 1, Enabled: true})

	if !limiter.Allow("user1") {
		t.Error("user1 first request should be allowed")
	}
	if limiter.Allow("user1") {
		t.Error("user1 should be rate limited on second request")
	}
	if !limiter.Allow("user2") {
		t.Error("user2 has its own bucket and should be allowed")
	}
}

func TestLimiterDisabledAlwaysAllows(t *testing.T) {
	limiter := NewLimiter(Config{RequestsPerSecond: 1, BurstSize: 1, Enabled: false})

	for i := 0; i < 50; i++ {
		if !limiter.Allow("user1") {
			t.Error("disabled limiter should always allow")
		}
	}
}

func TestLimiterReset(t *testing.T) {
	limiter := NewLimiter(Config{RequestsPerSecond: 10, BurstSize: 1, Enabled: true})

	limiter.Allow("user1")
	if limiter.Allow("user1") {
		t.Error("should be rate limited before reset")
	}

	limiter.Reset("user1")
	if !limiter.Allow("user1") {
		t.Error("should be allowed again after reset")
	}
}

func TestLimiterAllowNConsumesMultipleTokens(t *testing.T) {
	limiter := NewLimiter(Config{RequestsPerSecond: 10, BurstSize: 5, Enabled: true})

	if !limiter.AllowN("user1", 5) {
		t.Error("should allow consuming the full burst at once")
	}
	if limiter.AllowN("user1", 1) {
		t.Error("should deny once the burst is exhausted")
	}
}

func TestLimiterZeroConfigUsesDefaults(t *testing.T) {
	limiter := NewLimiter(Config{Enabled: true})

	if !limiter.Allow("user1") {
		t.Error("zero-config limiter should apply defaults and allow the first request")
	}
}

func TestLimiterPrunesIdleKeysUnderPressure(t *testing.T) {
	limiter := NewLimiter(Config{RequestsPerSecond: 10, BurstSize: 3, Enabled: true})
	limiter.maxKeys = 4

	for i := 0; i < 10; i++ {
		key := string(rune('a' + i))
		limiter.Allow(key)
	}

	// Pruning only evicts keys idle past the cutoff, so recent keys created
	// during this loop are expected to remain; the call must simply not panic
	// and must keep serving new keys.
	if !limiter.Allow("brand-new-key") {
		t.Error("brand new key should be allowed after a prune cycle")
	}
}
