package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryLimiterWindow(t *testing.T) {
	limiter := NewMemoryLimiter(100, 15*time.Minute)
	ctx := context.Background()

	for i := 1; i <= 100; i++ {
		allowed, err := limiter.Allow(ctx, "1.2.3.4")
		assert.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i)
	}

	allowed, err := limiter.Allow(ctx, "1.2.3.4")
	assert.NoError(t, err)
	assert.False(t, allowed, "101st request must be rejected")

	// another client is unaffected
	allowed, err = limiter.Allow(ctx, "5.6.7.8")
	assert.NoError(t, err)
	assert.True(t, allowed)
}

func TestMemoryLimiterReset(t *testing.T) {
	limiter := NewMemoryLimiter(2, 15*time.Minute)
	now := time.Now()
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	allowed, _ := limiter.Allow(ctx, "ip")
	assert.True(t, allowed)
	allowed, _ = limiter.Allow(ctx, "ip")
	assert.True(t, allowed)
	allowed, _ = limiter.Allow(ctx, "ip")
	assert.False(t, allowed)

	// advance past the window: counting starts over
	now = now.Add(15*time.Minute + time.Second)
	allowed, _ = limiter.Allow(ctx, "ip")
	assert.True(t, allowed)
}

func TestMemoryLimiterSweep(t *testing.T) {
	limiter := NewMemoryLimiter(10, time.Minute)
	now := time.Now()
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		_, _ = limiter.Allow(ctx, key)
	}
	assert.Len(t, limiter.windows, 3)

	now = now.Add(2 * time.Minute)
	_, _ = limiter.Allow(ctx, "d")
	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	assert.Len(t, limiter.windows, 1, "expired windows should be swept")
}
