// Package ratelimit provides the fixed-window request limiter used by the
// edge middleware. The interface is injected so handlers and tests never
// depend on a concrete backing store.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"pollboard-backend/cache"
)

// Limiter reports whether a request identified by key may proceed. Errors are
// backend failures, not rejections; the middleware fails open on them.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// window is one fixed-window counter.
type window struct {
	count     int
	resetTime time.Time
}

// MemoryLimiter is a process-local fixed-window limiter. Counts are not
// shared across processes; behind a multi-process deployment each process
// counts independently.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	now     func() time.Time

	lastSweep time.Time
}

// NewMemoryLimiter builds a limiter allowing limit requests per key per
// period.
func NewMemoryLimiter(limit int, period time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
	}
}

// Allow consumes one slot for key within the current window.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweepLocked(now)

	w, ok := l.windows[key]
	if !ok || now.After(w.resetTime) {
		l.windows[key] = &window{count: 1, resetTime: now.Add(l.period)}
		return true, nil
	}

	if w.count >= l.limit {
		return false, nil
	}
	w.count++
	return true, nil
}

// sweepLocked drops expired windows at most once per period so the map does
// not grow with one entry per IP ever seen.
func (l *MemoryLimiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < l.period {
		return
	}
	l.lastSweep = now
	for key, w := range l.windows {
		if now.After(w.resetTime) {
			delete(l.windows, key)
		}
	}
}

// RedisLimiter implements the same fixed-window semantics on Redis INCR +
// EXPIRE, shared across processes.
type RedisLimiter struct {
	client cache.RedisClient
	prefix string
	limit  int
	period time.Duration
}

// NewRedisLimiter builds a Redis-backed limiter.
func NewRedisLimiter(client cache.RedisClient, prefix string, limit int, period time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, limit: limit, period: period}
}

// Allow increments the window counter for key. The first increment of a
// window arms its expiry.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.client == nil {
		return false, cache.ErrRedisNotAvailable
	}

	redisKey := "rate_limit:" + l.prefix + ":" + key
	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.period).Err(); err != nil {
			return false, err
		}
	}
	return count <= int64(l.limit), nil
}
