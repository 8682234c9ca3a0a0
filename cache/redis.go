package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// ErrRedisNotAvailable is returned when a Redis-backed component is used
// before Init succeeded.
var ErrRedisNotAvailable = errors.New("redis not available")

// RedisClient is the subset of go-redis commands the server uses. Narrowing
// the surface keeps the rate limiter mockable in tests.
type RedisClient interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

var (
	client   *redis.Client
	initOnce sync.Once
)

// Init connects to Redis. An empty address disables Redis; callers fall back
// to in-process implementations.
func Init(addr string) error {
	if addr == "" {
		return ErrRedisNotAvailable
	}

	var initErr error
	initOnce.Do(func() {
		c := redis.NewClient(&redis.Options{
			Addr:        addr,
			DialTimeout: 3 * time.Second,
			ReadTimeout: 3 * time.Second,
			PoolSize:    10,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := c.Ping(ctx).Err(); err != nil {
			initErr = err
			return
		}
		client = c
		log.WithField("addr", addr).Info("redis connected")
	})
	return initErr
}

// Client returns the shared Redis client.
func Client() (RedisClient, error) {
	if client == nil {
		return nil, ErrRedisNotAvailable
	}
	return client, nil
}

// Close shuts down the Redis connection.
func Close() {
	if client == nil {
		return
	}
	if err := client.Close(); err != nil {
		log.WithError(err).Warn("close redis")
	}
}
