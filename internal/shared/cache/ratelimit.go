package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter limits how often a keyed action may happen.
type RateLimiter interface {
	// Allow reports whether the action identified by key is within its
	// budget, and how long until the window resets when it is not.
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// RedisRateLimiter is a fixed-window counter backed by Redis.
type RedisRateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

// NewRedisRateLimiter creates a limiter allowing limit requests per window.
func NewRedisRateLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: prefix,
	}
}

func (r *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	bucket := fmt.Sprintf("ratelimit:%s:%s:%d", r.prefix, key, time.Now().Unix()/int64(r.window.Seconds()))

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, bucket)
	pipe.Expire(ctx, bucket, r.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("rate limit check: %w", err)
	}

	if incr.Val() > int64(r.limit) {
		ttl, err := r.client.TTL(ctx, bucket).Result()
		if err != nil {
			ttl = r.window
		}
		return false, ttl, nil
	}
	return true, 0, nil
}

// NoopRateLimiter allows everything. Used when Redis is not configured.
type NoopRateLimiter struct{}

func (NoopRateLimiter) Allow(context.Context, string) (bool, time.Duration, error) {
	return true, 0, nil
}
