package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const rateLimitPrefix = "ratelimit:chat:"

// RedisRateLimiter is a fixed one minute window counter per key.
type RedisRateLimiter struct {
	client    *redis.Client
	perMinute int
	burst     int
	now       func() time.Time
}

// NewRedisRateLimiter create RedisRateLimiter
func NewRedisRateLimiter(client *redis.Client, perMinute, burst int) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:    client,
		perMinute: perMinute,
		burst:     burst,
		now:       time.Now,
	}
}

// Allow counts one hit for key and reports whether it stays within the window limit
func (r *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	window := r.now().Truncate(time.Minute)
	fullKey := fmt.Sprintf("%s%s:%d", rateLimitPrefix, key, window.Unix())

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.Expire(ctx, fullKey, time.Minute+5*time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to execute rate limit check: %w", err)
	}

	return incr.Val() <= int64(r.perMinute+r.burst), nil
}
