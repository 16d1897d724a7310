package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisLimiter is a fixed-window counter shared across server instances.
// One INCR+EXPIRE pipeline per request; the window starts when a key's
// first request lands.
type RedisLimiter struct {
	client    *redis.Client
	perMinute int
	burst     int
	window    time.Duration
	prefix    string
}

// NewRedisLimiter creates a Redis-backed limiter.
func NewRedisLimiter(client *redis.Client, perMinute, burst int) *RedisLimiter {
	return &RedisLimiter{
		client:    client,
		perMinute: perMinute,
		burst:     burst,
		window:    time.Minute,
		prefix:    "ratelimit",
	}
}

// Allow counts the request against the key's current window.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)

	pipe := l.client.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("rate limit check: %w", err)
	}

	max := int64(l.perMinute + l.burst)
	count := incr.Val()

	d := Decision{Limit: l.perMinute}
	if count <= max {
		d.Allowed = true
		d.Remaining = int(max - count)
		return d, nil
	}

	ttl, err := l.client.TTL(ctx, redisKey).Result()
	if err == nil && ttl > 0 {
		d.RetryAfter = ttl
	} else {
		d.RetryAfter = l.window
	}
	return d, nil
}

// Reset clears a key's window.
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, fmt.Sprintf("%s:%s", l.prefix, key)).Err()
}
