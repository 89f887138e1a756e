package middleware

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisLimiter is a fixed window limiter shared by every instance through
// Redis
type RedisLimiter struct {
	redis  *redis.Client
	config *RateLimitConfig
	prefix string
}

// NewRedisLimiter creates a new Redis-backed limiter
func NewRedisLimiter(redisClient *redis.Client, config *RateLimitConfig, prefix string) *RedisLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	if prefix == "" {
		prefix = "quill:ratelimit"
	}

	return &RedisLimiter{
		redis:  redisClient,
		config: config,
		prefix: prefix,
	}
}

// Allow counts the request in the current window
func (rl *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	redisKey := fmt.Sprintf("%s:%s", rl.prefix, key)

	pipe := rl.redis.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttl := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("redis error: %w", err)
	}

	resetIn := ttl.Val()
	// A key without expiry starts a new window
	if resetIn < 0 {
		if err := rl.redis.Expire(ctx, redisKey, rl.config.WindowDuration).Err(); err != nil {
			return Decision{}, fmt.Errorf("redis error: %w", err)
		}
		resetIn = rl.config.WindowDuration
	}

	count := int(incr.Val())
	remaining := rl.config.RequestsPerWindow - count
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   count <= rl.config.RequestsPerWindow,
		Limit:     rl.config.RequestsPerWindow,
		Remaining: remaining,
		ResetIn:   resetIn,
	}, nil
}
