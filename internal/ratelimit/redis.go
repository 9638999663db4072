package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yuki-disu/PPD-back/pkg/logger"
)

const redisPrefix = "estates:ratelimit:"

// RedisLimiter is a fixed-window counter shared across replicas.
// Redis failures fail open.
type RedisLimiter struct {
	client  *redis.Client
	policy  Policy
	timeout time.Duration
}

func NewRedisLimiter(ctx context.Context, addr, password string, db int, policy Policy) (*RedisLimiter, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisLimiterFromClient(client, policy), nil
}

func NewRedisLimiterFromClient(client *redis.Client, policy Policy) *RedisLimiter {
	return &RedisLimiter{
		client:  client,
		policy:  policy.normalized(),
		timeout: 250 * time.Millisecond,
	}
}

func (rl *RedisLimiter) Allow(ctx context.Context, key string) bool {
	if rl.policy.Attempts <= 0 {
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, rl.timeout)
	defer cancel()

	redisKey := redisPrefix + hashKey(key)
	counter, err := rl.client.Incr(ctx, redisKey).Result()
	if err != nil {
		logger.ErrorContext(ctx, "Redis rate limiter error", "op", "incr", "error", err)
		return true
	}
	if counter == 1 {
		if err := rl.client.Expire(ctx, redisKey, rl.policy.Window).Err(); err != nil {
			logger.ErrorContext(ctx, "Redis rate limiter error", "op", "expire", "error", err)
		}
	}
	return int(counter) <= rl.policy.Attempts
}

func (rl *RedisLimiter) Close() error {
	return rl.client.Close()
}
