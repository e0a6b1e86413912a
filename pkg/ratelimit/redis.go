package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCounter implements Counter on a shared Redis instance, making the
// limiter correct across multiple API replicas.
type RedisCounter struct {
	client *redis.Client
}

// NewRedisCounter wraps an existing Redis client.
func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

// Incr increments the key and sets its expiry on first touch. INCR is
// atomic on the server, so concurrent requests across replicas observe
// a single consistent count per window bucket.
func (c *RedisCounter) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := c.client.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, err
		}
	}
	return count, nil
}
