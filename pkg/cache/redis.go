package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/ecom-api/pkg/config"
)

// pingTimeout bounds the startup connectivity check. The rate limiter
// depends on this client, so an unreachable Redis should fail fast at
// boot rather than on the first throttled request.
const pingTimeout = 5 * time.Second

// NewRedis connects to the shared Redis instance backing the rate-limit
// counters and verifies connectivity before returning the client.
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}
