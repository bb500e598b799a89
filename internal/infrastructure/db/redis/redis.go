package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dialTimeout = 5 * time.Second

// Config holds the connection settings for the dedup store.
type Config struct {
	Addr string
	DB   int
	// Timeout bounds the startup ping. Zero means dialTimeout.
	Timeout time.Duration
}

// Connect builds a Redis client and verifies it answers before the server
// starts taking traffic. The dedup layer tolerates a Redis outage at request
// time, but a misconfigured address should surface at boot.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = dialTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
