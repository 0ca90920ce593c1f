package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/cassiomorais/summitpay/internal/infrastructure/config"
	"github.com/cassiomorais/summitpay/pkg/retry"
	"github.com/redis/go-redis/v9"
)

// clientOptions maps cfg onto go-redis options. clientName shows up in
// CLIENT LIST so lease holders can be traced back to a binary.
func clientOptions(cfg *config.RedisConfig, clientName string) *redis.Options {
	return &redis.Options{
		Addr:         cfg.RedisAddr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		ClientName:   clientName,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
	}
}

// NewClient connects to Redis, retrying the initial ping with backoff.
func NewClient(ctx context.Context, cfg *config.RedisConfig, clientName string) (*redis.Client, error) {
	client := redis.NewClient(clientOptions(cfg, clientName))

	attempts := cfg.ConnectRetries
	if attempts <= 0 {
		attempts = 5
	}
	delay := cfg.ConnectRetryDelay
	if delay <= 0 {
		delay = time.Second
	}

	err := retry.Do(ctx, retry.Config{
		MaxAttempts:  uint(attempts),
		InitialDelay: delay,
		MaxDelay:     10 * delay,
	}, func() error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s after %d attempts: %w", cfg.RedisAddr(), attempts, err)
	}
	return client, nil
}
