package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/carpoolapp/backend/pkg/config"
	"github.com/carpoolapp/backend/pkg/retry"
)

// Client represents a Redis client
type Client struct {
	client *redis.Client
}

// NewClient creates a new Redis client and waits for the server to answer a ping
func NewClient(ctx context.Context, cfg *config.RedisConfig) (*Client, error) {
	// the shared cache is optional, so give up on a dead server quickly
	pingRetry := retry.DefaultConfig()
	pingRetry.MaxAttempts = 3
	pingRetry.InitialDelay = 200 * time.Millisecond
	pingRetry.MaxDelay = time.Second
	pingRetry.MaxTotalTimeout = 5 * time.Second

	return NewClientWithOptions(ctx, &redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	}, pingRetry)
}

// NewClientWithOptions allows overriding connection options and the ping retry policy (used for tests).
func NewClientWithOptions(ctx context.Context, opts *redis.Options, pingRetry retry.Config) (*Client, error) {
	client := redis.NewClient(opts)

	err := retry.DoWithLog(ctx, pingRetry, "redis", func() error {
		return client.Ping(ctx).Err()
	}, func(attempt int, err error, nextDelay time.Duration) {
		log.Warn().Err(err).Int("attempt", attempt).Dur("next_delay", nextDelay).Str("addr", opts.Addr).Msg("redis ping failed")
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{client: client}, nil
}

// Client returns the underlying Redis client
func (c *Client) Client() *redis.Client {
	return c.client
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

// Ping verifies the connection to Redis
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
