package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/carpoolapp/backend/internal/domain/providers"
	redisclient "github.com/carpoolapp/backend/internal/infrastructure/clients/redis"
)

// RedisAdapter is the shared suggestion cache tier. Values are opaque bytes; callers own
// the encoding.
type RedisAdapter struct {
	rdb *redis.Client
}

var _ providers.CacheProvider = (*RedisAdapter)(nil)

func NewRedisAdapter(client *redisclient.Client) *RedisAdapter {
	return &RedisAdapter{rdb: client.Client()}
}

// Get returns providers.ErrCacheMiss for absent or expired keys
func (a *RedisAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := a.rdb.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, providers.ErrCacheMiss
	case err != nil:
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, nil
}

// Set writes value with a TTL in whole seconds; zero keeps the key until deleted
func (a *RedisAdapter) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	ttl := time.Duration(expirationSeconds) * time.Second
	if err := a.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (a *RedisAdapter) Delete(ctx context.Context, key string) error {
	if err := a.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}
