// Package cache wraps the Redis backend used to memoize snapshot reads.
// Redis is never authoritative here: every entry can be rebuilt from the
// snapshot directory, so connection failures degrade to disk reads.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration.
type Config struct {
	Address  string
	Password string
	DB       int
}

// ErrEmptyAddress is returned when the Redis address is not configured.
var ErrEmptyAddress = errors.New("redis address is required")

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// connectionTimeout bounds the startup connection check so an unreachable
// Redis cannot block service startup.
const connectionTimeout = 5 * time.Second

// NewClient creates a Redis client and verifies the connection.
func NewClient(cfg Config) (*redis.Client, error) {
	if cfg.Address == "" {
		return nil, ErrEmptyAddress
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

// Cache is the capability pair the cache-aside reader needs. Implementations
// must translate "key absent" into ErrMiss so callers can tell misses from
// backend failures.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// RedisCache implements Cache on a go-redis client.
type RedisCache struct {
	client redis.UniversalClient
}

// NewRedisCache wraps a connected Redis client.
func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client}
}

// Get fetches a cached value, returning ErrMiss when the key is absent.
func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, nil
}

// Set stores a value with the given expiry.
func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
