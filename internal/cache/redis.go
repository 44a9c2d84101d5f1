// Package cache provides the local persistent store the gateway falls back
// to when the remote database is unreachable. Each logical collection is
// serialized whole as a JSON array under a stable key, so the on-disk layout
// survives process restarts and can be inspected with plain redis tooling.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/johnmangawang-git/mci-delivery-tracker/config"
)

// ErrCacheMiss is returned when a volatile read-cache key is absent.
var ErrCacheMiss = errors.New("key not found in cache")

// RedisCache provides the durable collection snapshots and the volatile
// read cache using Redis.
type RedisCache struct {
	client  *redis.Client
	enabled bool
}

// Disabled returns a cache that serves empty snapshots and drops writes.
func Disabled() *RedisCache {
	return &RedisCache{enabled: false}
}

// NewRedisCache creates a new Redis cache.
func NewRedisCache(cfg config.RedisConfig) (*RedisCache, error) {
	if !cfg.Enabled {
		return &RedisCache{enabled: false}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}

	return &RedisCache{
		client:  client,
		enabled: true,
	}, nil
}

// ReadCollection loads a whole collection snapshot into out. An absent or
// disabled snapshot decodes as an empty array, never an error.
func (c *RedisCache) ReadCollection(ctx context.Context, key string, out interface{}) error {
	if !c.enabled {
		return json.Unmarshal([]byte("[]"), out)
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return json.Unmarshal([]byte("[]"), out)
		}
		return errors.Wrap(err, "failed to read collection snapshot")
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, "failed to unmarshal collection snapshot")
	}
	return nil
}

// WriteCollection serializes the whole collection and stores it durably
// under its stable key. Last writer wins at collection granularity.
func (c *RedisCache) WriteCollection(ctx context.Context, key string, v interface{}) error {
	if !c.enabled {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "failed to marshal collection snapshot")
	}
	if err := c.client.Set(ctx, key, data, 0).Err(); err != nil {
		return errors.Wrap(err, "failed to write collection snapshot")
	}
	return nil
}

// Get retrieves a volatile read-cache value.
func (c *RedisCache) Get(ctx context.Context, key string, value interface{}) error {
	if !c.enabled {
		return ErrCacheMiss
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return ErrCacheMiss
		}
		return errors.Wrap(err, "failed to get value from Redis")
	}
	if err := json.Unmarshal(data, value); err != nil {
		return errors.Wrap(err, "failed to unmarshal cached value")
	}
	return nil
}

// Set stores a volatile read-cache value with an expiration.
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if !c.enabled {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "failed to marshal value for caching")
	}
	if err := c.client.Set(ctx, key, data, expiration).Err(); err != nil {
		return errors.Wrap(err, "failed to set value in Redis")
	}
	return nil
}

// Delete removes keys, typically to invalidate read caches after a mutation.
func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if !c.enabled || len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return errors.Wrap(err, "failed to delete cache keys")
	}
	return nil
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	if !c.enabled || c.client == nil {
		return nil
	}
	return c.client.Close()
}
