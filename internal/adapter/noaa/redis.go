package noaa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/space-weather-etl/internal/domain"
	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "space_weather:feed:"

// RedisCache stores feeds in Redis with a per-key expiry, so several service
// replicas share one upstream fetch per TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisCache creates a Redis-backed feed cache.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, prefix: defaultRedisPrefix}
}

func (c *RedisCache) Get(ctx context.Context, key string) (domain.RawFeed, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.RawFeed{}, false, nil
	}
	if err != nil {
		return domain.RawFeed{}, false, fmt.Errorf("redis get: %w", err)
	}

	var feed domain.RawFeed
	if err := json.Unmarshal(data, &feed); err != nil {
		return domain.RawFeed{}, false, fmt.Errorf("decode cached feed: %w", err)
	}
	return feed, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, feed domain.RawFeed) error {
	data, err := json.Marshal(feed)
	if err != nil {
		return fmt.Errorf("encode feed: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Clear deletes every key under the cache prefix.
func (c *RedisCache) Clear(ctx context.Context) error {
	keys, err := c.client.Keys(ctx, c.prefix+"*").Result()
	if err != nil {
		return fmt.Errorf("redis keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// CheckReadiness pings Redis.
func (c *RedisCache) CheckReadiness(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
