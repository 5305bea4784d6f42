// Package cache wraps the key-value store used as the contest scheduler's
// at-most-once throttle gate (spec §6: "GET/SETEX; only string values;
// 30-day default TTL").
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL is the high-water-mark expiry named in spec §4.8.
const DefaultTTL = 30 * 24 * time.Hour

// Cache is the narrow string get/setex interface C8 needs.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	SetEX(ctx context.Context, key, value string, ttl time.Duration) error
}

// RedisCache adapts go-redis to Cache.
type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(url string) (*RedisCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisCache{rdb: redis.NewClient(opt)}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (c *RedisCache) SetEX(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Close() error { return c.rdb.Close() }
