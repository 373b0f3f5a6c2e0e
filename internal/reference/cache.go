package reference

import (
	"context"
	"errors"
	"time"

	"recruitment_backend/platform/config"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "recruitment:reference:"

// RedisCache is a Cache backed by Redis string keys.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient connects to the configured Redis instance.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// NewRedisCache creates a cache whose entries expire after ttl (0 keeps them).
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, kind Kind, name string) (int64, bool, error) {
	id, err := c.client.Get(ctx, cacheKey(kind, name)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, kind Kind, name string, id int64) error {
	return c.client.Set(ctx, cacheKey(kind, name), id, c.ttl).Err()
}

func cacheKey(kind Kind, name string) string {
	return cacheKeyPrefix + kind.String() + ":" + name
}
