package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisCache is an optional Redis-backed Cache, grounded on the gateway's
// internal/cache go_redis.go. It gives the Agent Card cache a
// cross-process backend when REDIS_ADDR is set; the in-memory
// implementation remains the default (spec.md §4.1/§4.3). The Progress Bus
// does not use it: its fan-out is in-process only.
type redisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache dials addr and returns a Cache. Every key is prefixed with
// keyPrefix.
func NewRedisCache(addr, password string, db int, keyPrefix string) Cache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &redisCache{client: client, prefix: keyPrefix}
}

func (c *redisCache) key(k string) string {
	return c.prefix + k
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (c *redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.key(key), value, ttl).Err()
}

func (c *redisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.key(key)).Err()
}

func (c *redisCache) DeletePattern(ctx context.Context, prefix string) error {
	iter := c.client.Scan(ctx, 0, c.key(prefix)+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (c *redisCache) Close() error {
	return c.client.Close()
}
