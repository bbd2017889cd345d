package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsonrw"
)

// ErrMiss is returned by Get when the key is absent.
var ErrMiss = redis.Nil

// RedisCache stores BSON-encoded documents in Redis with a fixed TTL.
// BSON keeps inline attributes and timestamps identical to what the
// document store returns.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache wraps an already connected client.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
	}
}

// Get loads key into dest. Returns ErrMiss if the key doesn't exist.
func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}

	dec, err := bson.NewDecoder(bsonrw.NewBSONDocumentReader(data))
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	dec.DefaultDocumentM()

	if err := dec.Decode(dest); err != nil {
		return fmt.Errorf("failed to decode cached value: %w", err)
	}
	return nil
}

// Set stores value under key
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}) error {
	data, err := bson.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Delete removes keys from cache
func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	return c.client.Del(ctx, keys...).Err()
}

// Version reads the counter stored under key. An absent counter is 0.
func (c *RedisCache) Version(ctx context.Context, key string) (int64, error) {
	v, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// Bump increments the counter under key. Counters never expire, so entries
// stored under an older version stay unreachable until their TTL runs out.
func (c *RedisCache) Bump(ctx context.Context, key string) (int64, error) {
	return c.client.Incr(ctx, key).Result()
}
