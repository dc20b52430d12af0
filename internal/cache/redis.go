package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/safecity/dispatch/internal/shared/config"
)

// Client is a read-through JSON cache over Redis. Misses and Redis
// failures both fall through to the database; the cache never blocks a
// request on an error.
type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

// New connects to Redis. Returns nil, nil when caching is disabled.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return &Client{rdb: rdb, ttl: ttl}, nil
}

// Get loads a cached JSON value into dest. Returns false on miss or
// any Redis error.
func (c *Client) Get(ctx context.Context, key string, dest any) bool {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.rdb.Del(ctx, key)
		return false
	}
	return true
}

// Set stores a JSON value under key with the configured TTL
func (c *Client) Set(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Printf("cache set failed: key=%s err=%v", key, err)
	}
}

// Invalidate drops the given keys
func (c *Client) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		log.Printf("cache invalidate failed: err=%v", err)
	}
}

// Close releases the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Health checks the Redis connection
func (c *Client) Health(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
