package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned when a key is not present in the cache
var ErrCacheMiss = errors.New("cache miss")

// Cache provides JSON value caching with a shared key prefix and TTL
type Cache struct {
	client    *Client
	keyPrefix string
	ttl       time.Duration
}

// NewCache creates a new Cache
func NewCache(client *Client, keyPrefix string, ttl time.Duration) *Cache {
	if keyPrefix == "" {
		keyPrefix = "cache:"
	}
	return &Cache{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

// GetJSON retrieves a cached value and unmarshals it into dest
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) error {
	data, err := c.client.Get(ctx, c.keyPrefix+key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return err
	}

	return json.Unmarshal([]byte(data), dest)
}

// SetJSON marshals value and stores it under key with the cache TTL
func (c *Cache) SetJSON(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, c.keyPrefix+key, string(data), c.ttl)
}
