package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisExchangeCache shares exchange results between processes.
type RedisExchangeCache struct {
	client redis.Cmdable
	prefix string
}

// NewRedisExchangeCache creates a cache storing JSON grants under prefix.
func NewRedisExchangeCache(client redis.Cmdable, prefix string) *RedisExchangeCache {
	return &RedisExchangeCache{client: client, prefix: prefix}
}

// Get implements ExchangeCache.
func (c *RedisExchangeCache) Get(ctx context.Context, key string) (*Grant, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("exchange cache get: %w", err)
	}

	var g Grant
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, false, fmt.Errorf("exchange cache decode: %w", err)
	}
	return &g, true, nil
}

// Set implements ExchangeCache.
func (c *RedisExchangeCache) Set(ctx context.Context, key string, grant *Grant, ttl time.Duration) error {
	if grant == nil {
		return nil
	}
	data, err := json.Marshal(grant)
	if err != nil {
		return fmt.Errorf("exchange cache encode: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("exchange cache set: %w", err)
	}
	return nil
}
