package screening

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/integrity/sanctions-crosscheck/internal/domain"
)

// ErrCacheMiss is returned when no cached result exists
var ErrCacheMiss = errors.New("cache miss")

const cacheKeyPrefix = "crosscheck:lookup:"

// RedisCache stores successful source results in Redis
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisCache creates a cache with the given TTL
func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// CacheKey builds the key for a source and identifier
func CacheKey(source domain.SourceName, id domain.Identifier) string {
	return fmt.Sprintf("%s%s:%s", cacheKeyPrefix, source, id)
}

// Get returns a cached result or ErrCacheMiss
func (c *RedisCache) Get(ctx context.Context, source domain.SourceName, id domain.Identifier) (domain.SourceResult, error) {
	raw, err := c.client.Get(ctx, CacheKey(source, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.SourceResult{}, ErrCacheMiss
	}
	if err != nil {
		return domain.SourceResult{}, fmt.Errorf("get cached result: %w", err)
	}

	var result domain.SourceResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return domain.SourceResult{}, fmt.Errorf("decode cached result: %w", err)
	}
	return result, nil
}

// Set stores a result. Failed results are never cached.
func (c *RedisCache) Set(ctx context.Context, source domain.SourceName, id domain.Identifier, result domain.SourceResult) error {
	if !result.OK {
		return nil
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := c.client.Set(ctx, CacheKey(source, id), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set cached result: %w", err)
	}
	return nil
}

// Ping checks connectivity for health reporting
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
