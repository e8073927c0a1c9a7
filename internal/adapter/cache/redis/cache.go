// Package redis stores the last good recommendation response per student
// profile so a later outage can still be answered.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/internship-recommender/internal/adapter/observability"
	"github.com/fairyhunter13/internship-recommender/internal/domain"
)

const keyPrefix = "recommendations:v1:"

// Cache implements domain.RecommendationCache on go-redis.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ domain.RecommendationCache = (*Cache)(nil)

// New wraps rdb. A non-positive ttl keeps entries forever.
func New(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

// Get returns the cached response for key, or domain.ErrNotFound.
func (c *Cache) Get(ctx context.Context, key string) (*domain.RecommendationResponse, error) {
	b, err := c.rdb.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.ObserveCacheLookup("miss")
		return nil, fmt.Errorf("%w: cache key %s", domain.ErrNotFound, key)
	}
	if err != nil {
		observability.ObserveCacheLookup("error")
		return nil, fmt.Errorf("op=redis.Cache.Get: %w", err)
	}
	var resp domain.RecommendationResponse
	if err := json.Unmarshal(b, &resp); err != nil {
		observability.ObserveCacheLookup("error")
		// a corrupt entry behaves like a miss next time
		_ = c.rdb.Del(ctx, keyPrefix+key).Err()
		return nil, fmt.Errorf("op=redis.Cache.Get: %w", err)
	}
	observability.ObserveCacheLookup("hit")
	return &resp, nil
}

// Put stores resp under key with the configured TTL.
func (c *Cache) Put(ctx context.Context, key string, resp *domain.RecommendationResponse) error {
	if resp == nil {
		return fmt.Errorf("%w: nil response", domain.ErrInvalidArgument)
	}
	b, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("op=redis.Cache.Put: %w", err)
	}
	if err := c.rdb.Set(ctx, keyPrefix+key, b, c.ttl).Err(); err != nil {
		return fmt.Errorf("op=redis.Cache.Put: %w", err)
	}
	return nil
}

// Ping checks the connection for readiness probes.
func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
