package products

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheTTL bounds how long a cached product entry may serve reads.
const DefaultCacheTTL = 5 * time.Minute

// CachedRepository layers a Redis read cache over a Repository. Concurrent
// misses for the same product collapse into a single database fetch.
type CachedRepository struct {
	inner  Repository
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

// NewCachedRepository wraps repo with a Redis-backed read cache.
func NewCachedRepository(repo Repository, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedRepository {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedRepository{inner: repo, client: client, ttl: ttl, logger: logger}
}

func cacheKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}

// Get serves the product from cache when possible, falling back to the
// underlying repository. Cache failures degrade to direct reads.
func (c *CachedRepository) Get(ctx context.Context, id int64) (*Product, error) {
	key := cacheKey(id)
	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var p Product
		if err := json.Unmarshal(raw, &p); err == nil {
			return &p, nil
		}
		c.client.Del(ctx, key)
	}

	result, err, _ := c.group.Do(key, func() (interface{}, error) {
		p, err := c.inner.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if raw, err := json.Marshal(p); err == nil {
			if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil && c.logger != nil {
				c.logger.Warn("product cache set", slog.Any("error", err))
			}
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Product), nil
}

// List always reads through to the repository; listings are keyword and page
// dependent and stale rows would surface immediately in the picker.
func (c *CachedRepository) List(ctx context.Context, keyword string, page, size int) ([]Product, int, error) {
	return c.inner.List(ctx, keyword, page, size)
}

// Invalidate drops the cached entry for a product.
func (c *CachedRepository) Invalidate(ctx context.Context, id int64) {
	if err := c.client.Del(ctx, cacheKey(id)).Err(); err != nil && c.logger != nil {
		c.logger.Warn("product cache invalidate", slog.Any("error", err))
	}
}
