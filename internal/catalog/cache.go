// internal/catalog/cache.go
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"admissions-wizard/internal/common/logger"
	"admissions-wizard/internal/models"

	"github.com/redis/go-redis/v9"
)

const defaultCachePrefix = "catalog:program:"

// CachedFetcher is a read-through Redis cache in front of another Fetcher.
// Cache failures are logged and bypassed; not-found results are not cached.
type CachedFetcher struct {
	next   Fetcher
	rdb    redis.Cmdable
	ttl    time.Duration
	prefix string
	logger logger.Logger
}

func NewCachedFetcher(next Fetcher, rdb redis.Cmdable, ttl time.Duration, log logger.Logger) *CachedFetcher {
	return &CachedFetcher{
		next:   next,
		rdb:    rdb,
		ttl:    ttl,
		prefix: defaultCachePrefix,
		logger: log.WithFields(map[string]interface{}{"component": "catalog.cache"}),
	}
}

func (c *CachedFetcher) key(id string) string { return c.prefix + id }

func (c *CachedFetcher) FetchProgramByID(ctx context.Context, id string) (*models.Program, error) {
	id, err := normalizeID(id)
	if err != nil {
		return nil, err
	}

	raw, err := c.rdb.Get(ctx, c.key(id)).Bytes()
	switch {
	case err == nil:
		var p models.Program
		if jsonErr := json.Unmarshal(raw, &p); jsonErr == nil {
			return &p, nil
		}
		c.logger.Warn("discarding corrupt cache entry", map[string]interface{}{"programId": id})
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("program cache read failed", map[string]interface{}{
			"programId": id,
			"error":     err,
		})
	}

	p, err := c.next.FetchProgramByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if encoded, jsonErr := json.Marshal(p); jsonErr == nil {
		if setErr := c.rdb.Set(ctx, c.key(id), encoded, c.ttl).Err(); setErr != nil {
			c.logger.Warn("program cache write failed", map[string]interface{}{
				"programId": id,
				"error":     setErr,
			})
		}
	}
	return p, nil
}

// Invalidate drops the cached copy of id.
func (c *CachedFetcher) Invalidate(ctx context.Context, id string) error {
	return c.rdb.Del(ctx, c.key(id)).Err()
}
