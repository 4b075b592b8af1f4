// Package cache is an optional Redis read-through cache of facility records.
// A nil *Cache is valid and disables caching, so callers never branch on
// whether Redis is configured.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"facreg/internal/facility/models"
	"facreg/internal/platform/redis"
	"facreg/pkg/domain"
)

// Cache stores marshaled facility records under their canonical id. Cache
// failures are logged and treated as misses; the store stays authoritative.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// New returns nil when the client is nil.
func New(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if client == nil {
		return nil
	}
	return &Cache{client: client, ttl: ttl, logger: logger}
}

func cacheKey(key domain.FacilityKey) string {
	return "facreg:facility:" + key.String()
}

// Get returns the cached record or nil on miss.
func (c *Cache) Get(ctx context.Context, key domain.FacilityKey) *models.FacilityRecord {
	if c == nil {
		return nil
	}
	raw, err := c.client.Get(ctx, cacheKey(key)).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.logger.WarnContext(ctx, "facility cache read failed", "facility_id", key.String(), "error", err)
		}
		return nil
	}
	var rec models.FacilityRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		c.logger.WarnContext(ctx, "facility cache entry corrupt", "facility_id", key.String(), "error", err)
		return nil
	}
	return &rec
}

// Set stores the record for the configured TTL.
func (c *Cache) Set(ctx context.Context, rec models.FacilityRecord) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(rec.Key), raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "facility cache write failed", "facility_id", rec.Key.String(), "error", err)
	}
}

// Invalidate drops a single cached record, after overlay writes.
func (c *Cache) Invalidate(ctx context.Context, key domain.FacilityKey) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, cacheKey(key)).Err(); err != nil {
		c.logger.WarnContext(ctx, "facility cache invalidation failed", "facility_id", key.String(), "error", err)
	}
}

// InvalidateAll drops every cached record, after a reload completes.
func (c *Cache) InvalidateAll(ctx context.Context) {
	if c == nil {
		return
	}
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, "facreg:facility:*", 100).Result()
		if err != nil {
			c.logger.WarnContext(ctx, "facility cache flush failed", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.logger.WarnContext(ctx, "facility cache flush failed", "error", err)
				return
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}
