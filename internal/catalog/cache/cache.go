// Package cache provides a Redis read-through cache for the catalog's
// aggregate reads. Stats and Subjects back dashboards and filter UIs, so a
// short TTL keeps them cheap without letting them drift far from the store.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"medcat/internal/catalog/models"
)

const (
	statsKey    = "catalog:stats"
	subjectsKey = "catalog:subjects"

	defaultTTL = 30 * time.Second
)

type Cache struct {
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

// Option configures the Cache.
type Option func(*Cache)

// WithTTL overrides the default 30s entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func New(client *redis.Client, logger *slog.Logger, opts ...Option) *Cache {
	c := &Cache{client: client, logger: logger, ttl: defaultTTL}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetStats returns the cached stats figure set, if present. Cache errors
// are logged and reported as misses so the store stays authoritative.
func (c *Cache) GetStats(ctx context.Context) (*models.CatalogStats, bool) {
	var stats models.CatalogStats
	if !c.get(ctx, statsKey, &stats) {
		return nil, false
	}
	return &stats, true
}

func (c *Cache) SetStats(ctx context.Context, stats *models.CatalogStats) {
	c.set(ctx, statsKey, stats)
}

// GetSubjects returns the cached ACTIVE-subject aggregate, if present.
func (c *Cache) GetSubjects(ctx context.Context) ([]models.SubjectCount, bool) {
	var subjects []models.SubjectCount
	if !c.get(ctx, subjectsKey, &subjects) {
		return nil, false
	}
	return subjects, true
}

func (c *Cache) SetSubjects(ctx context.Context, subjects []models.SubjectCount) {
	c.set(ctx, subjectsKey, subjects)
}

// Invalidate drops both aggregates. Called after every catalog mutation.
func (c *Cache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, statsKey, subjectsKey).Err(); err != nil {
		c.logger.WarnContext(ctx, "catalog cache invalidation failed", "error", err)
	}
}

func (c *Cache) get(ctx context.Context, key string, dest any) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WarnContext(ctx, "catalog cache read failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.WarnContext(ctx, "catalog cache entry corrupt", "key", key, "error", err)
		return false
	}
	return true
}

func (c *Cache) set(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.WarnContext(ctx, "catalog cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "catalog cache write failed", "key", key, "error", err)
	}
}
