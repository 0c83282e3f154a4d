// Package memcache implements the record cache in process memory,
// backed by patrickmn/go-cache. It serves single-node deployments and
// tests where running Redis would be overkill.
package memcache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"guidd/internal/guid/domain"
)

const defaultCleanupInterval = 10 * time.Minute

// Cache is an in-process record cache with per-entry expiry.
type Cache struct {
	cache *gocache.Cache
}

// New creates an in-process cache. cleanupInterval controls how often
// expired entries are swept; go-cache already refuses to return expired
// entries on Get, so the sweep only bounds memory.
func New(cleanupInterval time.Duration) *Cache {
	if cleanupInterval <= 0 {
		cleanupInterval = defaultCleanupInterval
	}
	return &Cache{
		cache: gocache.New(gocache.NoExpiration, cleanupInterval),
	}
}

// Get retrieves the cached record under key.
func (c *Cache) Get(_ context.Context, key string) (*domain.Record, bool) {
	value, found := c.cache.Get(key)
	if !found {
		return nil, false
	}
	rec, ok := value.(*domain.Record)
	if !ok {
		return nil, false
	}
	return rec, true
}

// Set stores the record with the given TTL. Non-positive TTLs are
// dropped: a dead record must not enter the cache.
func (c *Cache) Set(_ context.Context, key string, rec *domain.Record, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.cache.Set(key, rec, ttl)
}

// Delete removes the record under key.
func (c *Cache) Delete(_ context.Context, key string) {
	c.cache.Delete(key)
}

// Close releases nothing; go-cache's janitor stops when the cache is
// garbage collected.
func (c *Cache) Close() error { return nil }
