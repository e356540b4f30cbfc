// Package cache wraps an in-process TTL cache for computed margin and
// dashboard results. Invalidation is coarse: any entity mutation drops
// every key under the affected prefixes.
package cache

import (
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Well-known key prefixes
const (
	PrefixMargin    = "margin:"
	PrefixDashboard = "dashboard:"
)

// Cache is a namespaced TTL cache
type Cache struct {
	store *gocache.Cache
}

// New creates a cache with the given default TTL
func New(ttl time.Duration) *Cache {
	return &Cache{store: gocache.New(ttl, 2*ttl)}
}

// Get returns the cached value for a key
func (c *Cache) Get(key string) (interface{}, bool) {
	return c.store.Get(key)
}

// Set stores a value under a key with the default TTL
func (c *Cache) Set(key string, value interface{}) {
	c.store.Set(key, value, gocache.DefaultExpiration)
}

// InvalidatePrefix removes every key under a prefix and returns the
// number of dropped entries.
func (c *Cache) InvalidatePrefix(prefix string) int {
	dropped := 0
	for key := range c.store.Items() {
		if strings.HasPrefix(key, prefix) {
			c.store.Delete(key)
			dropped++
		}
	}
	return dropped
}

// InvalidateComputed drops all computed margin and dashboard entries.
// Called after any entity mutation.
func (c *Cache) InvalidateComputed() int {
	return c.InvalidatePrefix(PrefixMargin) + c.InvalidatePrefix(PrefixDashboard)
}

// Flush removes everything
func (c *Cache) Flush() {
	c.store.Flush()
}
