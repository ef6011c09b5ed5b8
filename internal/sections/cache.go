// internal/sections/cache.go
package sections

import (
	"sync"
	"time"
)

// listCache holds assembled section lists per (user, location) key for a
// short TTL to bound store load under repeated homepage requests.
type listCache struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	entries    map[string]*listEntry
}

type listEntry struct {
	sections   []Section
	insertedAt time.Time
}

func newListCache(ttl time.Duration, maxEntries int) *listCache {
	return &listCache{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]*listEntry),
	}
}

func (c *listCache) get(key string) ([]Section, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		return nil, false
	}
	if time.Since(entry.insertedAt) > c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return entry.sections, true
}

func (c *listCache) put(key string, sections []Section) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[key] = &listEntry{sections: sections, insertedAt: time.Now()}
}

func (c *listCache) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.insertedAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.insertedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
