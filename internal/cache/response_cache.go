// internal/cache/response_cache.go
package cache

import (
	"bytes"
	"container/list"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
)

// DefaultMaxBytes is the default response cache budget.
const DefaultMaxBytes = 100 * 1024 * 1024 // 100MB

// compressThreshold is the body size above which entries are stored
// gzip-compressed. Small bodies are not worth the CPU.
const compressThreshold = 4 * 1024

// ResponseEntry is one cached HTTP response body.
type ResponseEntry struct {
	URL         string
	ContentType string
	body        []byte
	compressed  bool
	storedSize  int64
	InsertedAt  time.Time
	TTL         time.Duration
	LastAccess  time.Time
}

// Expired reports whether the entry's TTL has elapsed.
func (e *ResponseEntry) Expired(now time.Time) bool {
	return e.TTL > 0 && now.Sub(e.InsertedAt) > e.TTL
}

// ResponseCache is a byte-budgeted LRU cache for prefetched HTTP responses.
// When cumulative stored size exceeds the budget, least recently used
// entries are evicted until the cache is back under it.
type ResponseCache struct {
	mu           sync.Mutex
	maxBytes     int64
	currentBytes int64
	entries      map[string]*list.Element
	lruList      *list.List

	// Statistics
	hits         int64
	misses       int64
	expirations  int64
	evictions    int64
	bytesEvicted int64
}

// NewResponseCache creates a response cache with the given byte budget.
func NewResponseCache(maxBytes int64) *ResponseCache {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &ResponseCache{
		maxBytes: maxBytes,
		entries:  make(map[string]*list.Element),
		lruList:  list.New(),
	}
}

// Get returns the cached body for url, decompressing if needed. Expired
// entries count as misses and are removed on access.
func (c *ResponseCache) Get(url string) ([]byte, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.entries[url]
	if !exists {
		c.misses++
		return nil, "", false
	}

	entry := elem.Value.(*ResponseEntry)
	if entry.Expired(time.Now()) {
		c.removeLocked(elem)
		c.expirations++
		c.misses++
		return nil, "", false
	}

	c.lruList.MoveToFront(elem)
	entry.LastAccess = time.Now()
	c.hits++

	body, err := entry.decode()
	if err != nil {
		// Corrupt entry; drop it and report a miss.
		c.removeLocked(elem)
		c.misses++
		c.hits--
		return nil, "", false
	}
	return body, entry.ContentType, true
}

// Put stores a response body for url with the given TTL. Bodies larger
// than the whole budget are rejected.
func (c *ResponseCache) Put(url string, body []byte, contentType string, ttl time.Duration) error {
	stored, compressed := maybeCompress(body)
	storedSize := int64(len(stored))

	if storedSize > c.maxBytes {
		return fmt.Errorf("response cache: body size %d exceeds budget %d", storedSize, c.maxBytes)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()

	if elem, exists := c.entries[url]; exists {
		entry := elem.Value.(*ResponseEntry)
		c.currentBytes -= entry.storedSize

		c.lruList.MoveToFront(elem)
		entry.body = stored
		entry.compressed = compressed
		entry.storedSize = storedSize
		entry.ContentType = contentType
		entry.InsertedAt = now
		entry.TTL = ttl
		entry.LastAccess = now
		c.currentBytes += storedSize

		c.evictToBudgetLocked()
		return nil
	}

	entry := &ResponseEntry{
		URL:         url,
		ContentType: contentType,
		body:        stored,
		compressed:  compressed,
		storedSize:  storedSize,
		InsertedAt:  now,
		TTL:         ttl,
		LastAccess:  now,
	}

	elem := c.lruList.PushFront(entry)
	c.entries[url] = elem
	c.currentBytes += storedSize

	c.evictToBudgetLocked()
	return nil
}

// Delete removes the entry for url if present.
func (c *ResponseCache) Delete(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.entries[url]; exists {
		c.removeLocked(elem)
	}
}

// PruneExpired removes all expired entries and returns how many were
// dropped.
func (c *ResponseCache) PruneExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	pruned := 0
	for elem := c.lruList.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*ResponseEntry).Expired(now) {
			c.removeLocked(elem)
			c.expirations++
			pruned++
		}
		elem = prev
	}
	return pruned
}

// evictToBudgetLocked removes LRU entries until currentBytes <= maxBytes.
func (c *ResponseCache) evictToBudgetLocked() {
	for c.currentBytes > c.maxBytes && c.lruList.Len() > 0 {
		elem := c.lruList.Back()
		if elem == nil {
			break
		}
		entry := elem.Value.(*ResponseEntry)
		c.removeLocked(elem)
		c.evictions++
		c.bytesEvicted += entry.storedSize
	}
}

func (c *ResponseCache) removeLocked(elem *list.Element) {
	entry := elem.Value.(*ResponseEntry)
	c.lruList.Remove(elem)
	delete(c.entries, entry.URL)
	c.currentBytes -= entry.storedSize
}

// ResponseCacheStats holds cache statistics.
type ResponseCacheStats struct {
	Entries      int
	CurrentBytes int64
	MaxBytes     int64
	Hits         int64
	Misses       int64
	Expirations  int64
	Evictions    int64
	BytesEvicted int64
}

// HitRate calculates the cache hit rate.
func (s *ResponseCacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Stats returns current cache statistics.
func (c *ResponseCache) Stats() *ResponseCacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return &ResponseCacheStats{
		Entries:      c.lruList.Len(),
		CurrentBytes: c.currentBytes,
		MaxBytes:     c.maxBytes,
		Hits:         c.hits,
		Misses:       c.misses,
		Expirations:  c.expirations,
		Evictions:    c.evictions,
		BytesEvicted: c.bytesEvicted,
	}
}

// Clear removes all entries.
func (c *ResponseCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.lruList = list.New()
	c.currentBytes = 0
}

func (e *ResponseEntry) decode() ([]byte, error) {
	if !e.compressed {
		return e.body, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(e.body))
	if err != nil {
		return nil, fmt.Errorf("response cache: gzip reader: %w", err)
	}
	defer func() { _ = zr.Close() }()

	body, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("response cache: decompress: %w", err)
	}
	return body, nil
}

// maybeCompress gzips bodies above the threshold, keeping the original
// when compression does not shrink it.
func maybeCompress(body []byte) ([]byte, bool) {
	if len(body) < compressThreshold {
		return body, false
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(body); err != nil {
		return body, false
	}
	if err := zw.Close(); err != nil {
		return body, false
	}
	if buf.Len() >= len(body) {
		return body, false
	}
	return buf.Bytes(), true
}
