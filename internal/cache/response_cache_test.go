package cache

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseCache_Basic(t *testing.T) {
	t.Run("put and get", func(t *testing.T) {
		// Arrange
		c := NewResponseCache(1024)

		// Act
		err := c.Put("/biz/1", []byte("hello"), "text/html", time.Minute)
		require.NoError(t, err)

		body, contentType, hit := c.Get("/biz/1")

		// Assert
		assert.True(t, hit)
		assert.Equal(t, "hello", string(body))
		assert.Equal(t, "text/html", contentType)
	})

	t.Run("miss on unknown url", func(t *testing.T) {
		c := NewResponseCache(1024)

		_, _, hit := c.Get("/missing")

		assert.False(t, hit)
		assert.Equal(t, int64(1), c.Stats().Misses)
	})

	t.Run("put replaces existing entry", func(t *testing.T) {
		c := NewResponseCache(1024)

		require.NoError(t, c.Put("/a", []byte("v1"), "text/html", time.Minute))
		require.NoError(t, c.Put("/a", []byte("v2-longer"), "text/html", time.Minute))

		body, _, hit := c.Get("/a")
		require.True(t, hit)
		assert.Equal(t, "v2-longer", string(body))
		assert.Equal(t, int64(len("v2-longer")), c.Stats().CurrentBytes)
	})

	t.Run("body larger than budget is rejected", func(t *testing.T) {
		c := NewResponseCache(10)

		err := c.Put("/big", bytes.Repeat([]byte("x"), 11), "text/html", time.Minute)

		assert.Error(t, err)
		assert.Equal(t, 0, c.Stats().Entries)
	})
}

func TestResponseCache_TTL(t *testing.T) {
	t.Run("expired entry is a miss and is removed", func(t *testing.T) {
		c := NewResponseCache(1024)
		require.NoError(t, c.Put("/a", []byte("data"), "text/html", time.Millisecond))

		time.Sleep(5 * time.Millisecond)
		_, _, hit := c.Get("/a")

		assert.False(t, hit)
		stats := c.Stats()
		assert.Equal(t, 0, stats.Entries)
		assert.Equal(t, int64(1), stats.Expirations)
	})

	t.Run("prune removes expired entries in bulk", func(t *testing.T) {
		c := NewResponseCache(1024)
		require.NoError(t, c.Put("/a", []byte("a"), "text/html", time.Millisecond))
		require.NoError(t, c.Put("/b", []byte("b"), "text/html", time.Hour))

		time.Sleep(5 * time.Millisecond)
		pruned := c.PruneExpired()

		assert.Equal(t, 1, pruned)
		_, _, hit := c.Get("/b")
		assert.True(t, hit)
	})
}

func TestResponseCache_Eviction(t *testing.T) {
	t.Run("evicts least recently used until under budget", func(t *testing.T) {
		// Arrange - budget fits two 4-byte bodies
		c := NewResponseCache(8)
		require.NoError(t, c.Put("/a", []byte("aaaa"), "text/html", time.Minute))
		require.NoError(t, c.Put("/b", []byte("bbbb"), "text/html", time.Minute))

		// Touch /a so /b becomes least recently used
		_, _, hit := c.Get("/a")
		require.True(t, hit)

		// Act - inserting /c must evict /b
		require.NoError(t, c.Put("/c", []byte("cccc"), "text/html", time.Minute))

		// Assert
		_, _, hitA := c.Get("/a")
		_, _, hitB := c.Get("/b")
		_, _, hitC := c.Get("/c")
		assert.True(t, hitA, "recently used entry survives")
		assert.False(t, hitB, "LRU entry evicted")
		assert.True(t, hitC)

		stats := c.Stats()
		assert.LessOrEqual(t, stats.CurrentBytes, stats.MaxBytes)
		assert.Equal(t, int64(1), stats.Evictions)
		assert.Equal(t, int64(4), stats.BytesEvicted)
	})

	t.Run("budget holds across many inserts", func(t *testing.T) {
		c := NewResponseCache(100)

		for i := 0; i < 50; i++ {
			require.NoError(t, c.Put(fmt.Sprintf("/p/%d", i), bytes.Repeat([]byte("z"), 10), "text/html", time.Minute))
			stats := c.Stats()
			assert.LessOrEqual(t, stats.CurrentBytes, stats.MaxBytes)
		}

		assert.Equal(t, 10, c.Stats().Entries)
	})
}

func TestResponseCache_Compression(t *testing.T) {
	t.Run("large compressible body roundtrips", func(t *testing.T) {
		// Arrange - highly repetitive body well above the threshold
		c := NewResponseCache(DefaultMaxBytes)
		body := bytes.Repeat([]byte("<div class=\"listing\">local business</div>"), 1024)

		// Act
		require.NoError(t, c.Put("/listings", body, "text/html", time.Minute))
		got, _, hit := c.Get("/listings")

		// Assert
		require.True(t, hit)
		assert.Equal(t, body, got)
		assert.Less(t, c.Stats().CurrentBytes, int64(len(body)), "stored compressed")
	})

	t.Run("small bodies are stored verbatim", func(t *testing.T) {
		c := NewResponseCache(1024)

		require.NoError(t, c.Put("/s", []byte("tiny"), "text/html", time.Minute))

		assert.Equal(t, int64(4), c.Stats().CurrentBytes)
	})
}

func TestResponseCache_Stats(t *testing.T) {
	c := NewResponseCache(1024)
	require.NoError(t, c.Put("/a", []byte("data"), "text/html", time.Minute))

	_, _, _ = c.Get("/a")
	_, _, _ = c.Get("/a")
	_, _, _ = c.Get("/miss")

	stats := c.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, float64(2.0/3.0), stats.HitRate())
}
