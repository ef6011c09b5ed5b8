package prefetch

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/FairForge/foresight/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestScheduler(cfg Config) *Scheduler {
	return NewScheduler(cfg, cache.NewResponseCache(cache.DefaultMaxBytes), zap.NewNop())
}

func TestScheduler_Dedup(t *testing.T) {
	t.Run("second queue for same url is a no-op", func(t *testing.T) {
		// Arrange
		s := newTestScheduler(Config{})

		// Act - hover first, idle second
		first := s.Queue("/biz/42", StrategyHoverFast, ContentBusinessPages)
		second := s.Queue("/biz/42", StrategyIdlePreload, ContentStaticAssets)

		// Assert - exactly one entry with the first-assigned priority
		assert.True(t, first)
		assert.False(t, second)

		cand := s.pendingCandidate("/biz/42")
		require.NotNil(t, cand)
		assert.Equal(t, int(StrategyHoverFast)+int(ContentBusinessPages), cand.Priority)
		assert.Equal(t, 1, s.Snapshot().Pending)
		assert.Equal(t, int64(1), s.Snapshot().Deduped)
	})

	t.Run("in-flight url is not re-queued", func(t *testing.T) {
		s := newTestScheduler(Config{})
		require.True(t, s.Queue("/biz/1", StrategyImmediate, ContentBusinessPages))

		batch := s.takeBatch()
		require.Len(t, batch, 1)

		assert.False(t, s.Queue("/biz/1", StrategyImmediate, ContentBusinessPages))
	})
}

func TestScheduler_PriorityOrdering(t *testing.T) {
	t.Run("lowest priority number drains first", func(t *testing.T) {
		// Arrange
		s := newTestScheduler(Config{MaxConcurrent: 1})
		s.Queue("/assets/app.js", StrategyIdlePreload, ContentStaticAssets)
		s.Queue("/biz/7", StrategyHoverFast, ContentBusinessPages)
		s.Queue("/search?q=pizza", StrategyScrollPredict, ContentSearchResults)

		// Act - only one slot free
		batch := s.takeBatch()

		// Assert
		require.Len(t, batch, 1)
		assert.Equal(t, "/biz/7", batch[0].URL)
	})

	t.Run("equal priority drains in queue order", func(t *testing.T) {
		s := newTestScheduler(Config{MaxConcurrent: 2})
		s.Queue("/first", StrategyHoverFast, ContentBusinessPages)
		time.Sleep(time.Millisecond)
		s.Queue("/second", StrategyHoverFast, ContentBusinessPages)

		batch := s.takeBatch()

		require.Len(t, batch, 2)
		assert.Equal(t, "/first", batch[0].URL)
		assert.Equal(t, "/second", batch[1].URL)
	})
}

func TestScheduler_ConcurrencyBound(t *testing.T) {
	t.Run("eight slots drain eight, ninth waits", func(t *testing.T) {
		// Arrange
		s := newTestScheduler(Config{MaxConcurrent: 8})
		for i := 0; i < 9; i++ {
			require.True(t, s.Queue(fmt.Sprintf("/biz/%d", i), StrategyImmediate, ContentBusinessPages))
		}

		// Act - one tick's worth of draining
		batch := s.takeBatch()

		// Assert
		assert.Len(t, batch, 8)
		snap := s.Snapshot()
		assert.Equal(t, 8, snap.Active)
		assert.Equal(t, 1, snap.Pending, "ninth candidate stays queued")

		// No slots free: next batch is empty
		assert.Empty(t, s.takeBatch())
	})

	t.Run("active never exceeds the bound under load", func(t *testing.T) {
		var inFlight, peak int64
		origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cur := atomic.AddInt64(&inFlight, 1)
			for {
				old := atomic.LoadInt64(&peak)
				if cur <= old || atomic.CompareAndSwapInt64(&peak, old, cur) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt64(&inFlight, -1)
			_, _ = w.Write([]byte("ok"))
		}))
		defer origin.Close()

		s := newTestScheduler(Config{
			BaseURL:       origin.URL,
			Tick:          5 * time.Millisecond,
			MaxConcurrent: 4,
		})
		s.Start()
		defer s.Stop()

		for i := 0; i < 20; i++ {
			s.Queue(fmt.Sprintf("/p/%d", i), StrategyImmediate, ContentBusinessPages)
		}

		assert.Eventually(t, func() bool {
			return s.Snapshot().Fetched == 20
		}, 5*time.Second, 10*time.Millisecond)
		assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(4))
	})
}

func TestScheduler_FetchOutcomes(t *testing.T) {
	t.Run("successful fetch lands in the cache with prefetch header", func(t *testing.T) {
		var gotPurpose atomic.Value
		origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPurpose.Store(r.Header.Get("X-Purpose"))
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html>biz</html>"))
		}))
		defer origin.Close()

		responseCache := cache.NewResponseCache(cache.DefaultMaxBytes)
		s := NewScheduler(Config{BaseURL: origin.URL, Tick: 5 * time.Millisecond}, responseCache, zap.NewNop())
		s.Start()
		defer s.Stop()

		s.Queue("/biz/42", StrategyHoverFast, ContentBusinessPages)

		require.Eventually(t, func() bool {
			return s.Snapshot().Fetched == 1
		}, 2*time.Second, 5*time.Millisecond)

		body, contentType, hit := responseCache.Get("/biz/42")
		require.True(t, hit)
		assert.Equal(t, "<html>biz</html>", string(body))
		assert.Equal(t, "text/html", contentType)
		assert.Equal(t, "prefetch", gotPurpose.Load())
	})

	t.Run("failed fetch is dropped, not retried", func(t *testing.T) {
		var calls int64
		origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt64(&calls, 1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer origin.Close()

		s := newTestScheduler(Config{BaseURL: origin.URL, Tick: 5 * time.Millisecond})
		s.Start()
		defer s.Stop()

		s.Queue("/broken", StrategyImmediate, ContentBusinessPages)

		require.Eventually(t, func() bool {
			return s.Snapshot().Failed == 1
		}, 2*time.Second, 5*time.Millisecond)

		// Give the loop time to (incorrectly) retry, then confirm it did not
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
		assert.Equal(t, 0, s.Snapshot().Pending)
	})

	t.Run("failure does not affect other candidates", func(t *testing.T) {
		origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/bad" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_, _ = w.Write([]byte("ok"))
		}))
		defer origin.Close()

		s := newTestScheduler(Config{BaseURL: origin.URL, Tick: 5 * time.Millisecond})
		s.Start()
		defer s.Stop()

		s.Queue("/bad", StrategyImmediate, ContentBusinessPages)
		s.Queue("/good", StrategyImmediate, ContentBusinessPages)

		assert.Eventually(t, func() bool {
			snap := s.Snapshot()
			return snap.Fetched == 1 && snap.Failed == 1
		}, 2*time.Second, 5*time.Millisecond)
	})
}

func TestScheduler_QueueOverflow(t *testing.T) {
	t.Run("full queue drops the worst candidate", func(t *testing.T) {
		// Arrange - room for two
		s := newTestScheduler(Config{MaxQueue: 2})
		require.True(t, s.Queue("/idle", StrategyIdlePreload, ContentStaticAssets))
		require.True(t, s.Queue("/hover", StrategyHoverFast, ContentBusinessPages))

		// Act - better candidate than /idle arrives
		accepted := s.Queue("/now", StrategyImmediate, ContentBusinessPages)

		// Assert - /idle was evicted to make room
		assert.True(t, accepted)
		assert.Nil(t, s.pendingCandidate("/idle"))
		assert.NotNil(t, s.pendingCandidate("/now"))
		assert.Equal(t, 2, s.Snapshot().Pending)
	})

	t.Run("newcomer worse than everything queued is rejected", func(t *testing.T) {
		s := newTestScheduler(Config{MaxQueue: 2})
		require.True(t, s.Queue("/a", StrategyImmediate, ContentBusinessPages))
		require.True(t, s.Queue("/b", StrategyHoverFast, ContentBusinessPages))

		accepted := s.Queue("/worst", StrategyIdlePreload, ContentStaticAssets)

		assert.False(t, accepted)
		assert.Equal(t, 2, s.Snapshot().Pending)
	})
}
