package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/FairForge/foresight/internal/behavior"
	"github.com/FairForge/foresight/internal/cache"
	"github.com/FairForge/foresight/internal/config"
	"github.com/FairForge/foresight/internal/prefetch"
	"github.com/FairForge/foresight/internal/sections"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestServer wires a full server on in-memory backends. The prefetch
// drain loop is not started so queued candidates stay observable.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := zap.NewNop()

	store := sections.NewMemoryStore()
	store.SeedSampleData()

	responseCache := cache.NewResponseCache(1024 * 1024)
	scheduler := prefetch.NewScheduler(prefetch.Config{}, responseCache, logger)
	t.Cleanup(scheduler.Stop)

	recorder := behavior.NewRecorder(behavior.NewMemoryProfileStore(),
		behavior.RecorderConfig{PersistDebounce: time.Hour}, logger)
	generator := sections.NewGenerator(store, sections.Config{}, logger)

	return NewServer(config.Default(), Deps{
		Recorder:      recorder,
		Generator:     generator,
		Scheduler:     scheduler,
		ResponseCache: responseCache,
	}, logger)
}

func postJSON(t *testing.T, handler http.Handler, path, session string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set("X-Session-ID", session)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func getJSON(t *testing.T, handler http.Handler, path, session string, out interface{}) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if session != "" {
		req.Header.Set("X-Session-ID", session)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if out != nil && w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
	}
	return w
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	t.Run("health reports healthy", func(t *testing.T) {
		var body map[string]interface{}
		w := getJSON(t, s.Handler(), "/health", "", &body)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("ready reports ready", func(t *testing.T) {
		w := getJSON(t, s.Handler(), "/ready", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("metrics endpoint serves prometheus text", func(t *testing.T) {
		w := getJSON(t, s.Handler(), "/metrics", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestHandleEvents(t *testing.T) {
	t.Run("batch updates the session profile", func(t *testing.T) {
		// Arrange
		s := newTestServer(t)
		batch := map[string]interface{}{
			"events": []map[string]interface{}{
				{"kind": "page_view", "path": "/category/restaurants"},
				{"kind": "search_query", "query": "best pizza downtown"},
			},
		}

		// Act
		w := postJSON(t, s.Handler(), "/api/v1/events", "sess-1", batch)

		// Assert
		assert.Equal(t, http.StatusAccepted, w.Code)
		profile := s.recorder.Profile("sess-1")
		require.NotNil(t, profile)
		assert.Contains(t, profile.SearchPatterns, "best pizza downtown")
		assert.Contains(t, profile.FrequentPaths, "/category/restaurants")
	})

	t.Run("hover and click events queue prefetches", func(t *testing.T) {
		// Arrange
		s := newTestServer(t)
		batch := map[string]interface{}{
			"events": []map[string]interface{}{
				{"kind": "hover", "target": "/biz/b1"},
				{"kind": "click", "href": "/search?q=sushi"},
			},
		}

		// Act
		w := postJSON(t, s.Handler(), "/api/v1/events", "sess-2", batch)

		// Assert
		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, 2, s.scheduler.Snapshot().Pending)
	})

	t.Run("missing session id mints one", func(t *testing.T) {
		s := newTestServer(t)
		batch := map[string]interface{}{
			"events": []map[string]interface{}{
				{"kind": "page_view", "path": "/"},
			},
		}

		w := postJSON(t, s.Handler(), "/api/v1/events", "", batch)

		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Session-ID"))
	})

	t.Run("invalid JSON is rejected", func(t *testing.T) {
		s := newTestServer(t)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/events",
			bytes.NewReader([]byte("{not json")))
		w := httptest.NewRecorder()

		s.Handler().ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("empty batch is rejected", func(t *testing.T) {
		s := newTestServer(t)
		w := postJSON(t, s.Handler(), "/api/v1/events", "sess-3",
			map[string]interface{}{"events": []map[string]interface{}{}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown event kinds are skipped", func(t *testing.T) {
		s := newTestServer(t)
		batch := map[string]interface{}{
			"events": []map[string]interface{}{
				{"kind": "page_view", "path": "/a"},
				{"kind": "mystery"},
			},
		}

		w := postJSON(t, s.Handler(), "/api/v1/events", "sess-4", batch)

		assert.Equal(t, http.StatusAccepted, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, float64(1), body["accepted"])
	})
}

func TestHandleHomepage(t *testing.T) {
	t.Run("returns ordered sections with a variant", func(t *testing.T) {
		// Arrange
		s := newTestServer(t)
		batch := map[string]interface{}{
			"events": []map[string]interface{}{
				{"kind": "search_query", "query": "pizza restaurant"},
			},
		}
		postJSON(t, s.Handler(), "/api/v1/events", "sess-home", batch)

		// Act
		var body struct {
			Variant  string `json:"variant"`
			Sections []struct {
				Kind     string `json:"kind"`
				Priority int    `json:"priority"`
			} `json:"sections"`
		}
		w := getJSON(t, s.Handler(), "/api/v1/homepage?location=downtown", "sess-home", &body)

		// Assert
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, []string{"A", "B"}, body.Variant)
		require.NotEmpty(t, body.Sections)
		assert.Equal(t, "hero", body.Sections[0].Kind)
	})

	t.Run("anonymous visitor still gets sections", func(t *testing.T) {
		s := newTestServer(t)

		var body struct {
			Sections []struct {
				Kind string `json:"kind"`
			} `json:"sections"`
		}
		w := getJSON(t, s.Handler(), "/api/v1/homepage", "fresh-visitor", &body)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, body.Sections)
	})
}

func TestHandlePreferences(t *testing.T) {
	// Arrange
	s := newTestServer(t)
	batch := map[string]interface{}{
		"events": []map[string]interface{}{
			{"kind": "search_query", "query": "cheap pizza delivery downtown"},
		},
	}
	postJSON(t, s.Handler(), "/api/v1/events", "sess-pref", batch)

	// Act
	var body struct {
		Confidence    float64 `json:"confidence"`
		BusinessTypes []struct {
			Label  string  `json:"label"`
			Weight float64 `json:"weight"`
		} `json:"business_types"`
	}
	w := getJSON(t, s.Handler(), "/api/v1/preferences", "sess-pref", &body)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, body.BusinessTypes)
	assert.Equal(t, "restaurants", body.BusinessTypes[0].Label)
	assert.Greater(t, body.Confidence, 0.0)
}

func TestHandleBeacon(t *testing.T) {
	s := newTestServer(t)

	t.Run("valid beacon is accepted", func(t *testing.T) {
		w := postJSON(t, s.Handler(), "/api/v1/beacon", "",
			map[string]interface{}{"ttfb_ms": 120})
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("invalid beacon is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/beacon",
			bytes.NewReader([]byte("nope")))
		w := httptest.NewRecorder()

		s.Handler().ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandlePrefetchStats(t *testing.T) {
	s := newTestServer(t)
	s.scheduler.Queue("/biz/b1", prefetch.StrategyHoverFast, prefetch.ContentBusinessPages)

	var body struct {
		Scheduler struct {
			Pending int `json:"pending"`
		} `json:"scheduler"`
		Cache struct {
			MaxBytes int64 `json:"max_bytes"`
		} `json:"cache"`
	}
	w := getJSON(t, s.Handler(), "/api/v1/prefetch/stats", "", &body)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, body.Scheduler.Pending)
	assert.Equal(t, int64(1024*1024), body.Cache.MaxBytes)
}

func TestClassifyContent(t *testing.T) {
	tests := []struct {
		url  string
		want prefetch.ContentClass
	}{
		{"/biz/luigis-pizza", prefetch.ContentBusinessPages},
		{"/search?q=sushi", prefetch.ContentSearchResults},
		{"/category/restaurants", prefetch.ContentCategoryPages},
		{"/images/hero.webp", prefetch.ContentImages},
		{"/static/app.js", prefetch.ContentStaticAssets},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classifyContent(tt.url), tt.url)
	}
}
