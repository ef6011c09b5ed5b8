// internal/api/handlers.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/FairForge/foresight/internal/behavior"
	"github.com/FairForge/foresight/internal/experiment"
	"github.com/FairForge/foresight/internal/preference"
	"github.com/FairForge/foresight/internal/prefetch"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxEventBatch bounds a single ingest request.
const maxEventBatch = 200

// eventPayload is one client-reported behavior event.
type eventPayload struct {
	Kind      string  `json:"kind"`
	Path      string  `json:"path,omitempty"`
	Query     string  `json:"query,omitempty"`
	Href      string  `json:"href,omitempty"`
	Label     string  `json:"label,omitempty"`
	Target    string  `json:"target,omitempty"`
	Offset    int     `json:"offset,omitempty"`
	Direction string  `json:"direction,omitempty"`
	Velocity  float64 `json:"velocity,omitempty"`
	Category  string  `json:"category,omitempty"`
}

type eventBatch struct {
	Events []eventPayload `json:"events"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "healthy",
		"uptime_seconds": int64(time.Since(s.startTime).Seconds()),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleEvents ingests a batch of behavior events for one session. Hover
// and click events double as prefetch triggers.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sessionKey := s.sessionKey(w, r)

	var batch eventBatch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(batch.Events) == 0 {
		s.writeError(w, http.StatusBadRequest, "no events in batch")
		return
	}
	if len(batch.Events) > maxEventBatch {
		s.writeError(w, http.StatusBadRequest,
			fmt.Sprintf("batch exceeds %d events", maxEventBatch))
		return
	}

	s.recorder.StartSession(r.Context(), sessionKey)

	accepted := 0
	for _, evt := range batch.Events {
		if s.applyEvent(sessionKey, evt) {
			accepted++
			s.metrics.EventsIngested.WithLabelValues(evt.Kind).Inc()
		}
	}

	s.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"accepted": accepted,
		"session":  sessionKey,
	})
}

// applyEvent routes one payload to the recorder and, where the event
// signals navigation intent, queues a prefetch.
func (s *Server) applyEvent(sessionKey string, evt eventPayload) bool {
	switch behavior.EventKind(evt.Kind) {
	case behavior.EventPageView:
		if evt.Path == "" {
			return false
		}
		s.recorder.RecordPageView(sessionKey, evt.Path)
	case behavior.EventSearchQuery:
		if evt.Query == "" {
			return false
		}
		s.recorder.RecordSearchQuery(sessionKey, evt.Query)
	case behavior.EventClick:
		if evt.Href == "" {
			return false
		}
		s.recorder.RecordClick(sessionKey, evt.Href, evt.Label)
		if evt.Category != "" {
			s.recorder.RecordCategoryPreference(sessionKey, evt.Category)
		}
		s.scheduler.Queue(evt.Href, prefetch.StrategyImmediate, classifyContent(evt.Href))
	case behavior.EventHover:
		if evt.Target == "" {
			return false
		}
		s.recorder.RecordHover(sessionKey, evt.Target)
		if strings.HasPrefix(evt.Target, "/") {
			s.scheduler.Queue(evt.Target, prefetch.StrategyHoverFast, classifyContent(evt.Target))
		}
	case behavior.EventScroll:
		s.recorder.RecordScroll(sessionKey, evt.Offset,
			behavior.ScrollDirection(evt.Direction), evt.Velocity)
	default:
		return false
	}
	return true
}

// classifyContent maps a URL path to its content class for priority scoring.
func classifyContent(url string) prefetch.ContentClass {
	lower := strings.ToLower(url)
	switch {
	case strings.HasPrefix(lower, "/biz/"):
		return prefetch.ContentBusinessPages
	case strings.HasPrefix(lower, "/search"):
		return prefetch.ContentSearchResults
	case strings.HasPrefix(lower, "/category"):
		return prefetch.ContentCategoryPages
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"),
		strings.HasSuffix(lower, ".png"), strings.HasSuffix(lower, ".webp"),
		strings.HasSuffix(lower, ".avif"), strings.HasSuffix(lower, ".svg"):
		return prefetch.ContentImages
	default:
		return prefetch.ContentStaticAssets
	}
}

// handleHomepage returns the personalized, variant-adjusted section list.
func (s *Server) handleHomepage(w http.ResponseWriter, r *http.Request) {
	sessionKey := s.sessionKey(w, r)
	location := r.URL.Query().Get("location")

	prefs := s.analyzeSession(sessionKey)
	list := s.generator.Generate(r.Context(), sessionKey, location, prefs)

	variant := experiment.Assign(sessionKey)
	list = experiment.Apply(variant, list)

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"session":    sessionKey,
		"variant":    variant,
		"confidence": prefs.Confidence,
		"sections":   list,
	})
}

// handlePreferences exposes the analyzed preference scores for debugging
// and client-side tuning.
func (s *Server) handlePreferences(w http.ResponseWriter, r *http.Request) {
	sessionKey := s.sessionKey(w, r)
	prefs := s.analyzeSession(sessionKey)

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"session":        sessionKey,
		"confidence":     prefs.Confidence,
		"business_types": scoreEntries(prefs.BusinessTypes),
		"locations":      scoreEntries(prefs.Locations),
		"price_ranges":   scoreEntries(prefs.PriceRanges),
		"features":       scoreEntries(prefs.Features),
	})
}

func (s *Server) analyzeSession(sessionKey string) preference.Preferences {
	events := s.recorder.Events(sessionKey)
	profile := s.recorder.Profile(sessionKey)
	return preference.Analyze(preference.InputFromProfile(events, profile))
}

// scoreEntry preserves label ordering, which a plain JSON object would lose.
type scoreEntry struct {
	Label  string  `json:"label"`
	Weight float64 `json:"weight"`
}

func scoreEntries(scores *preference.ScoreMap) []scoreEntry {
	entries := make([]scoreEntry, 0, scores.Len())
	for _, label := range scores.TopN(scores.Len()) {
		entries = append(entries, scoreEntry{Label: label, Weight: scores.Get(label)})
	}
	return entries
}

// handleBeacon accepts fire-and-forget client telemetry. The payload is
// counted and discarded; clients must never block on it.
func (s *Server) handleBeacon(w http.ResponseWriter, r *http.Request) {
	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.metrics.BeaconsReceived.Inc()
	s.logger.Debug("client beacon", zap.Int("fields", len(payload)))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePrefetchStats(w http.ResponseWriter, r *http.Request) {
	snap := s.scheduler.Snapshot()
	cacheStats := s.responseCache.Stats()

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"scheduler": map[string]interface{}{
			"pending":  snap.Pending,
			"active":   snap.Active,
			"queued":   snap.Queued,
			"deduped":  snap.Deduped,
			"overflow": snap.Overflow,
			"fetched":  snap.Fetched,
			"failed":   snap.Failed,
		},
		"cache": map[string]interface{}{
			"entries":       cacheStats.Entries,
			"current_bytes": cacheStats.CurrentBytes,
			"max_bytes":     cacheStats.MaxBytes,
			"hits":          cacheStats.Hits,
			"misses":        cacheStats.Misses,
			"evictions":     cacheStats.Evictions,
			"hit_rate":      cacheStats.HitRate(),
		},
	})
}

// sessionKey returns the caller's session identifier, minting one when the
// client has not supplied X-Session-ID. A minted key is echoed back so the
// client can adopt it.
func (s *Server) sessionKey(w http.ResponseWriter, r *http.Request) string {
	if key := r.Header.Get("X-Session-ID"); key != "" {
		return key
	}
	key := uuid.New().String()
	w.Header().Set("X-Session-ID", key)
	return key
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("response encode failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
