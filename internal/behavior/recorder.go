// internal/behavior/recorder.go
package behavior

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RecorderConfig configures the behavior recorder.
type RecorderConfig struct {
	// SessionLogMaxPerKind bounds the in-memory session log; on each
	// persist the log is trimmed to the most recent entries per kind.
	SessionLogMaxPerKind int
	// PersistDebounce coalesces profile writes so a burst of events
	// produces a single store write.
	PersistDebounce time.Duration
}

// ApplyDefaults fills in default values.
func (c *RecorderConfig) ApplyDefaults() {
	if c.SessionLogMaxPerKind == 0 {
		c.SessionLogMaxPerKind = 100
	}
	if c.PersistDebounce == 0 {
		c.PersistDebounce = time.Second
	}
}

type session struct {
	profile    *UserProfile
	events     []Event
	dirty      bool
	flushTimer *time.Timer
}

// Recorder captures user intent signals. It never returns errors to
// callers: persistence failures are logged and in-memory state carries on.
type Recorder struct {
	mu       sync.Mutex
	logger   *zap.Logger
	store    ProfileStore
	cfg      RecorderConfig
	sessions map[string]*session
}

// NewRecorder creates a behavior recorder backed by the given store.
func NewRecorder(store ProfileStore, cfg RecorderConfig, logger *zap.Logger) *Recorder {
	cfg.ApplyDefaults()
	return &Recorder{
		logger:   logger,
		store:    store,
		cfg:      cfg,
		sessions: make(map[string]*session),
	}
}

// StartSession loads (or creates) the profile for key and bumps its session
// counters. Safe to call more than once per session.
func (r *Recorder) StartSession(ctx context.Context, key string) {
	profile, err := r.store.Get(ctx, key)
	if err != nil {
		r.logger.Warn("profile load failed, starting fresh",
			zap.String("key", key), zap.Error(err))
	}
	if profile == nil {
		profile = NewUserProfile(key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[key]; exists {
		return
	}
	profile.SessionCount++
	profile.LastVisit = time.Now().UTC()
	r.sessions[key] = &session{profile: profile}
	r.markDirtyLocked(key)
}

// RecordPageView records a page view for the session.
func (r *Recorder) RecordPageView(key, path string) {
	r.record(key, NewPageView(path), func(p *UserProfile) {
		p.FrequentPaths = appendCapped(p.FrequentPaths, path)
	})
}

// RecordSearchQuery records a search query for the session.
func (r *Recorder) RecordSearchQuery(key, query string) {
	r.record(key, NewSearchQuery(query), func(p *UserProfile) {
		p.SearchPatterns = appendCapped(p.SearchPatterns, query)
	})
}

// RecordClick records a click interaction for the session.
func (r *Recorder) RecordClick(key, href, label string) {
	r.record(key, NewClick(href, label), nil)
}

// RecordHover records a hover sample for the session.
func (r *Recorder) RecordHover(key, target string) {
	r.record(key, NewHover(target), nil)
}

// RecordScroll records a scroll sample for the session.
func (r *Recorder) RecordScroll(key string, offset int, direction ScrollDirection, velocity float64) {
	r.record(key, NewScroll(offset, direction, velocity), nil)
}

// RecordCategoryPreference records an observed category interest.
func (r *Recorder) RecordCategoryPreference(key, category string) {
	r.record(key, Event{Kind: EventClick, Label: category, Timestamp: time.Now().UTC()}, func(p *UserProfile) {
		p.PreferredCategories = appendCapped(p.PreferredCategories, category)
	})
}

func (r *Recorder) record(key string, evt Event, update func(*UserProfile)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, exists := r.sessions[key]
	if !exists {
		sess = &session{profile: NewUserProfile(key)}
		sess.profile.SessionCount = 1
		sess.profile.LastVisit = evt.Timestamp
		r.sessions[key] = sess
	}

	sess.events = append(sess.events, evt)
	sess.profile.LastVisit = evt.Timestamp
	if update != nil {
		update(sess.profile)
	}
	r.markDirtyLocked(key)
}

// markDirtyLocked schedules a debounced persist for the session.
func (r *Recorder) markDirtyLocked(key string) {
	sess := r.sessions[key]
	sess.dirty = true
	if sess.flushTimer != nil {
		return
	}
	sess.flushTimer = time.AfterFunc(r.cfg.PersistDebounce, func() {
		r.Flush(key)
	})
}

// Events returns a copy of the session's event log in occurrence order.
func (r *Recorder) Events(key string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, exists := r.sessions[key]
	if !exists {
		return nil
	}
	return append([]Event(nil), sess.events...)
}

// Profile returns a copy of the session's current profile, or nil if the
// session is unknown.
func (r *Recorder) Profile(key string) *UserProfile {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, exists := r.sessions[key]
	if !exists {
		return nil
	}
	return sess.profile.Clone()
}

// Flush persists the session's profile now and trims the session log.
func (r *Recorder) Flush(key string) {
	r.mu.Lock()
	sess, exists := r.sessions[key]
	if !exists {
		r.mu.Unlock()
		return
	}
	if sess.flushTimer != nil {
		sess.flushTimer.Stop()
		sess.flushTimer = nil
	}
	if !sess.dirty {
		r.mu.Unlock()
		return
	}
	sess.dirty = false
	sess.events = trimPerKind(sess.events, r.cfg.SessionLogMaxPerKind)
	profile := sess.profile.Clone()
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.store.Put(ctx, key, profile); err != nil {
		r.logger.Warn("profile persist failed", zap.String("key", key), zap.Error(err))
	}
}

// Close flushes all dirty sessions.
func (r *Recorder) Close() {
	r.mu.Lock()
	keys := make([]string, 0, len(r.sessions))
	for k := range r.sessions {
		keys = append(keys, k)
	}
	r.mu.Unlock()

	for _, k := range keys {
		r.Flush(k)
	}
}

// trimPerKind keeps only the most recent max events of each kind,
// preserving overall order.
func trimPerKind(events []Event, max int) []Event {
	counts := make(map[EventKind]int, 5)
	for _, e := range events {
		counts[e.Kind]++
	}

	trimmed := make([]Event, 0, len(events))
	for _, e := range events {
		if counts[e.Kind] > max {
			counts[e.Kind]--
			continue
		}
		trimmed = append(trimmed, e)
	}
	return trimmed
}
