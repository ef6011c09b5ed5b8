// internal/prefetch/scheduler.go
package prefetch

import (
	"context"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/FairForge/foresight/internal/cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// maxBodyBytes caps how much of a prefetched response is read. Anything
// larger is not worth holding in the response cache.
const maxBodyBytes = 10 * 1024 * 1024

// Candidate is one queued prefetch URL. State machine:
// Queued -> Fetching -> {Cached, Failed}. Failed candidates are dropped,
// never retried.
type Candidate struct {
	URL      string
	Strategy Strategy
	Content  ContentClass
	Priority int
	QueuedAt time.Time
}

// Config configures the scheduler.
type Config struct {
	// BaseURL prefixes relative candidate paths, e.g. "http://localhost:3000".
	BaseURL string
	// Tick is the drain loop interval.
	Tick time.Duration
	// MaxConcurrent bounds in-flight fetches.
	MaxConcurrent int
	// MaxQueue caps pending candidates; the worst-priority entry is
	// dropped on overflow.
	MaxQueue int
	// FetchTimeout bounds each fetch; expiry is a terminal failure.
	FetchTimeout time.Duration
	// CacheTTL is how long fetched responses stay cached.
	CacheTTL time.Duration
	// RatePerSecond throttles outbound prefetch requests. Zero disables
	// throttling.
	RatePerSecond float64
}

// ApplyDefaults fills in default values.
func (c *Config) ApplyDefaults() {
	if c.Tick == 0 {
		c.Tick = 100 * time.Millisecond
	}
	if c.MaxConcurrent == 0 {
		c.MaxConcurrent = 8
	}
	if c.MaxQueue == 0 {
		c.MaxQueue = 256
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = 10 * time.Second
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 5 * time.Minute
	}
}

// Scheduler drains a priority queue of prefetch candidates into a bounded
// set of concurrent fetches, caching successful responses.
type Scheduler struct {
	mu      sync.Mutex
	cfg     Config
	logger  *zap.Logger
	cache   *cache.ResponseCache
	client  *http.Client
	limiter *rate.Limiter

	queue  map[string]*Candidate
	active map[string]struct{}

	queued   int64
	deduped  int64
	overflow int64
	fetched  int64
	failed   int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a prefetch scheduler writing into the given cache.
func NewScheduler(cfg Config, responseCache *cache.ResponseCache, logger *zap.Logger) *Scheduler {
	cfg.ApplyDefaults()

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.MaxConcurrent)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cfg:     cfg,
		logger:  logger,
		cache:   responseCache,
		client:  &http.Client{Timeout: cfg.FetchTimeout},
		limiter: limiter,
		queue:   make(map[string]*Candidate),
		active:  make(map[string]struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the drain loop.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.loop()
}

// Stop halts the drain loop and waits for it to exit. In-flight fetches
// are abandoned via context cancellation.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

// Queue adds a candidate URL. Re-queuing a URL that is already pending or
// in flight is a no-op: the first-assigned priority wins. Returns true if
// the candidate was accepted.
func (s *Scheduler) Queue(url string, strategy Strategy, content ContentClass) bool {
	if url == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, pending := s.queue[url]; pending {
		s.deduped++
		return false
	}
	if _, inFlight := s.active[url]; inFlight {
		s.deduped++
		return false
	}

	cand := &Candidate{
		URL:      url,
		Strategy: strategy,
		Content:  content,
		Priority: int(strategy) + int(content),
		QueuedAt: time.Now(),
	}

	if len(s.queue) >= s.cfg.MaxQueue {
		if !s.evictWorstLocked(cand) {
			s.overflow++
			return false
		}
	}

	s.queue[url] = cand
	s.queued++
	return true
}

// evictWorstLocked makes room for cand by dropping the worst pending
// candidate, unless cand itself is at least as bad as everything queued.
func (s *Scheduler) evictWorstLocked(cand *Candidate) bool {
	var worst *Candidate
	for _, c := range s.queue {
		if worst == nil || c.Priority > worst.Priority ||
			(c.Priority == worst.Priority && c.QueuedAt.After(worst.QueuedAt)) {
			worst = c
		}
	}
	if worst == nil || cand.Priority >= worst.Priority {
		return false
	}
	delete(s.queue, worst.URL)
	s.overflow++
	return true
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			for _, cand := range s.takeBatch() {
				s.wg.Add(1)
				go s.fetch(cand)
			}
		}
	}
}

// takeBatch removes up to (MaxConcurrent - active) candidates from the
// queue in strict ascending priority order and marks them in flight.
func (s *Scheduler) takeBatch() []*Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots := s.cfg.MaxConcurrent - len(s.active)
	if slots <= 0 || len(s.queue) == 0 {
		return nil
	}

	pending := make([]*Candidate, 0, len(s.queue))
	for _, cand := range s.queue {
		pending = append(pending, cand)
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].Priority != pending[j].Priority {
			return pending[i].Priority < pending[j].Priority
		}
		return pending[i].QueuedAt.Before(pending[j].QueuedAt)
	})

	if slots > len(pending) {
		slots = len(pending)
	}

	batch := pending[:slots]
	for _, cand := range batch {
		delete(s.queue, cand.URL)
		s.active[cand.URL] = struct{}{}
	}
	return batch
}

// fetch executes one prefetch. Failures are logged and dropped; the
// candidate is not re-queued.
func (s *Scheduler) fetch(cand *Candidate) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.active, cand.URL)
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.FetchTimeout)
	defer cancel()

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			s.markFailed(cand, err)
			return
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.resolveURL(cand.URL), nil)
	if err != nil {
		s.markFailed(cand, err)
		return
	}
	// Lets the origin deprioritize or rate-limit speculative traffic.
	req.Header.Set("X-Purpose", "prefetch")
	req.Header.Set("Cache-Control", "max-age=300")

	resp, err := s.client.Do(req)
	if err != nil {
		s.markFailed(cand, err)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		s.markFailed(cand, nil)
		s.logger.Debug("prefetch rejected by origin",
			zap.String("url", cand.URL), zap.Int("status", resp.StatusCode))
		return
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil || len(body) > maxBodyBytes {
		s.markFailed(cand, err)
		return
	}

	if err := s.cache.Put(cand.URL, body, resp.Header.Get("Content-Type"), s.cfg.CacheTTL); err != nil {
		s.markFailed(cand, err)
		return
	}

	s.mu.Lock()
	s.fetched++
	s.mu.Unlock()
}

func (s *Scheduler) markFailed(cand *Candidate, err error) {
	s.mu.Lock()
	s.failed++
	s.mu.Unlock()
	if err != nil {
		s.logger.Debug("prefetch failed",
			zap.String("url", cand.URL),
			zap.String("strategy", cand.Strategy.String()),
			zap.Error(err))
	}
}

func (s *Scheduler) resolveURL(url string) string {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return url
	}
	return strings.TrimSuffix(s.cfg.BaseURL, "/") + url
}

// Snapshot is a point-in-time view of scheduler state.
type Snapshot struct {
	Pending  int
	Active   int
	Queued   int64
	Deduped  int64
	Overflow int64
	Fetched  int64
	Failed   int64
}

// Snapshot returns current scheduler counters.
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		Pending:  len(s.queue),
		Active:   len(s.active),
		Queued:   s.queued,
		Deduped:  s.deduped,
		Overflow: s.overflow,
		Fetched:  s.fetched,
		Failed:   s.failed,
	}
}

// pendingCandidate returns the queued candidate for url, for tests.
func (s *Scheduler) pendingCandidate(url string) *Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()

	cand, exists := s.queue[url]
	if !exists {
		return nil
	}
	cp := *cand
	return &cp
}
