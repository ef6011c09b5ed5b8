// internal/api/server.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/FairForge/foresight/internal/behavior"
	"github.com/FairForge/foresight/internal/cache"
	"github.com/FairForge/foresight/internal/config"
	"github.com/FairForge/foresight/internal/prefetch"
	"github.com/FairForge/foresight/internal/sections"
	"github.com/FairForge/foresight/internal/telemetry"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Server exposes the personalization engine over HTTP.
type Server struct {
	config        *config.Config
	logger        *zap.Logger
	router        *mux.Router
	httpServer    *http.Server
	recorder      *behavior.Recorder
	generator     *sections.Generator
	scheduler     *prefetch.Scheduler
	responseCache *cache.ResponseCache
	beacon        *telemetry.Beacon
	metrics       *Metrics
	startTime     time.Time
	stopTelemetry chan struct{}
}

// Deps are the collaborators a server is built from. All are required
// except Beacon.
type Deps struct {
	Recorder      *behavior.Recorder
	Generator     *sections.Generator
	Scheduler     *prefetch.Scheduler
	ResponseCache *cache.ResponseCache
	Beacon        *telemetry.Beacon
}

// NewServer creates the HTTP server around the given engine components.
func NewServer(cfg *config.Config, deps Deps, logger *zap.Logger) *Server {
	s := &Server{
		config:        cfg,
		logger:        logger,
		router:        mux.NewRouter(),
		recorder:      deps.Recorder,
		generator:     deps.Generator,
		scheduler:     deps.Scheduler,
		responseCache: deps.ResponseCache,
		beacon:        deps.Beacon,
		metrics:       NewMetrics(),
		startTime:     time.Now(),
		stopTelemetry: make(chan struct{}),
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/ready", s.handleReady).Methods("GET")
	s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")

	s.router.HandleFunc("/api/v1/events", s.handleEvents).Methods("POST")
	s.router.HandleFunc("/api/v1/homepage", s.handleHomepage).Methods("GET")
	s.router.HandleFunc("/api/v1/preferences", s.handlePreferences).Methods("GET")
	s.router.HandleFunc("/api/v1/beacon", s.handleBeacon).Methods("POST")
	s.router.HandleFunc("/api/v1/prefetch/stats", s.handlePrefetchStats).Methods("GET")

	s.router.Use(s.loggingMiddleware)
}

// Start runs the server until Shutdown, plus the periodic telemetry flush.
func (s *Server) Start() error {
	if s.beacon != nil && s.config.Telemetry.Interval > 0 {
		go s.telemetryLoop()
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the server gracefully and flushes pending profile writes.
func (s *Server) Shutdown(ctx context.Context) error {
	close(s.stopTelemetry)
	s.recorder.Close()
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) telemetryLoop() {
	ticker := time.NewTicker(s.config.Telemetry.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopTelemetry:
			return
		case <-ticker.C:
			snap := s.scheduler.Snapshot()
			cacheStats := s.responseCache.Stats()
			s.metrics.CacheBytes.Set(float64(cacheStats.CurrentBytes))
			s.metrics.PrefetchActive.Set(float64(snap.Active))
			s.beacon.Send(map[string]interface{}{
				"prefetch_fetched": snap.Fetched,
				"prefetch_failed":  snap.Failed,
				"prefetch_pending": snap.Pending,
				"cache_bytes":      cacheStats.CurrentBytes,
				"cache_hit_rate":   cacheStats.HitRate(),
				"uptime_seconds":   time.Since(s.startTime).Seconds(),
			})
		}
	}
}
