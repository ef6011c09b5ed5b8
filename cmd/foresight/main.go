// cmd/foresight/main.go
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FairForge/foresight/internal/api"
	"github.com/FairForge/foresight/internal/behavior"
	"github.com/FairForge/foresight/internal/cache"
	"github.com/FairForge/foresight/internal/config"
	"github.com/FairForge/foresight/internal/database"
	"github.com/FairForge/foresight/internal/prefetch"
	"github.com/FairForge/foresight/internal/sections"
	"github.com/FairForge/foresight/internal/telemetry"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", config.GetEnvOrDefault("FORESIGHT_CONFIG", ""), "path to config file")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// Data backends: Postgres when configured, in-memory otherwise.
	var (
		sectionStore sections.Store
		profileStore behavior.ProfileStore
	)
	if cfg.Database.Enabled {
		pg, err := database.NewPostgres(database.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			Database: cfg.Database.Database,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			logger.Fatal("failed to open database", zap.Error(err))
		}
		defer func() { _ = pg.Close() }()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := pg.Ping(ctx); err != nil {
			cancel()
			logger.Fatal("database unreachable", zap.Error(err))
		}
		if err := pg.CreateTables(ctx); err != nil {
			cancel()
			logger.Fatal("failed to create tables", zap.Error(err))
		}
		cancel()

		sectionStore = pg
		profileStore = pg
		logger.Info("using postgres backend", zap.String("host", cfg.Database.Host))
	} else {
		mem := sections.NewMemoryStore()
		mem.SeedSampleData()
		sectionStore = mem
		profileStore = behavior.NewMemoryProfileStore()
		logger.Info("using in-memory backend with sample data")
	}

	responseCache := cache.NewResponseCache(cfg.Cache.MaxBytes)

	scheduler := prefetch.NewScheduler(prefetch.Config{
		BaseURL:       cfg.Prefetch.BaseURL,
		Tick:          cfg.Prefetch.Tick,
		MaxConcurrent: cfg.Prefetch.MaxConcurrent,
		MaxQueue:      cfg.Prefetch.MaxQueue,
		FetchTimeout:  cfg.Prefetch.FetchTimeout,
		CacheTTL:      cfg.Prefetch.CacheTTL,
		RatePerSecond: cfg.Prefetch.RatePerSecond,
	}, responseCache, logger)
	scheduler.Start()
	defer scheduler.Stop()

	recorder := behavior.NewRecorder(profileStore, behavior.RecorderConfig{
		PersistDebounce: cfg.Profile.PersistDebounce,
	}, logger)

	generator := sections.NewGenerator(sectionStore, sections.Config{
		CacheTTL:       cfg.Sections.CacheTTL,
		TrendingWindow: cfg.Sections.TrendingWindow,
		ItemLimit:      cfg.Sections.ItemLimit,
	}, logger)

	var beacon *telemetry.Beacon
	if cfg.Telemetry.Endpoint != "" {
		beacon = telemetry.NewBeacon(cfg.Telemetry.Endpoint, logger)
	}

	server := api.NewServer(cfg, api.Deps{
		Recorder:      recorder,
		Generator:     generator,
		Scheduler:     scheduler,
		ResponseCache: responseCache,
		Beacon:        beacon,
	}, logger)

	go func() {
		logger.Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}
