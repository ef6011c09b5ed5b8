// internal/config/env.go
package config

import (
	"os"
	"strconv"
	"time"
)

// LoadFromEnv applies FORESIGHT_* environment overrides.
func LoadFromEnv(cfg *Config) {
	if port := os.Getenv("FORESIGHT_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}

	if logLevel := os.Getenv("FORESIGHT_LOG_LEVEL"); logLevel != "" {
		cfg.Server.LogLevel = logLevel
	}

	if cacheSize := os.Getenv("FORESIGHT_CACHE_SIZE"); cacheSize != "" {
		if size, err := strconv.ParseInt(cacheSize, 10, 64); err == nil {
			cfg.Cache.MaxBytes = size
		}
	}

	if baseURL := os.Getenv("FORESIGHT_PREFETCH_BASE_URL"); baseURL != "" {
		cfg.Prefetch.BaseURL = baseURL
	}

	if concurrent := os.Getenv("FORESIGHT_PREFETCH_CONCURRENCY"); concurrent != "" {
		if n, err := strconv.Atoi(concurrent); err == nil {
			cfg.Prefetch.MaxConcurrent = n
		}
	}

	if ttl := os.Getenv("FORESIGHT_SECTION_CACHE_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			cfg.Sections.CacheTTL = d
		}
	}

	if dbHost := os.Getenv("FORESIGHT_DB_HOST"); dbHost != "" {
		cfg.Database.Enabled = true
		cfg.Database.Host = dbHost
	}

	if dbPassword := os.Getenv("FORESIGHT_DB_PASSWORD"); dbPassword != "" {
		cfg.Database.Password = dbPassword
	}

	if endpoint := os.Getenv("FORESIGHT_TELEMETRY_ENDPOINT"); endpoint != "" {
		cfg.Telemetry.Endpoint = endpoint
	}
}

// GetEnvOrDefault returns environment variable or default value.
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
