// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Cache     CacheConfig     `yaml:"cache"`
	Prefetch  PrefetchConfig  `yaml:"prefetch"`
	Sections  SectionsConfig  `yaml:"sections"`
	Profile   ProfileConfig   `yaml:"profile"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type ServerConfig struct {
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
}

type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
}

type CacheConfig struct {
	MaxBytes int64 `yaml:"max_bytes"`
}

type PrefetchConfig struct {
	BaseURL       string        `yaml:"base_url"`
	Tick          time.Duration `yaml:"tick"`
	MaxConcurrent int           `yaml:"max_concurrent"`
	MaxQueue      int           `yaml:"max_queue"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
	RatePerSecond float64       `yaml:"rate_per_second"`
}

type SectionsConfig struct {
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	TrendingWindow time.Duration `yaml:"trending_window"`
	ItemLimit      int           `yaml:"item_limit"`
}

type ProfileConfig struct {
	PersistDebounce time.Duration `yaml:"persist_debounce"`
}

type TelemetryConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Interval time.Duration `yaml:"interval"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:     8080,
			LogLevel: "info",
		},
		Database: DatabaseConfig{
			Port:    5432,
			SSLMode: "disable",
		},
		Cache: CacheConfig{
			MaxBytes: 100 * 1024 * 1024,
		},
		Prefetch: PrefetchConfig{
			Tick:          100 * time.Millisecond,
			MaxConcurrent: 8,
			MaxQueue:      256,
			FetchTimeout:  10 * time.Second,
			CacheTTL:      5 * time.Minute,
			RatePerSecond: 50,
		},
		Sections: SectionsConfig{
			CacheTTL:       5 * time.Minute,
			TrendingWindow: 7 * 24 * time.Hour,
			ItemLimit:      8,
		},
		Profile: ProfileConfig{
			PersistDebounce: time.Second,
		},
		Telemetry: TelemetryConfig{
			Interval: time.Minute,
		},
	}
}

// Load reads configuration from a YAML file on top of defaults, then
// applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied path
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	LoadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server port %d", c.Server.Port)
	}
	if c.Cache.MaxBytes <= 0 {
		return fmt.Errorf("config: cache max_bytes must be positive")
	}
	if c.Prefetch.MaxConcurrent <= 0 {
		return fmt.Errorf("config: prefetch max_concurrent must be positive")
	}
	return nil
}
