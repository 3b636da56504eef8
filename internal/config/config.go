// Package config provides unified configuration loading for the sales assistant.
// Supports YAML files, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the sales assistant.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Catalog       CatalogConfig       `yaml:"catalog"`
	Cache         CacheConfig         `yaml:"cache"`
	Store         StoreConfig         `yaml:"store"`
	Session       SessionConfig       `yaml:"session"`
	Generation    GenerationConfig    `yaml:"generation"`
	Datasheet     DatasheetConfig     `yaml:"datasheet"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

// CatalogConfig holds vendor catalog backend settings.
type CatalogConfig struct {
	BaseURL       string        `yaml:"base_url"`
	UserAgent     string        `yaml:"user_agent"`
	ViewTimeout   time.Duration `yaml:"view_timeout"`
	SearchTimeout time.Duration `yaml:"search_timeout"`
	// ScrapeFallback controls the last-resort public page scrape when the
	// undocumented search endpoints all fail.
	ScrapeFallback bool `yaml:"scrape_fallback"`
}

// CacheConfig holds product record cache settings.
type CacheConfig struct {
	Driver     string        `yaml:"driver"` // memory or redis
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// StoreConfig holds transcript persistence settings.
type StoreConfig struct {
	Driver string       `yaml:"driver"` // sqlite or none
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path         string `yaml:"path"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	JournalMode  string `yaml:"journal_mode"`
}

// SessionConfig holds conversation session settings.
type SessionConfig struct {
	// RecentLimit bounds the most-recently-discussed product list.
	RecentLimit int           `yaml:"recent_limit"`
	IdleExpiry  time.Duration `yaml:"idle_expiry"`
}

// GenerationConfig holds hosted text-generation settings.
type GenerationConfig struct {
	BaseURL          string        `yaml:"base_url"`
	Model            string        `yaml:"model"`
	APIKey           string        `yaml:"api_key"`
	Temperature      float64       `yaml:"temperature"`
	MaxOutputTokens  int           `yaml:"max_output_tokens"`
	MaxContextTokens int           `yaml:"max_context_tokens"`
	Timeout          time.Duration `yaml:"timeout"`
}

// DatasheetConfig holds PDF datasheet extraction settings.
type DatasheetConfig struct {
	Enabled  bool          `yaml:"enabled"`
	MaxPages int           `yaml:"max_pages"`
	MaxChars int           `yaml:"max_chars"`
	MaxBytes int64         `yaml:"max_bytes"`
	Timeout  time.Duration `yaml:"timeout"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	ServiceName string `yaml:"service_name"`
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8087,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     60 * time.Second,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 10 * time.Second,
		},
		Catalog: CatalogConfig{
			BaseURL:        "https://www.bigdipper.com.ar",
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120 Safari/537.36",
			ViewTimeout:    12 * time.Second,
			SearchTimeout:  10 * time.Second,
			ScrapeFallback: true,
		},
		Cache: CacheConfig{
			Driver:     "memory",
			TTL:        30 * time.Minute,
			MaxEntries: 1000,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				DB:       0,
				PoolSize: 10,
			},
		},
		Store: StoreConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{
				Path:         "/tmp/sales-assistant.db",
				MaxOpenConns: 1,
				JournalMode:  "WAL",
			},
		},
		Session: SessionConfig{
			RecentLimit: 5,
			IdleExpiry:  2 * time.Hour,
		},
		Generation: GenerationConfig{
			BaseURL:          "https://openrouter.ai/api/v1/chat/completions",
			Model:            "google/gemini-flash-1.5",
			Temperature:      0.4,
			MaxOutputTokens:  650,
			MaxContextTokens: 6000,
			Timeout:          20 * time.Second,
		},
		Datasheet: DatasheetConfig{
			Enabled:  true,
			MaxPages: 3,
			MaxChars: 4000,
			MaxBytes: 10 << 20,
			Timeout:  15 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			ServiceName: "sales-assistant",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("catalog base_url is required")
	}

	if c.Cache.Driver != "memory" && c.Cache.Driver != "redis" {
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}

	if c.Store.Driver != "sqlite" && c.Store.Driver != "none" {
		return fmt.Errorf("invalid store driver: %s", c.Store.Driver)
	}

	if c.Session.RecentLimit < 1 || c.Session.RecentLimit > 20 {
		return fmt.Errorf("session recent_limit must be between 1 and 20")
	}

	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		return fmt.Errorf("invalid generation temperature: %f", c.Generation.Temperature)
	}

	return nil
}

// GenerationEnabled reports whether the hosted generation call is configured.
func (c *Config) GenerationEnabled() bool {
	return c.Generation.APIKey != ""
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}

	if v := os.Getenv("CATALOG_BASE_URL"); v != "" {
		cfg.Catalog.BaseURL = strings.TrimSuffix(v, "/")
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.Driver = "redis"
		cfg.Cache.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		if strings.HasPrefix(v, "sqlite:") {
			cfg.Store.Driver = "sqlite"
			cfg.Store.SQLite.Path = strings.TrimPrefix(v, "sqlite:")
		}
	}

	// Either key name works, matching what operators already have configured.
	for _, key := range []string{"OPENROUTER_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"} {
		if v := os.Getenv(key); v != "" {
			cfg.Generation.APIKey = strings.TrimSpace(v)
			break
		}
	}

	if v := os.Getenv("GENERATION_MODEL"); v != "" {
		cfg.Generation.Model = v
	}

	if v := os.Getenv("GENERATION_BASE_URL"); v != "" {
		cfg.Generation.BaseURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}
