package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://www.bigdipper.com.ar", cfg.Catalog.BaseURL)
	assert.Equal(t, 5, cfg.Session.RecentLimit)
	assert.Equal(t, 0.4, cfg.Generation.Temperature)
	assert.Equal(t, 650, cfg.Generation.MaxOutputTokens)
	assert.False(t, cfg.GenerationEnabled())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
catalog:
  base_url: "https://staging.example.com"
session:
  recent_limit: 3
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "https://staging.example.com", cfg.Catalog.BaseURL)
	assert.Equal(t, 3, cfg.Session.RecentLimit)

	// Unset fields keep their defaults.
	assert.Equal(t, "memory", cfg.Cache.Driver)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/does/not/exist.yaml")
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "8099")
	t.Setenv("CATALOG_BASE_URL", "https://alt.example.com/")
	t.Setenv("GEMINI_API_KEY", " secret ")
	t.Setenv("GENERATION_MODEL", "google/gemini-pro-1.5")
	t.Setenv("DATABASE_URL", "sqlite:/tmp/other.db")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8099, cfg.Server.Port)
	assert.Equal(t, "https://alt.example.com", cfg.Catalog.BaseURL)
	assert.Equal(t, "secret", cfg.Generation.APIKey)
	assert.True(t, cfg.GenerationEnabled())
	assert.Equal(t, "google/gemini-pro-1.5", cfg.Generation.Model)
	assert.Equal(t, "/tmp/other.db", cfg.Store.SQLite.Path)
	assert.Equal(t, "debug", cfg.Observability.LogLevel)
}

func TestAPIKeyPrecedence(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "openrouter-key")
	t.Setenv("GEMINI_API_KEY", "gemini-key")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "openrouter-key", cfg.Generation.APIKey)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"missing catalog url", func(c *Config) { c.Catalog.BaseURL = "" }},
		{"unknown cache driver", func(c *Config) { c.Cache.Driver = "memcached" }},
		{"unknown store driver", func(c *Config) { c.Store.Driver = "postgres" }},
		{"recent limit too high", func(c *Config) { c.Session.RecentLimit = 50 }},
		{"temperature out of range", func(c *Config) { c.Generation.Temperature = 3.5 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
