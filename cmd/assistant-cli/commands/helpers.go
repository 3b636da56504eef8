package commands

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/bigdipper/sales-assistant/internal/answer"
	"github.com/bigdipper/sales-assistant/internal/cache"
	"github.com/bigdipper/sales-assistant/internal/catalog"
	"github.com/bigdipper/sales-assistant/internal/chat"
	"github.com/bigdipper/sales-assistant/internal/config"
	"github.com/bigdipper/sales-assistant/internal/datasheet"
	"github.com/bigdipper/sales-assistant/internal/llm"
	"github.com/bigdipper/sales-assistant/internal/observability"
	"github.com/bigdipper/sales-assistant/internal/resolver"
	"github.com/bigdipper/sales-assistant/internal/session"
)

// loadConfig loads configuration from the --config flag or CONFIG_PATH.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newCLILogger builds a logger that stays out of the way of terminal
// output unless --verbose is set.
func newCLILogger(cfg *config.Config) *observability.Logger {
	level := "warn"
	if verbose {
		level = "debug"
	}
	return observability.NewLogger(observability.LogConfig{
		Level:       level,
		Format:      "console",
		Output:      os.Stderr,
		ServiceName: cfg.Observability.ServiceName,
	})
}

// buildService wires the conversation service for CLI use. The returned
// cleanup closes the cache and store connections.
func buildService(cfg *config.Config, logger *observability.Logger) (*chat.Service, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	backend := catalog.NewClient(catalog.Config{
		BaseURL:        cfg.Catalog.BaseURL,
		UserAgent:      cfg.Catalog.UserAgent,
		ViewTimeout:    cfg.Catalog.ViewTimeout,
		SearchTimeout:  cfg.Catalog.SearchTimeout,
		ScrapeFallback: cfg.Catalog.ScrapeFallback,
	}, logger)

	var shared cache.Client
	switch cfg.Cache.Driver {
	case "redis":
		redisClient, err := cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			PoolSize: cfg.Cache.Redis.PoolSize,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		shared = redisClient
	default:
		shared = cache.NewMemoryClient(cfg.Cache.MaxEntries)
	}
	closers = append(closers, func() { shared.Close() })

	var store *session.TurnStore
	if cfg.Store.Driver == "sqlite" {
		db, err := openStore(cfg)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, func() { db.Close() })

		store = session.NewTurnStore(db)
		if err := store.Migrate(context.Background()); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("migrate store: %w", err)
		}
	}

	sessions := session.NewManager(cfg.Session.RecentLimit, cfg.Session.IdleExpiry, store, logger)
	res := resolver.New(backend, shared, cfg.Cache.TTL, logger)

	var completer answer.Completer
	if cfg.GenerationEnabled() {
		completer = llm.NewClient(llm.Config{
			BaseURL:     cfg.Generation.BaseURL,
			APIKey:      cfg.Generation.APIKey,
			Model:       cfg.Generation.Model,
			Temperature: cfg.Generation.Temperature,
			MaxTokens:   cfg.Generation.MaxOutputTokens,
			Timeout:     cfg.Generation.Timeout,
		})
	}
	gen := answer.NewGenerator(completer, answer.NewTokenBudget(cfg.Generation.MaxContextTokens), logger)

	var sheets chat.SheetFetcher
	if cfg.Datasheet.Enabled {
		sheets = datasheet.NewFetcher(datasheet.Config{
			MaxPages:  cfg.Datasheet.MaxPages,
			MaxChars:  cfg.Datasheet.MaxChars,
			MaxBytes:  cfg.Datasheet.MaxBytes,
			Timeout:   cfg.Datasheet.Timeout,
			UserAgent: cfg.Catalog.UserAgent,
		}, logger)
	}

	return chat.NewService(sessions, res, gen, sheets, logger), cleanup, nil
}

// openStore opens the transcript database.
func openStore(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", cfg.Store.SQLite.Path+"?_journal_mode="+cfg.Store.SQLite.JournalMode)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(cfg.Store.SQLite.MaxOpenConns)
	return db, nil
}
