// Package main provides the API router setup.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	_ "github.com/mattn/go-sqlite3"

	"github.com/bigdipper/sales-assistant/cmd/assistant-api/handlers"
	"github.com/bigdipper/sales-assistant/cmd/assistant-api/middleware"
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

// NewRouter creates the main API router with all routes configured. The
// returned cleanup closes the cache and store connections.
func NewRouter(logger *observability.Logger, cfg *config.Config) (http.Handler, func(), error) {
	service, cleanup, err := buildService(logger, cfg)
	if err != nil {
		return nil, nil, err
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(chimiddleware.Timeout(cfg.Server.WriteTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"sales-assistant"}`))
	})

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ready"}`))
	})

	chatHandler := handlers.NewChatHandler(logger, service)
	sessionHandler := handlers.NewSessionHandler(logger, service.Sessions())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/chat", chatHandler.Chat)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.Create)
			r.Delete("/{sessionId}", sessionHandler.Delete)
			r.Get("/{sessionId}/history", sessionHandler.History)
		})
	})

	return r, cleanup, nil
}

// buildService wires the conversation service from configuration.
func buildService(logger *observability.Logger, cfg *config.Config) (*chat.Service, func(), error) {
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
		db, err := sql.Open("sqlite3", cfg.Store.SQLite.Path+"?_journal_mode="+cfg.Store.SQLite.JournalMode)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		db.SetMaxOpenConns(cfg.Store.SQLite.MaxOpenConns)
		closers = append(closers, func() { db.Close() })

		store = session.NewTurnStore(db)
		if err := store.Migrate(context.Background()); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("migrate store: %w", err)
		}
	}

	sessions := session.NewManager(cfg.Session.RecentLimit, cfg.Session.IdleExpiry, store, logger)

	if cfg.Session.IdleExpiry > 0 {
		stop := make(chan struct{})
		go func() {
			ticker := time.NewTicker(cfg.Session.IdleExpiry / 2)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if n := sessions.Sweep(); n > 0 {
						logger.Debug().Int("removed", n).Msg("idle sessions swept")
					}
				case <-stop:
					return
				}
			}
		}()
		closers = append(closers, func() { close(stop) })
	}

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
