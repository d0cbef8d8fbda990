/*
Package app assembles the service from configuration. Every command under
cmd/ builds one App and closes it on exit.

WIRING:

	config ──> sqlite.Store ──┐
	       ──> redislock ─────┼──> vacation.Engine ──┐
	       ──> oracle.Client ─┴──────────────────────┴──> ingest.Pipeline

  - The Redis locker is used only when redis.addr is set.
  - An empty store.path leaves Store nil.
*/
package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/warp/vacation-calendar/config"
	"github.com/warp/vacation-calendar/ingest"
	"github.com/warp/vacation-calendar/oracle"
	"github.com/warp/vacation-calendar/store/redislock"
	"github.com/warp/vacation-calendar/store/sqlite"
	"github.com/warp/vacation-calendar/vacation"
)

// App holds the assembled components.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Store    *sqlite.Store
	Redis    *redis.Client
	Engine   *vacation.Engine
	Oracle   *oracle.Client
	Pipeline *ingest.Pipeline
}

// New opens the store and optional Redis connection and wires the pipeline.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	if cfg.Store.Path != "" {
		st, err := sqlite.New(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.Store = st
		logger.Info("store opened", zap.String("path", cfg.Store.Path))
	} else {
		logger.Warn("store.path empty, running without a store")
	}

	engineOpts := []vacation.EngineOption{vacation.WithLogger(logger.Named("engine"))}
	if cfg.Redis.Addr != "" {
		rdb, err := redislock.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Redis = rdb
		engineOpts = append(engineOpts, vacation.WithLocker(
			redislock.New(rdb, cfg.Redis.LockTTL, redislock.WithLogger(logger.Named("redislock"))),
		))
		logger.Info("redis employee lock enabled", zap.String("addr", cfg.Redis.Addr))
	}

	a.Engine = vacation.NewEngine(a.VacationStore(), engineOpts...)

	if cfg.Oracle.APIKey == "" {
		logger.Warn("oracle.api_key empty, extraction calls will fail")
	}
	a.Oracle = oracle.NewClient(
		oracle.NewOpenAI(cfg.Oracle.BaseURL, cfg.Oracle.APIKey),
		oracle.Config{
			Model:       cfg.Oracle.Model,
			MaxTokens:   cfg.Oracle.MaxTokens,
			DefaultYear: cfg.Oracle.DefaultYear,
			Timeout:     cfg.Oracle.Timeout,
		},
		logger,
	)

	a.Pipeline = ingest.New(
		a.Oracle,
		vacation.NewNormalizer(vacation.WithIDPrefix(cfg.Manual.IDPrefix)),
		a.Engine,
		ingest.WithLogger(logger),
		ingest.WithImportLimiter(importLimiter(cfg.Import)),
	)
	return a, nil
}

// VacationStore returns the store as an interface, nil when not configured.
func (a *App) VacationStore() vacation.Store {
	if a.Store == nil {
		return nil
	}
	return a.Store
}

// Close releases connections.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("closing redis", zap.Error(err))
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Warn("closing store", zap.Error(err))
		}
	}
	a.Logger.Sync()
}

func importLimiter(cfg config.ImportConfig) *rate.Limiter {
	if cfg.Rate <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst)
}
