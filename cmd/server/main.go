/*
main.go - Application entry point

PURPOSE:
  Starts the vacation calendar server: the messenger webhook, the calendar
  API and, when configured, the import directory watcher.

STARTUP SEQUENCE:
  1. Parse command-line flags, load configuration
  2. Build the logger
  3. Open the SQLite store (and Redis lock when configured)
  4. Wire oracle, engine and ingestion pipeline
  5. Configure HTTP router, start the watcher
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Path to a YAML config file (default: search ./config and .)
  -port    Overrides server.port
  -db      Overrides store.path; ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the import watcher
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database and Redis connections

ENVIRONMENT:
  Every config key, prefixed VACATIONS_ (see config/config.go).
  DEEPSEEK_API_KEY is accepted for oracle.api_key.

SEE ALSO:
  - app/app.go: Component wiring
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/vacation-calendar/api"
	"github.com/warp/vacation-calendar/app"
	"github.com/warp/vacation-calendar/config"
	"github.com/warp/vacation-calendar/ingest"
	"github.com/warp/vacation-calendar/logging"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "Path to config file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Store.Path = *dbPath
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	handler := api.NewHandler(a.VacationStore(), a.Pipeline, a.Engine, a.Oracle, logger)
	router := api.NewRouter(handler, api.RouterConfig{
		AllowedOrigins: cfg.Server.CORS.AllowOrigins,
		WebhookRate:    cfg.Webhook.Rate,
		WebhookBurst:   cfg.Webhook.Burst,
	})

	watcher := ingest.NewWatcher(a.Pipeline, cfg.Import.WatchDir, cfg.Import.WatchInterval, logger)
	watcher.Start()
	defer watcher.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		// The webhook waits on the oracle.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return err
	}

	logger.Info("shutting down server")
	watcher.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
