/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the bonus engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load BONUS_* environment, then apply command-line flags
  2. Build the slog logger
  3. Initialize SQLite store
  4. Pick the plan: -plan file, else -preset, else the stored plan,
     else the default
  5. Create API handler and payout scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS (override the environment):
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: bonus.db)
           Use ":memory:" for in-memory database
  -plan    Plan file (.yaml, .yml or .json)
  -preset  Named plan (standard, double-days, launch-week)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the payout scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  ./server -db="./data/bonus.db" -plan=./plans/promo.yaml
  ./server -preset=double-days
  BONUS_LOG_FORMAT=json BONUS_SCHEDULER_INTERVAL=15m ./server

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/warp/bonus-engine/api"
	"github.com/warp/bonus-engine/compensation"
	"github.com/warp/bonus-engine/config"
	"github.com/warp/bonus-engine/logging"
	"github.com/warp/bonus-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Flags
	port := flag.String("port", cfg.HTTP.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.Storage.DBPath, "SQLite database path")
	planFile := flag.String("plan", cfg.PlanFile, "Plan file (.yaml, .yml or .json)")
	planPreset := flag.String("preset", cfg.PlanPreset, "Named plan ("+strings.Join(compensation.PresetNames(), ", ")+")")
	flag.Parse()
	cfg.HTTP.Port = *port
	cfg.Storage.DBPath = *dbPath
	cfg.PlanFile = *planFile
	cfg.PlanPreset = *planPreset

	logger := logging.New(cfg.Logging)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	// Initialize store
	store, err := sqlite.New(cfg.Storage.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	// Initialize handler
	handler := api.NewHandler(store, compensation.DefaultPlan(), logger)
	if err := handler.SelectStartupPlan(ctx, cfg.PlanFile, cfg.PlanPreset); err != nil {
		return err
	}
	plan := handler.Plan()
	logger.Info("plan loaded", "plan_id", plan.ID, "name", plan.Name)

	scheduler := api.NewPayoutScheduler(handler)
	scheduler.CheckInterval = cfg.Scheduler.Interval
	scheduler.Enabled = cfg.Scheduler.Enabled
	scheduler.Start()
	defer scheduler.Stop()

	// Create server
	server := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      api.NewRouter(handler, cfg.HTTP.CORSOrigins),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	// Start server in goroutine
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", server.Addr, "db", cfg.Storage.DBPath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		return err
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("server stopped")
	return nil
}
