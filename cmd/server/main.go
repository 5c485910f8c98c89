// Package main implements the entry point for the TaskTrack API server
// which manages tasks and their stages, runs the daily status sweeps,
// and delivers email notifications for overdue and upcoming work.
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/mwhitlock/tasktrack-api/internal/config"
	"github.com/mwhitlock/tasktrack-api/internal/platform/logger"
)

// main loads configuration, wires the application dependencies and runs
// the HTTP server until a shutdown signal arrives.
func main() {
	if err := run(); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel)

	db, err := setupAppDatabase(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}

	ctx := context.Background()

	app, err := newApplication(ctx, cfg, appLogger, db)
	if err != nil {
		// newApplication hands ownership of db to the application only on
		// success, so close it here on the failure path.
		if closeErr := db.Close(); closeErr != nil {
			appLogger.Error("Error closing database connection", "error", closeErr)
		}
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	if err := app.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
