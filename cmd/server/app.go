package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/mwhitlock/tasktrack-api/internal/config"
	"github.com/mwhitlock/tasktrack-api/internal/domain"
	"github.com/mwhitlock/tasktrack-api/internal/jobs"
	"github.com/mwhitlock/tasktrack-api/internal/notify"
	"github.com/mwhitlock/tasktrack-api/internal/platform/mailer"
	"github.com/mwhitlock/tasktrack-api/internal/platform/postgres"
	"github.com/mwhitlock/tasktrack-api/internal/service"
	"github.com/mwhitlock/tasktrack-api/internal/service/auth"
	"github.com/mwhitlock/tasktrack-api/internal/store"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	// Configuration
	config *config.Config

	// Core services
	logger   *slog.Logger
	db       *sql.DB
	registry *domain.StateRegistry

	// Stores (using interfaces for proper abstraction)
	taskStore     store.TaskStore
	stageStore    store.StageStore
	templateStore store.TemplateStore
	userStore     store.UserStore

	// Service interfaces
	jwtService       auth.JWTService
	taskService      *service.TaskService
	stageService     *service.StageService
	userService      *service.UserService
	analyticsService *service.AnalyticsService

	// Notification delivery
	notifier *notify.Notifier

	// Scheduled jobs
	scheduler *jobs.Scheduler
}

// newApplication creates a new application instance with all dependencies
// initialized. It accepts core dependencies like configuration, logger and
// database connection that must be established before application
// initialization.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	// The state registry is loaded once at startup. States are seeded by
	// migrations and never change while the server runs.
	states, err := postgres.NewPostgresStateStore(db, logger).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load task states: %w", err)
	}
	app.registry, err = domain.NewStateRegistry(states)
	if err != nil {
		return nil, fmt.Errorf("failed to build state registry: %w", err)
	}

	// Initialize JWT service
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	// Initialize stores
	app.taskStore = postgres.NewPostgresTaskStore(db, logger)
	app.stageStore = postgres.NewPostgresStageStore(db, logger)
	app.templateStore = postgres.NewPostgresTemplateStore(db, logger)
	app.userStore = postgres.NewPostgresUserStore(db, cfg.Auth.BcryptCost, logger)
	statsStore := postgres.NewPostgresStatsStore(db, logger)
	notificationStore := postgres.NewPostgresNotificationLogStore(db, logger)

	// Initialize services
	app.taskService = service.NewTaskService(
		db,
		app.taskStore,
		app.stageStore,
		app.templateStore,
		app.registry,
		logger,
	)
	app.stageService = service.NewStageService(db, app.taskStore, app.stageStore, app.registry, logger)
	app.userService = service.NewUserService(app.userStore, auth.NewBcryptVerifier(), logger)
	app.analyticsService = service.NewAnalyticsService(statsStore, app.registry, logger)

	// Initialize the email transport and the notification worker
	transport, err := mailer.NewTransport(cfg.Mail, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mail transport: %w", err)
	}

	app.notifier = notify.New(notificationStore, transport, notify.Config{
		QueueSize:        cfg.Worker.QueueSize,
		RecoveryInterval: time.Duration(cfg.Worker.RecoveryIntervalMinutes) * time.Minute,
		RecoveryMinAge:   time.Duration(cfg.Worker.RecoveryMinAgeMinutes) * time.Minute,
	}, logger)

	if err := app.notifier.Start(); err != nil {
		return nil, fmt.Errorf("failed to start notification worker: %w", err)
	}

	// Initialize scheduled jobs behind the advisory lock so only one
	// replica runs the sweeps against a shared database.
	lock := jobs.NewSchedulerLock(db, cfg.Jobs.SchedulerLockKey, logger)
	sweep := jobs.NewOverdueSweep(
		db,
		app.taskStore,
		app.stageStore,
		app.registry,
		app.notifier,
		cfg.Jobs.ReminderWindowDays,
		nil,
		logger,
	)
	archival := jobs.NewArchivalJob(
		db,
		app.taskStore,
		postgres.NewPostgresArchiveStore(db, logger),
		app.registry,
		cfg.Jobs.ArchiveAfterDays,
		nil,
		logger,
	)
	app.scheduler = jobs.NewScheduler(cfg.Jobs, lock, sweep, archival, logger)

	if err := app.scheduler.Start(ctx); err != nil {
		app.notifier.Stop()
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns an error if the server fails to start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	err := app.startHTTPServer(ctx, router)
	if err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	// Stop the cron scheduler and release the advisory lock
	if app.scheduler != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		app.scheduler.Stop(ctx)
		cancel()
	}

	// Stop the notification worker, draining in-flight deliveries
	if app.notifier != nil {
		app.notifier.Stop()
	}

	// Close database connection
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
