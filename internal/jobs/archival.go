package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mwhitlock/tasktrack-api/internal/domain"
	"github.com/mwhitlock/tasktrack-api/internal/store"
)

// ArchivalJob moves completed tasks whose completed date has aged past the
// retention window into the append-only archive. Each task is archived in
// its own transaction: the snapshot rows and the hard delete of the live
// task commit together, so a crash mid-run leaves every task either fully
// live or fully archived.
type ArchivalJob struct {
	db               *sql.DB
	tasks            store.TaskStore
	archive          store.ArchiveStore
	registry         *domain.StateRegistry
	archiveAfterDays int
	clock            Clock
	logger           *slog.Logger
}

// NewArchivalJob creates the archival job. It panics if db is nil; a nil
// clock falls back to the system clock.
func NewArchivalJob(
	db *sql.DB,
	tasks store.TaskStore,
	archive store.ArchiveStore,
	registry *domain.StateRegistry,
	archiveAfterDays int,
	clock Clock,
	logger *slog.Logger,
) *ArchivalJob {
	if db == nil {
		panic("db cannot be nil")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ArchivalJob{
		db:               db,
		tasks:            tasks,
		archive:          archive,
		registry:         registry,
		archiveAfterDays: archiveAfterDays,
		clock:            clock,
		logger:           logger.With(slog.String("component", "archival")),
	}
}

// Name implements Job.
func (j *ArchivalJob) Name() string { return "archival" }

// Run archives every task eligible as of the clock's current day. A
// failure on one task is reported but does not stop the rest.
func (j *ArchivalJob) Run(ctx context.Context) error {
	now := j.clock.Now().UTC()
	today := domain.DateOnly(now)
	cutoff := today.AddDate(0, 0, -j.archiveAfterDays)

	completedID, err := j.registry.IDOf(domain.StateCompleted)
	if err != nil {
		return fmt.Errorf("failed to resolve completed state: %w", err)
	}

	tasks, err := j.tasks.FindArchivable(ctx, completedID, cutoff)
	if err != nil {
		return fmt.Errorf("failed to find archivable tasks: %w", err)
	}
	if len(tasks) == 0 {
		return nil
	}

	archived := 0
	var errs []error
	for _, task := range tasks {
		if err := j.archiveOne(ctx, task, now); err != nil {
			j.logger.Error("failed to archive task",
				slog.Int64("task_id", task.ID),
				slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("task %d: %w", task.ID, err))
			continue
		}
		archived++
	}

	j.logger.Info("archival run complete",
		slog.Int("eligible", len(tasks)),
		slog.Int("archived", archived))
	return errors.Join(errs...)
}

func (j *ArchivalJob) archiveOne(ctx context.Context, task *domain.Task, archivedAt time.Time) error {
	return store.RunInTransaction(ctx, j.db, func(ctx context.Context, tx *sql.Tx) error {
		txArchive := j.archive.WithTx(tx)

		if err := txArchive.CreateTask(ctx, domain.SnapshotTask(task, archivedAt)); err != nil {
			return fmt.Errorf("failed to snapshot task: %w", err)
		}
		for _, stage := range task.Stages {
			if err := txArchive.CreateStage(ctx, domain.SnapshotStage(stage, archivedAt)); err != nil {
				return fmt.Errorf("failed to snapshot stage %d: %w", stage.ID, err)
			}
		}

		// The snapshot is in place, remove the live rows. Stages go via
		// the cascade.
		if err := j.tasks.WithTx(tx).Delete(ctx, task.ID); err != nil {
			return fmt.Errorf("failed to delete live task: %w", err)
		}
		return nil
	})
}
