package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mwhitlock/tasktrack-api/internal/domain"
	"github.com/mwhitlock/tasktrack-api/internal/notify"
	"github.com/mwhitlock/tasktrack-api/internal/store"
)

// Dispatcher queues a notification for asynchronous delivery. It is
// satisfied by notify.Notifier.
type Dispatcher interface {
	Enqueue(ctx context.Context, subject, body string, toEmail *string) (*domain.NotificationLog, error)
}

// OverdueSweep is the daily job that flips late tasks and their started
// stages to the overdue state and queues notifications for the assignees.
// It runs three phases, each isolated from the others: overdue tasks,
// overdue stages, and due-soon reminders. State changes commit before any
// notification is queued, so a delivery outage never rolls back the flips.
type OverdueSweep struct {
	db                 *sql.DB
	tasks              store.TaskStore
	stages             store.StageStore
	registry           *domain.StateRegistry
	dispatcher         Dispatcher
	reminderWindowDays int
	clock              Clock
	logger             *slog.Logger
}

// NewOverdueSweep creates the sweep job. It panics if db is nil; a nil
// clock falls back to the system clock.
func NewOverdueSweep(
	db *sql.DB,
	tasks store.TaskStore,
	stages store.StageStore,
	registry *domain.StateRegistry,
	dispatcher Dispatcher,
	reminderWindowDays int,
	clock Clock,
	logger *slog.Logger,
) *OverdueSweep {
	if db == nil {
		panic("db cannot be nil")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OverdueSweep{
		db:                 db,
		tasks:              tasks,
		stages:             stages,
		registry:           registry,
		dispatcher:         dispatcher,
		reminderWindowDays: reminderWindowDays,
		clock:              clock,
		logger:             logger.With(slog.String("component", "overdue_sweep")),
	}
}

// Name implements Job.
func (j *OverdueSweep) Name() string { return "overdue_sweep" }

// Run executes all three phases for the clock's current day. A phase
// failure is reported but does not stop the remaining phases.
func (j *OverdueSweep) Run(ctx context.Context) error {
	today := domain.DateOnly(j.clock.Now().UTC())

	completedID, err := j.registry.IDOf(domain.StateCompleted)
	if err != nil {
		return fmt.Errorf("failed to resolve completed state: %w", err)
	}
	overdueID, err := j.registry.IDOf(domain.StateOverdue)
	if err != nil {
		return fmt.Errorf("failed to resolve overdue state: %w", err)
	}

	var errs []error
	if err := j.sweepTasks(ctx, today, completedID, overdueID); err != nil {
		j.logger.Error("overdue task phase failed", slog.String("error", err.Error()))
		errs = append(errs, fmt.Errorf("overdue tasks: %w", err))
	}
	if err := j.sweepStages(ctx, today, completedID, overdueID); err != nil {
		j.logger.Error("overdue stage phase failed", slog.String("error", err.Error()))
		errs = append(errs, fmt.Errorf("overdue stages: %w", err))
	}
	if err := j.sendReminders(ctx, today, completedID); err != nil {
		j.logger.Error("reminder phase failed", slog.String("error", err.Error()))
		errs = append(errs, fmt.Errorf("reminders: %w", err))
	}
	return errors.Join(errs...)
}

// sweepTasks flips every live, uncompleted task past its due date to
// overdue and queues an alert per assigned task. Tasks already overdue are
// not rewritten but their assignees are alerted again on each run.
func (j *OverdueSweep) sweepTasks(ctx context.Context, today time.Time, completedID, overdueID int16) error {
	rows, err := j.tasks.FindOverdue(ctx, completedID, today)
	if err != nil {
		return fmt.Errorf("failed to find overdue tasks: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	flipped := 0
	err = store.RunInTransaction(ctx, j.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := j.tasks.WithTx(tx)
		for _, row := range rows {
			if row.Task.StateID == overdueID {
				continue
			}
			if err := txTasks.UpdateStatus(ctx, row.Task.ID, overdueID, nil); err != nil {
				return fmt.Errorf("failed to mark task %d overdue: %w", row.Task.ID, err)
			}
			flipped++
		}
		return nil
	})
	if err != nil {
		return err
	}

	j.logger.Info("overdue task sweep complete",
		slog.Int("found", len(rows)),
		slog.Int("flipped", flipped))

	for _, row := range rows {
		if row.AssigneeEmail == nil {
			continue
		}
		subject, body := notify.TaskOverdueMessage(row.Task, row.AssigneeName)
		if _, err := j.dispatcher.Enqueue(ctx, subject, body, row.AssigneeEmail); err != nil {
			j.logger.Warn("failed to queue overdue task notification",
				slog.Int64("task_id", row.Task.ID),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

// sweepStages flips started, unfinished stages of late tasks to overdue
// and queues a per-stage alert.
func (j *OverdueSweep) sweepStages(ctx context.Context, today time.Time, completedID, overdueID int16) error {
	rows, err := j.stages.FindOverdue(ctx, completedID, today)
	if err != nil {
		return fmt.Errorf("failed to find overdue stages: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	flipped := 0
	err = store.RunInTransaction(ctx, j.db, func(ctx context.Context, tx *sql.Tx) error {
		txStages := j.stages.WithTx(tx)
		for _, row := range rows {
			if row.Stage.StateID == overdueID {
				continue
			}
			if err := txStages.UpdateStatus(ctx, row.Stage.ID, overdueID); err != nil {
				return fmt.Errorf("failed to mark stage %d overdue: %w", row.Stage.ID, err)
			}
			flipped++
		}
		return nil
	})
	if err != nil {
		return err
	}

	j.logger.Info("overdue stage sweep complete",
		slog.Int("found", len(rows)),
		slog.Int("flipped", flipped))

	for _, row := range rows {
		if row.AssigneeEmail == nil {
			continue
		}
		subject, body := notify.StageOverdueMessage(row.Stage, row.TaskName, row.AssigneeName)
		if _, err := j.dispatcher.Enqueue(ctx, subject, body, row.AssigneeEmail); err != nil {
			j.logger.Warn("failed to queue overdue stage notification",
				slog.Int64("stage_id", row.Stage.ID),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

// sendReminders queues a reminder for each uncompleted task due within the
// look-ahead window, from tomorrow through today plus the configured
// number of days. Reminders change no task state.
func (j *OverdueSweep) sendReminders(ctx context.Context, today time.Time, completedID int16) error {
	from := today.AddDate(0, 0, 1)
	to := today.AddDate(0, 0, j.reminderWindowDays)

	rows, err := j.tasks.FindDueBetween(ctx, completedID, from, to)
	if err != nil {
		return fmt.Errorf("failed to find tasks due soon: %w", err)
	}

	queued := 0
	for _, row := range rows {
		if row.AssigneeEmail == nil {
			continue
		}
		subject, body := notify.ReminderMessage(row.Task, row.AssigneeName)
		if _, err := j.dispatcher.Enqueue(ctx, subject, body, row.AssigneeEmail); err != nil {
			j.logger.Warn("failed to queue reminder",
				slog.Int64("task_id", row.Task.ID),
				slog.String("error", err.Error()))
			continue
		}
		queued++
	}

	j.logger.Info("reminder sweep complete",
		slog.Int("found", len(rows)),
		slog.Int("queued", queued))
	return nil
}
