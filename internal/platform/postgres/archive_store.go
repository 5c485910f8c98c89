package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/mwhitlock/tasktrack-api/internal/domain"
	"github.com/mwhitlock/tasktrack-api/internal/platform/logger"
	"github.com/mwhitlock/tasktrack-api/internal/store"
)

// PostgresArchiveStore implements the store.ArchiveStore interface
// using a PostgreSQL database as the storage backend.
type PostgresArchiveStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresArchiveStore creates a new PostgreSQL implementation of the
// ArchiveStore interface. If logger is nil, a default logger will be used.
func NewPostgresArchiveStore(db store.DBTX, logger *slog.Logger) *PostgresArchiveStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresArchiveStore{
		db:     db,
		logger: logger.With(slog.String("component", "archive_store")),
	}
}

// Ensure PostgresArchiveStore implements store.ArchiveStore interface
var _ store.ArchiveStore = (*PostgresArchiveStore)(nil)

// WithTx implements store.ArchiveStore.WithTx
func (s *PostgresArchiveStore) WithTx(tx *sql.Tx) store.ArchiveStore {
	return &PostgresArchiveStore{
		db:     tx,
		logger: s.logger,
	}
}

// CreateTask implements store.ArchiveStore.CreateTask
// Returns store.ErrDuplicate if a snapshot for the task already exists.
func (s *PostgresArchiveStore) CreateTask(ctx context.Context, task *domain.ArchivedTask) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO archived_tasks (task_id, name, description, state_id, due_date,
			completed_date, priority, assigned_user_id, creator_id, idempotency_key,
			created_at, updated_at, archived_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		task.TaskID,
		task.Name,
		task.Description,
		task.StateID,
		task.DueDate,
		task.CompletedDate,
		task.Priority,
		task.AssignedUserID,
		task.CreatorID,
		task.IdempotencyKey,
		task.CreatedAt,
		task.UpdatedAt,
		task.ArchivedAt,
	)
	if err != nil {
		log.Error("failed to archive task",
			slog.String("error", err.Error()),
			slog.Int64("task_id", task.TaskID))
		return MapError(err)
	}

	log.Info("task archived", slog.Int64("task_id", task.TaskID))
	return nil
}

// CreateStage implements store.ArchiveStore.CreateStage
func (s *PostgresArchiveStore) CreateStage(ctx context.Context, stage *domain.ArchivedStage) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO archived_task_stages (stage_id, task_id, name, estimated_hours,
			actual_hours, state_id, order_number, start_date, completed_date,
			created_at, updated_at, archived_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		stage.StageID,
		stage.TaskID,
		stage.Name,
		stage.EstimatedHours,
		stage.ActualHours,
		stage.StateID,
		stage.OrderNumber,
		stage.StartDate,
		stage.CompletedDate,
		stage.CreatedAt,
		stage.UpdatedAt,
		stage.ArchivedAt,
	)
	if err != nil {
		log.Error("failed to archive stage",
			slog.String("error", err.Error()),
			slog.Int64("stage_id", stage.StageID),
			slog.Int64("task_id", stage.TaskID))
		return MapError(err)
	}

	return nil
}

// GetTask implements store.ArchiveStore.GetTask
// Returns store.ErrTaskNotFound when no snapshot exists for the task id.
func (s *PostgresArchiveStore) GetTask(ctx context.Context, taskID int64) (*domain.ArchivedTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT task_id, name, description, state_id, due_date, completed_date,
			priority, assigned_user_id, creator_id, idempotency_key,
			created_at, updated_at, archived_at
		FROM archived_tasks
		WHERE task_id = $1
	`

	var task domain.ArchivedTask
	var priority string

	err := s.db.QueryRowContext(ctx, query, taskID).Scan(
		&task.TaskID,
		&task.Name,
		&task.Description,
		&task.StateID,
		&task.DueDate,
		&task.CompletedDate,
		&priority,
		&task.AssignedUserID,
		&task.CreatorID,
		&task.IdempotencyKey,
		&task.CreatedAt,
		&task.UpdatedAt,
		&task.ArchivedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get archived task",
			slog.String("error", err.Error()),
			slog.Int64("task_id", taskID))
		return nil, MapError(err)
	}

	task.Priority = domain.Priority(priority)
	task.DueDate = domain.DateOnly(task.DueDate)
	if task.CompletedDate != nil {
		task.CompletedDate = domain.DatePtr(*task.CompletedDate)
	}
	return &task, nil
}

// ListStages implements store.ArchiveStore.ListStages
func (s *PostgresArchiveStore) ListStages(ctx context.Context, taskID int64) ([]*domain.ArchivedStage, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT stage_id, task_id, name, estimated_hours, actual_hours, state_id,
			order_number, start_date, completed_date, created_at, updated_at, archived_at
		FROM archived_task_stages
		WHERE task_id = $1
		ORDER BY order_number
	`

	rows, err := s.db.QueryContext(ctx, query, taskID)
	if err != nil {
		log.Error("failed to list archived stages",
			slog.String("error", err.Error()),
			slog.Int64("task_id", taskID))
		return nil, MapError(err)
	}
	defer closeRows(rows, log)

	stages := []*domain.ArchivedStage{}
	for rows.Next() {
		var stage domain.ArchivedStage

		err := rows.Scan(
			&stage.StageID,
			&stage.TaskID,
			&stage.Name,
			&stage.EstimatedHours,
			&stage.ActualHours,
			&stage.StateID,
			&stage.OrderNumber,
			&stage.StartDate,
			&stage.CompletedDate,
			&stage.CreatedAt,
			&stage.UpdatedAt,
			&stage.ArchivedAt,
		)
		if err != nil {
			log.Error("failed to scan archived stage row", slog.String("error", err.Error()))
			return nil, err
		}

		if stage.StartDate != nil {
			stage.StartDate = domain.DatePtr(*stage.StartDate)
		}
		if stage.CompletedDate != nil {
			stage.CompletedDate = domain.DatePtr(*stage.CompletedDate)
		}
		stages = append(stages, &stage)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stages, nil
}
