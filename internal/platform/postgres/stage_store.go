package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/mwhitlock/tasktrack-api/internal/domain"
	"github.com/mwhitlock/tasktrack-api/internal/platform/logger"
	"github.com/mwhitlock/tasktrack-api/internal/store"
)

// PostgresStageStore implements the store.StageStore interface
// using a PostgreSQL database as the storage backend.
type PostgresStageStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresStageStore creates a new PostgreSQL implementation of the
// StageStore interface. If logger is nil, a default logger will be used.
func NewPostgresStageStore(db store.DBTX, logger *slog.Logger) *PostgresStageStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresStageStore{
		db:     db,
		logger: logger.With(slog.String("component", "stage_store")),
	}
}

// Ensure PostgresStageStore implements store.StageStore interface
var _ store.StageStore = (*PostgresStageStore)(nil)

// WithTx implements store.StageStore.WithTx
func (s *PostgresStageStore) WithTx(tx *sql.Tx) store.StageStore {
	return &PostgresStageStore{
		db:     tx,
		logger: s.logger,
	}
}

const stageColumns = `id, task_id, name, estimated_hours, actual_hours, state_id,
	order_number, start_date, completed_date, created_at, updated_at`

// Create implements store.StageStore.Create
// Returns store.ErrInvalidEntity if the task does not exist or
// store.ErrDuplicate if the order number is already taken within the task.
func (s *PostgresStageStore) Create(ctx context.Context, stage *domain.Stage) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := stage.Validate(); err != nil {
		log.Warn("stage validation failed during create",
			slog.String("error", err.Error()),
			slog.Int64("task_id", stage.TaskID))
		return err
	}

	query := `
		INSERT INTO task_stages (task_id, name, estimated_hours, actual_hours,
			state_id, order_number, start_date, completed_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	err := s.db.QueryRowContext(
		ctx,
		query,
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
	).Scan(&stage.ID)

	if err != nil {
		log.Error("failed to create stage",
			slog.String("error", err.Error()),
			slog.Int64("task_id", stage.TaskID),
			slog.String("stage_name", stage.Name))
		return MapError(err)
	}

	log.Info("stage created",
		slog.Int64("stage_id", stage.ID),
		slog.Int64("task_id", stage.TaskID))
	return nil
}

// GetByID implements store.StageStore.GetByID
// Returns store.ErrStageNotFound if the stage does not exist.
func (s *PostgresStageStore) GetByID(ctx context.Context, id int64) (*domain.Stage, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + stageColumns + `
		FROM task_stages
		WHERE id = $1
	`

	stage, err := scanStage(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("stage not found", slog.Int64("stage_id", id))
			return nil, store.ErrStageNotFound
		}
		log.Error("failed to get stage by ID",
			slog.String("error", err.Error()),
			slog.Int64("stage_id", id))
		return nil, MapError(err)
	}

	return stage, nil
}

// ListByTask implements store.StageStore.ListByTask
func (s *PostgresStageStore) ListByTask(ctx context.Context, taskID int64) ([]*domain.Stage, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + stageColumns + `
		FROM task_stages
		WHERE task_id = $1
		ORDER BY order_number
	`

	rows, err := s.db.QueryContext(ctx, query, taskID)
	if err != nil {
		log.Error("failed to list stages",
			slog.String("error", err.Error()),
			slog.Int64("task_id", taskID))
		return nil, MapError(err)
	}
	defer closeRows(rows, log)

	stages := []*domain.Stage{}
	for rows.Next() {
		stage, err := scanStage(rows)
		if err != nil {
			log.Error("failed to scan stage row", slog.String("error", err.Error()))
			return nil, err
		}
		stages = append(stages, stage)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stages, nil
}

// Update implements store.StageStore.Update
// Returns store.ErrStageNotFound if the stage does not exist.
func (s *PostgresStageStore) Update(ctx context.Context, stage *domain.Stage) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := stage.Validate(); err != nil {
		log.Warn("stage validation failed during update",
			slog.String("error", err.Error()),
			slog.Int64("stage_id", stage.ID))
		return err
	}

	stage.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE task_stages
		SET name = $1, estimated_hours = $2, actual_hours = $3, state_id = $4,
			order_number = $5, start_date = $6, completed_date = $7, updated_at = $8
		WHERE id = $9
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		stage.Name,
		stage.EstimatedHours,
		stage.ActualHours,
		stage.StateID,
		stage.OrderNumber,
		stage.StartDate,
		stage.CompletedDate,
		stage.UpdatedAt,
		stage.ID,
	)
	if err != nil {
		log.Error("failed to update stage",
			slog.String("error", err.Error()),
			slog.Int64("stage_id", stage.ID))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "stage"); err != nil {
		return store.ErrStageNotFound
	}

	log.Info("stage updated",
		slog.Int64("stage_id", stage.ID),
		slog.Int64("task_id", stage.TaskID))
	return nil
}

// Delete implements store.StageStore.Delete
func (s *PostgresStageStore) Delete(ctx context.Context, id int64) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM task_stages WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete stage",
			slog.String("error", err.Error()),
			slog.Int64("stage_id", id))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "stage"); err != nil {
		return store.ErrStageNotFound
	}

	log.Info("stage deleted", slog.Int64("stage_id", id))
	return nil
}

// UpdateOrderNumbers implements store.StageStore.UpdateOrderNumbers
// It persists the order numbers currently set on the given stages. The
// unique constraint on (task_id, order_number) is deferred, so intermediate
// collisions inside the transaction are fine.
func (s *PostgresStageStore) UpdateOrderNumbers(ctx context.Context, stages []*domain.Stage) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE task_stages
		SET order_number = $1, updated_at = $2
		WHERE id = $3
	`

	now := time.Now().UTC()
	for _, stage := range stages {
		result, err := s.db.ExecContext(ctx, query, stage.OrderNumber, now, stage.ID)
		if err != nil {
			log.Error("failed to update stage order number",
				slog.String("error", err.Error()),
				slog.Int64("stage_id", stage.ID))
			return MapError(err)
		}
		if err := CheckRowsAffected(result, "stage"); err != nil {
			return store.ErrStageNotFound
		}
		stage.UpdatedAt = now
	}

	return nil
}

// MaxOrderNumber implements store.StageStore.MaxOrderNumber
func (s *PostgresStageStore) MaxOrderNumber(ctx context.Context, taskID int64) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var max int
	query := `
		SELECT COALESCE(MAX(order_number), 0)
		FROM task_stages
		WHERE task_id = $1
	`

	if err := s.db.QueryRowContext(ctx, query, taskID).Scan(&max); err != nil {
		log.Error("failed to get max order number",
			slog.String("error", err.Error()),
			slog.Int64("task_id", taskID))
		return 0, MapError(err)
	}

	return max, nil
}

// UpdateStatus implements store.StageStore.UpdateStatus
func (s *PostgresStageStore) UpdateStatus(ctx context.Context, id int64, stateID int16) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE task_stages
		SET state_id = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := s.db.ExecContext(ctx, query, stateID, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to update stage status",
			slog.String("error", err.Error()),
			slog.Int64("stage_id", id),
			slog.Int("state_id", int(stateID)))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "stage"); err != nil {
		return store.ErrStageNotFound
	}

	log.Debug("stage status updated",
		slog.Int64("stage_id", id),
		slog.Int("state_id", int(stateID)))
	return nil
}

// FindOverdue implements store.StageStore.FindOverdue
// A stage qualifies when it has been started but not completed, is not in
// the completed state, and its owning live task is due strictly before the
// given day.
func (s *PostgresStageStore) FindOverdue(
	ctx context.Context,
	completedStateID int16,
	taskDueBefore time.Time,
) ([]*store.StageWithTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT st.id, st.task_id, st.name, st.estimated_hours, st.actual_hours,
			st.state_id, st.order_number, st.start_date, st.completed_date,
			st.created_at, st.updated_at,
			t.name, u.email, u.full_name
		FROM task_stages st
		JOIN tasks t ON t.id = st.task_id
		LEFT JOIN users u ON u.id = t.assigned_user_id
		WHERE NOT t.is_deleted
			AND t.due_date < $2
			AND st.state_id <> $1
			AND st.start_date IS NOT NULL
			AND st.completed_date IS NULL
		ORDER BY st.task_id, st.order_number
	`

	rows, err := s.db.QueryContext(ctx, query, completedStateID, taskDueBefore)
	if err != nil {
		log.Error("failed to find overdue stages", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer closeRows(rows, log)

	results := []*store.StageWithTask{}
	for rows.Next() {
		var stage domain.Stage
		var taskName string
		var email, fullName *string

		err := rows.Scan(
			&stage.ID,
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
			&taskName,
			&email,
			&fullName,
		)
		if err != nil {
			log.Error("failed to scan overdue stage row", slog.String("error", err.Error()))
			return nil, err
		}

		normalizeStageDates(&stage)

		result := &store.StageWithTask{
			Stage:         &stage,
			TaskName:      taskName,
			AssigneeEmail: email,
		}
		if fullName != nil {
			result.AssigneeName = *fullName
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

func scanStage(row rowScanner) (*domain.Stage, error) {
	var stage domain.Stage

	err := row.Scan(
		&stage.ID,
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
	)
	if err != nil {
		return nil, err
	}

	normalizeStageDates(&stage)
	return &stage, nil
}

func normalizeStageDates(stage *domain.Stage) {
	if stage.StartDate != nil {
		stage.StartDate = domain.DatePtr(*stage.StartDate)
	}
	if stage.CompletedDate != nil {
		stage.CompletedDate = domain.DatePtr(*stage.CompletedDate)
	}
}
