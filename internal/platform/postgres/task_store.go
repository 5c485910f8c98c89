package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mwhitlock/tasktrack-api/internal/domain"
	"github.com/mwhitlock/tasktrack-api/internal/platform/logger"
	"github.com/mwhitlock/tasktrack-api/internal/store"
)

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the
// TaskStore interface. It accepts a database connection or transaction that
// should be initialized and managed by the caller. If logger is nil, a
// default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// WithTx implements store.TaskStore.WithTx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
	}
}

const taskColumns = `id, name, description, state_id, due_date, completed_date,
	priority, assigned_user_id, creator_id, idempotency_key,
	is_deleted, deleted_at, created_at, updated_at`

// Create implements store.TaskStore.Create
// It saves a new task and populates its generated id.
// Returns store.ErrDuplicate if the idempotency key is already in use and
// store.ErrInvalidEntity on reference violations (unknown state or user).
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()))
		return err
	}

	query := `
		INSERT INTO tasks (name, description, state_id, due_date, completed_date,
			priority, assigned_user_id, creator_id, idempotency_key,
			is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	err := s.db.QueryRowContext(
		ctx,
		query,
		task.Name,
		task.Description,
		task.StateID,
		task.DueDate,
		task.CompletedDate,
		task.Priority,
		task.AssignedUserID,
		task.CreatorID,
		task.IdempotencyKey,
		task.IsDeleted,
		task.CreatedAt,
		task.UpdatedAt,
	).Scan(&task.ID)

	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("duplicate idempotency key during task creation",
				slog.String("error", err.Error()))
			return fmt.Errorf("%w: idempotency key already used", store.ErrDuplicate)
		}
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_name", task.Name))
		return MapError(err)
	}

	log.Info("task created",
		slog.Int64("task_id", task.ID),
		slog.String("task_name", task.Name))
	return nil
}

// GetByID implements store.TaskStore.GetByID
// Returns store.ErrTaskNotFound if the task does not exist or is soft-deleted.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE id = $1 AND NOT is_deleted
	`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found", slog.Int64("task_id", id))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task by ID",
			slog.String("error", err.Error()),
			slog.Int64("task_id", id))
		return nil, MapError(err)
	}

	return task, nil
}

// GetByIDWithStages implements store.TaskStore.GetByIDWithStages
// It retrieves a task together with its stages ordered by order number.
func (s *PostgresTaskStore) GetByIDWithStages(ctx context.Context, id int64) (*domain.Task, error) {
	task, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	stagesByTask, err := s.loadStages(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	task.Stages = stagesByTask[id]
	if task.Stages == nil {
		task.Stages = []*domain.Stage{}
	}

	return task, nil
}

// GetByIdempotencyKey implements store.TaskStore.GetByIdempotencyKey
// Returns store.ErrTaskNotFound when no live task carries the key.
func (s *PostgresTaskStore) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE idempotency_key = $1 AND NOT is_deleted
	`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task by idempotency key",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	return task, nil
}

// List implements store.TaskStore.List
// It pages through live tasks by id using keyset pagination and loads the
// stages of the returned page in one query.
func (s *PostgresTaskStore) List(ctx context.Context, lastID int64, limit int) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE id > $1 AND NOT is_deleted
		ORDER BY id
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, lastID, limit)
	if err != nil {
		log.Error("failed to list tasks", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer closeRows(rows, log)

	tasks := []*domain.Task{}
	ids := []int64{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			log.Error("failed to scan task row", slog.String("error", err.Error()))
			return nil, err
		}
		tasks = append(tasks, task)
		ids = append(ids, task.ID)
	}
	if err := rows.Err(); err != nil {
		log.Error("error after scanning task rows", slog.String("error", err.Error()))
		return nil, err
	}

	if err := s.attachStages(ctx, tasks, ids); err != nil {
		return nil, err
	}

	return tasks, nil
}

// Update implements store.TaskStore.Update
// Returns store.ErrTaskNotFound if the task does not exist or is soft-deleted.
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during update",
			slog.String("error", err.Error()),
			slog.Int64("task_id", task.ID))
		return err
	}

	task.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE tasks
		SET name = $1, description = $2, state_id = $3, due_date = $4,
			completed_date = $5, priority = $6, assigned_user_id = $7,
			updated_at = $8
		WHERE id = $9 AND NOT is_deleted
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		task.Name,
		task.Description,
		task.StateID,
		task.DueDate,
		task.CompletedDate,
		task.Priority,
		task.AssignedUserID,
		task.UpdatedAt,
		task.ID,
	)
	if err != nil {
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.Int64("task_id", task.ID))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "task"); err != nil {
		return store.ErrTaskNotFound
	}

	log.Info("task updated", slog.Int64("task_id", task.ID))
	return nil
}

// UpdateStatus implements store.TaskStore.UpdateStatus
// When completedDate is nil the stored completed date is cleared, so moving
// a task out of the completed state erases the stale date in the same write.
func (s *PostgresTaskStore) UpdateStatus(
	ctx context.Context,
	id int64,
	stateID int16,
	completedDate *time.Time,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE tasks
		SET state_id = $1, completed_date = $2, updated_at = $3
		WHERE id = $4 AND NOT is_deleted
	`

	result, err := s.db.ExecContext(ctx, query, stateID, completedDate, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to update task status",
			slog.String("error", err.Error()),
			slog.Int64("task_id", id),
			slog.Int("state_id", int(stateID)))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "task"); err != nil {
		return store.ErrTaskNotFound
	}

	log.Debug("task status updated",
		slog.Int64("task_id", id),
		slog.Int("state_id", int(stateID)))
	return nil
}

// SoftDelete implements store.TaskStore.SoftDelete
func (s *PostgresTaskStore) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE tasks
		SET is_deleted = TRUE, deleted_at = $1, updated_at = $1
		WHERE id = $2 AND NOT is_deleted
	`

	result, err := s.db.ExecContext(ctx, query, at, id)
	if err != nil {
		log.Error("failed to soft-delete task",
			slog.String("error", err.Error()),
			slog.Int64("task_id", id))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "task"); err != nil {
		return store.ErrTaskNotFound
	}

	log.Info("task soft-deleted", slog.Int64("task_id", id))
	return nil
}

// Delete implements store.TaskStore.Delete
// It physically removes the task; stages cascade at the database level.
func (s *PostgresTaskStore) Delete(ctx context.Context, id int64) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.Int64("task_id", id))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "task"); err != nil {
		return store.ErrTaskNotFound
	}

	log.Info("task deleted", slog.Int64("task_id", id))
	return nil
}

// FindOverdue implements store.TaskStore.FindOverdue
func (s *PostgresTaskStore) FindOverdue(
	ctx context.Context,
	completedStateID int16,
	before time.Time,
) ([]*store.TaskWithAssignee, error) {
	query := `
		SELECT ` + prefixedTaskColumns("t") + `, u.email, u.full_name
		FROM tasks t
		LEFT JOIN users u ON u.id = t.assigned_user_id
		WHERE NOT t.is_deleted
			AND t.state_id <> $1
			AND t.due_date < $2
		ORDER BY t.id
	`
	return s.queryTasksWithAssignee(ctx, query, completedStateID, before)
}

// FindDueBetween implements store.TaskStore.FindDueBetween
func (s *PostgresTaskStore) FindDueBetween(
	ctx context.Context,
	completedStateID int16,
	from, to time.Time,
) ([]*store.TaskWithAssignee, error) {
	query := `
		SELECT ` + prefixedTaskColumns("t") + `, u.email, u.full_name
		FROM tasks t
		LEFT JOIN users u ON u.id = t.assigned_user_id
		WHERE NOT t.is_deleted
			AND t.state_id <> $1
			AND t.due_date BETWEEN $2 AND $3
		ORDER BY t.due_date, t.id
	`
	return s.queryTasksWithAssignee(ctx, query, completedStateID, from, to)
}

// FindArchivable implements store.TaskStore.FindArchivable
// It returns completed tasks whose completed date is on or before the
// cutoff, each with its stages loaded for snapshotting. Soft-deleted
// tasks are included: archival is how their rows finally leave the
// live tables.
func (s *PostgresTaskStore) FindArchivable(
	ctx context.Context,
	completedStateID int16,
	cutoff time.Time,
) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE state_id = $1
			AND completed_date IS NOT NULL
			AND completed_date <= $2
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, completedStateID, cutoff)
	if err != nil {
		log.Error("failed to find archivable tasks", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer closeRows(rows, log)

	tasks := []*domain.Task{}
	ids := []int64{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			log.Error("failed to scan archivable task row", slog.String("error", err.Error()))
			return nil, err
		}
		tasks = append(tasks, task)
		ids = append(ids, task.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.attachStages(ctx, tasks, ids); err != nil {
		return nil, err
	}

	return tasks, nil
}

func (s *PostgresTaskStore) queryTasksWithAssignee(
	ctx context.Context,
	query string,
	args ...any,
) ([]*store.TaskWithAssignee, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query tasks with assignee", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer closeRows(rows, log)

	results := []*store.TaskWithAssignee{}
	for rows.Next() {
		var task domain.Task
		var priority string
		var email, fullName *string

		err := rows.Scan(
			&task.ID,
			&task.Name,
			&task.Description,
			&task.StateID,
			&task.DueDate,
			&task.CompletedDate,
			&priority,
			&task.AssignedUserID,
			&task.CreatorID,
			&task.IdempotencyKey,
			&task.IsDeleted,
			&task.DeletedAt,
			&task.CreatedAt,
			&task.UpdatedAt,
			&email,
			&fullName,
		)
		if err != nil {
			log.Error("failed to scan task with assignee", slog.String("error", err.Error()))
			return nil, err
		}

		task.Priority = domain.Priority(priority)
		normalizeTaskDates(&task)

		result := &store.TaskWithAssignee{Task: &task, AssigneeEmail: email}
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

// loadStages fetches the stages of the given tasks in one query, grouped by
// task id and ordered by order number within each task.
func (s *PostgresTaskStore) loadStages(ctx context.Context, taskIDs []int64) (map[int64][]*domain.Stage, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, task_id, name, estimated_hours, actual_hours, state_id,
			order_number, start_date, completed_date, created_at, updated_at
		FROM task_stages
		WHERE task_id = ANY($1)
		ORDER BY task_id, order_number
	`

	rows, err := s.db.QueryContext(ctx, query, taskIDs)
	if err != nil {
		log.Error("failed to load stages", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer closeRows(rows, log)

	byTask := make(map[int64][]*domain.Stage, len(taskIDs))
	for rows.Next() {
		stage, err := scanStage(rows)
		if err != nil {
			log.Error("failed to scan stage row", slog.String("error", err.Error()))
			return nil, err
		}
		byTask[stage.TaskID] = append(byTask[stage.TaskID], stage)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return byTask, nil
}

func (s *PostgresTaskStore) attachStages(ctx context.Context, tasks []*domain.Task, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	stagesByTask, err := s.loadStages(ctx, ids)
	if err != nil {
		return err
	}
	for _, task := range tasks {
		task.Stages = stagesByTask[task.ID]
		if task.Stages == nil {
			task.Stages = []*domain.Stage{}
		}
	}
	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	var priority string

	err := row.Scan(
		&task.ID,
		&task.Name,
		&task.Description,
		&task.StateID,
		&task.DueDate,
		&task.CompletedDate,
		&priority,
		&task.AssignedUserID,
		&task.CreatorID,
		&task.IdempotencyKey,
		&task.IsDeleted,
		&task.DeletedAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Priority = domain.Priority(priority)
	normalizeTaskDates(&task)
	return &task, nil
}

// normalizeTaskDates pins the DATE columns back to midnight UTC. The driver
// scans them in the session time zone, which would otherwise leak into date
// comparisons in the domain rules.
func normalizeTaskDates(task *domain.Task) {
	task.DueDate = domain.DateOnly(task.DueDate)
	if task.CompletedDate != nil {
		task.CompletedDate = domain.DatePtr(*task.CompletedDate)
	}
}

func prefixedTaskColumns(alias string) string {
	return alias + `.id, ` + alias + `.name, ` + alias + `.description, ` +
		alias + `.state_id, ` + alias + `.due_date, ` + alias + `.completed_date, ` +
		alias + `.priority, ` + alias + `.assigned_user_id, ` + alias + `.creator_id, ` +
		alias + `.idempotency_key, ` + alias + `.is_deleted, ` + alias + `.deleted_at, ` +
		alias + `.created_at, ` + alias + `.updated_at`
}

func closeRows(rows *sql.Rows, log *slog.Logger) {
	if err := rows.Close(); err != nil {
		log.Error("failed to close rows", slog.String("error", err.Error()))
	}
}
