package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mwhitlock/tasktrack-api/internal/domain"
	"github.com/mwhitlock/tasktrack-api/internal/platform/logger"
	"github.com/mwhitlock/tasktrack-api/internal/store"
)

// StageInput is one stage supplied with task creation.
type StageInput struct {
	Name           string
	EstimatedHours float64
}

// CreateTaskInput carries everything needed to create a task. When
// TemplateID is set the template's stage blueprint is copied and any inline
// Stages are ignored.
type CreateTaskInput struct {
	Name           string
	Description    string
	DueDate        time.Time
	Priority       domain.Priority
	AssignedUserID *uuid.UUID
	CreatorID      *uuid.UUID
	TemplateID     *int64
	IdempotencyKey *string
	Stages         []StageInput
}

// UpdateTaskInput carries the optional task fields an update may change.
// Nil pointers leave the stored value untouched.
type UpdateTaskInput struct {
	Name           *string
	Description    *string
	DueDate        *time.Time
	Priority       *domain.Priority
	AssignedUserID *uuid.UUID
	State          *domain.StateName
}

// TaskService orchestrates task lifecycle operations.
type TaskService struct {
	db        *sql.DB
	tasks     store.TaskStore
	stages    store.StageStore
	templates store.TemplateStore
	registry  *domain.StateRegistry
	logger    *slog.Logger
	now       func() time.Time // Injectable for testing
}

// NewTaskService creates a TaskService. If logger is nil, a default logger
// will be used.
func NewTaskService(
	db *sql.DB,
	tasks store.TaskStore,
	stages store.StageStore,
	templates store.TemplateStore,
	registry *domain.StateRegistry,
	logger *slog.Logger,
) *TaskService {
	if logger == nil {
		logger = slog.Default()
	}

	return &TaskService{
		db:        db,
		tasks:     tasks,
		stages:    stages,
		templates: templates,
		registry:  registry,
		logger:    logger.With(slog.String("component", "task_service")),
		now:       time.Now,
	}
}

// CreateTask creates a task with its stages in one transaction. A repeated
// idempotency key returns the task created by the first request instead of
// a duplicate; reusing a key with different task fields is rejected with
// ErrIdempotencyMismatch.
func (s *TaskService) CreateTask(ctx context.Context, input CreateTaskInput) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if input.IdempotencyKey != nil {
		existing, err := s.tasks.GetByIdempotencyKey(ctx, *input.IdempotencyKey)
		if err == nil {
			if existing.Name != input.Name ||
				!existing.DueDate.Equal(domain.DateOnly(input.DueDate)) ||
				existing.Priority != input.Priority {
				log.Warn("idempotency key reused with different fields",
					slog.Int64("task_id", existing.ID))
				return nil, fmt.Errorf("%w: key %q", ErrIdempotencyMismatch, *input.IdempotencyKey)
			}
			log.Info("idempotency key replay, returning existing task",
				slog.Int64("task_id", existing.ID))
			return s.tasks.GetByIDWithStages(ctx, existing.ID)
		}
		if !errors.Is(err, store.ErrTaskNotFound) {
			return nil, NewTaskServiceError("create_task", "idempotency lookup failed", err)
		}
	}

	task, err := domain.NewTask(
		input.Name,
		input.Description,
		input.DueDate,
		input.Priority,
		s.registry.MustID(domain.StatePending),
	)
	if err != nil {
		return nil, err
	}
	task.AssignedUserID = input.AssignedUserID
	task.CreatorID = input.CreatorID
	task.IdempotencyKey = input.IdempotencyKey

	stageInputs := input.Stages
	if input.TemplateID != nil {
		tpl, err := s.templates.GetByID(ctx, *input.TemplateID)
		if err != nil {
			return nil, NewTaskServiceError("create_task", "template lookup failed", err)
		}
		stageInputs = make([]StageInput, 0, len(tpl.Stages))
		for _, ts := range tpl.Stages {
			stageInputs = append(stageInputs, StageInput{
				Name:           ts.Name,
				EstimatedHours: ts.EstimatedHours,
			})
		}
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)
		txStages := s.stages.WithTx(tx)

		if err := txTasks.Create(ctx, task); err != nil {
			return err
		}

		task.Stages = make([]*domain.Stage, 0, len(stageInputs))
		for i, in := range stageInputs {
			stage, err := domain.NewStage(
				task.ID,
				in.Name,
				in.EstimatedHours,
				i+1,
				s.registry.MustID(domain.StatePending),
			)
			if err != nil {
				return err
			}
			if err := txStages.Create(ctx, stage); err != nil {
				return err
			}
			task.Stages = append(task.Stages, stage)
		}

		return nil
	})
	if err != nil {
		// Lost a race on the idempotency key: the winner's task is the
		// canonical result.
		if input.IdempotencyKey != nil && errors.Is(err, store.ErrDuplicate) {
			if existing, lookupErr := s.tasks.GetByIdempotencyKey(ctx, *input.IdempotencyKey); lookupErr == nil {
				return s.tasks.GetByIDWithStages(ctx, existing.ID)
			}
		}
		return nil, err
	}

	log.Info("task created",
		slog.Int64("task_id", task.ID),
		slog.Int("stage_count", len(task.Stages)))
	return task, nil
}

// GetTask retrieves a task with its stages.
func (s *TaskService) GetTask(ctx context.Context, id int64) (*domain.Task, error) {
	return s.tasks.GetByIDWithStages(ctx, id)
}

// ListTasks pages through live tasks by id.
func (s *TaskService) ListTasks(ctx context.Context, lastID int64, limit int) ([]*domain.Task, error) {
	return s.tasks.List(ctx, lastID, limit)
}

// UpdateTask applies a partial update. An explicit move into the completed
// state requires every stage to already be completed and stamps the
// completed date; moving out of completed clears it.
func (s *TaskService) UpdateTask(ctx context.Context, id int64, input UpdateTaskInput) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var updated *domain.Task
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)

		task, err := txTasks.GetByIDWithStages(ctx, id)
		if err != nil {
			return err
		}

		if input.Name != nil {
			task.Name = *input.Name
		}
		if input.Description != nil {
			task.Description = *input.Description
		}
		if input.DueDate != nil {
			task.DueDate = domain.DateOnly(*input.DueDate)
		}
		if input.Priority != nil {
			task.Priority = *input.Priority
		}
		if input.AssignedUserID != nil {
			task.AssignedUserID = input.AssignedUserID
		}

		if input.State != nil {
			targetID, err := s.registry.IDOf(*input.State)
			if err != nil {
				return err
			}

			completedID := s.registry.MustID(domain.StateCompleted)
			if targetID == completedID {
				if err := task.CanComplete(task.Stages, completedID); err != nil {
					return err
				}
				if task.CompletedDate == nil {
					task.CompletedDate = domain.DatePtr(s.now())
				}
			} else {
				task.CompletedDate = nil
			}
			task.StateID = targetID
		}

		if err := txTasks.Update(ctx, task); err != nil {
			return err
		}

		updated = task
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("task updated", slog.Int64("task_id", id))
	return updated, nil
}

// DeleteTask soft-deletes a task. Its stages stay in place for the
// archival snapshot but no read path returns the task anymore.
func (s *TaskService) DeleteTask(ctx context.Context, id int64) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := s.tasks.SoftDelete(ctx, id, s.now().UTC()); err != nil {
		return err
	}

	log.Info("task deleted", slog.Int64("task_id", id))
	return nil
}

// recomputeStatusTx rederives a task's status from its stages inside the
// caller's transaction and writes the result when it differs from the
// stored state. Shared by the stage mutations that trigger propagation.
func recomputeStatusTx(
	ctx context.Context,
	txTasks store.TaskStore,
	txStages store.StageStore,
	registry *domain.StateRegistry,
	taskID int64,
	today time.Time,
) error {
	task, err := txTasks.GetByID(ctx, taskID)
	if err != nil {
		return err
	}

	stages, err := txStages.ListByTask(ctx, taskID)
	if err != nil {
		return err
	}

	decision := domain.ResolveTaskStatus(task, stages, registry, today)
	if !decision.Changed {
		return nil
	}

	newID := registry.MustID(decision.State)
	sameDate := (decision.CompletedDate == nil) == (task.CompletedDate == nil) &&
		(decision.CompletedDate == nil || decision.CompletedDate.Equal(*task.CompletedDate))
	if newID == task.StateID && sameDate {
		return nil
	}

	return txTasks.UpdateStatus(ctx, taskID, newID, decision.CompletedDate)
}
