package service

import (
	"context"
	"database/sql"
	"log/slog"
	"sort"
	"time"

	"github.com/mwhitlock/tasktrack-api/internal/domain"
	"github.com/mwhitlock/tasktrack-api/internal/platform/logger"
	"github.com/mwhitlock/tasktrack-api/internal/store"
)

// UpdateStageInput carries the optional fields a stage update may change.
// Nil pointers leave the stored value untouched. Supplying State triggers a
// status transition with its date derivation; ActualHours, StartDate and
// CompletedDate overwrite stored values either way (last write wins).
type UpdateStageInput struct {
	Name           *string
	EstimatedHours *float64
	State          *domain.StateName
	ActualHours    *float64
	StartDate      *time.Time
	CompletedDate  *time.Time
}

// StageService orchestrates stage mutations and the status propagation
// they trigger on the owning task. Every mutation and its propagation run
// in one transaction, so a task's status never detaches from its stages.
type StageService struct {
	db       *sql.DB
	tasks    store.TaskStore
	stages   store.StageStore
	registry *domain.StateRegistry
	logger   *slog.Logger
	now      func() time.Time // Injectable for testing
}

// NewStageService creates a StageService. If logger is nil, a default
// logger will be used.
func NewStageService(
	db *sql.DB,
	tasks store.TaskStore,
	stages store.StageStore,
	registry *domain.StateRegistry,
	logger *slog.Logger,
) *StageService {
	if logger == nil {
		logger = slog.Default()
	}

	return &StageService{
		db:       db,
		tasks:    tasks,
		stages:   stages,
		registry: registry,
		logger:   logger.With(slog.String("component", "stage_service")),
		now:      time.Now,
	}
}

// AddStage appends a pending stage to the end of the task's sequence.
func (s *StageService) AddStage(ctx context.Context, taskID int64, input StageInput) (*domain.Stage, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var created *domain.Stage
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)
		txStages := s.stages.WithTx(tx)

		if _, err := txTasks.GetByID(ctx, taskID); err != nil {
			return err
		}

		max, err := txStages.MaxOrderNumber(ctx, taskID)
		if err != nil {
			return err
		}

		stage, err := domain.NewStage(
			taskID,
			input.Name,
			input.EstimatedHours,
			max+1,
			s.registry.MustID(domain.StatePending),
		)
		if err != nil {
			return err
		}

		if err := txStages.Create(ctx, stage); err != nil {
			return err
		}

		// A new pending stage can undo an automatic completion.
		if err := recomputeStatusTx(ctx, txTasks, txStages, s.registry, taskID, s.now()); err != nil {
			return err
		}

		created = stage
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("stage added",
		slog.Int64("stage_id", created.ID),
		slog.Int64("task_id", taskID))
	return created, nil
}

// UpdateStage applies a partial update, runs any requested status
// transition, and propagates the outcome to the owning task.
func (s *StageService) UpdateStage(ctx context.Context, stageID int64, input UpdateStageInput) (*domain.Stage, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var updated *domain.Stage
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)
		txStages := s.stages.WithTx(tx)

		stage, err := txStages.GetByID(ctx, stageID)
		if err != nil {
			return err
		}

		if input.Name != nil {
			stage.Name = *input.Name
		}
		if input.EstimatedHours != nil {
			stage.EstimatedHours = *input.EstimatedHours
		}

		if input.State != nil {
			targetID, err := s.registry.IDOf(*input.State)
			if err != nil {
				return err
			}
			err = stage.ApplyTransition(*input.State, targetID, domain.TransitionInput{
				ActualHours:   input.ActualHours,
				StartDate:     input.StartDate,
				CompletedDate: input.CompletedDate,
			}, s.now())
			if err != nil {
				return err
			}
		} else {
			if input.ActualHours != nil {
				stage.ActualHours = input.ActualHours
			}
			if input.StartDate != nil {
				stage.StartDate = domain.DatePtr(*input.StartDate)
			}
			if input.CompletedDate != nil {
				stage.CompletedDate = domain.DatePtr(*input.CompletedDate)
			}
		}

		if err := txStages.Update(ctx, stage); err != nil {
			return err
		}

		if err := recomputeStatusTx(ctx, txTasks, txStages, s.registry, stage.TaskID, s.now()); err != nil {
			return err
		}

		updated = stage
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("stage updated",
		slog.Int64("stage_id", stageID),
		slog.Int64("task_id", updated.TaskID))
	return updated, nil
}

// DeleteStage removes a stage, closes the gap in the order sequence, and
// propagates the change to the owning task. Deleting the last open stage
// can complete the task.
func (s *StageService) DeleteStage(ctx context.Context, stageID int64) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var taskID int64
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)
		txStages := s.stages.WithTx(tx)

		stage, err := txStages.GetByID(ctx, stageID)
		if err != nil {
			return err
		}
		taskID = stage.TaskID

		if err := txStages.Delete(ctx, stageID); err != nil {
			return err
		}

		remaining, err := txStages.ListByTask(ctx, taskID)
		if err != nil {
			return err
		}
		sort.Slice(remaining, func(i, j int) bool {
			return remaining[i].OrderNumber < remaining[j].OrderNumber
		})
		domain.Renumber(remaining)
		if err := txStages.UpdateOrderNumbers(ctx, remaining); err != nil {
			return err
		}

		return recomputeStatusTx(ctx, txTasks, txStages, s.registry, taskID, s.now())
	})
	if err != nil {
		return err
	}

	log.Info("stage deleted",
		slog.Int64("stage_id", stageID),
		slog.Int64("task_id", taskID))
	return nil
}
