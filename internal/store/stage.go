package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/mwhitlock/tasktrack-api/internal/domain"
)

// StageWithTask pairs a stage with the owning task's name and assignee
// contact details, resolved in one query for the overdue sweep.
type StageWithTask struct {
	Stage         *domain.Stage
	TaskName      string
	AssigneeEmail *string
	AssigneeName  string
}

// StageStore defines the persistence interface for task stages.
type StageStore interface {
	// Create saves a new stage and populates its generated id.
	Create(ctx context.Context, stage *domain.Stage) error

	// GetByID retrieves a stage.
	// Returns ErrStageNotFound if the stage does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Stage, error)

	// ListByTask returns the task's stages ordered by order number.
	ListByTask(ctx context.Context, taskID int64) ([]*domain.Stage, error)

	// Update saves changes to an existing stage.
	Update(ctx context.Context, stage *domain.Stage) error

	// Delete removes the stage. Returns ErrStageNotFound if it does not
	// exist. Callers renumber the surviving stages afterwards.
	Delete(ctx context.Context, id int64) error

	// UpdateOrderNumbers persists the order numbers currently set on the
	// given stages.
	UpdateOrderNumbers(ctx context.Context, stages []*domain.Stage) error

	// MaxOrderNumber returns the highest order number among the task's
	// stages, or 0 when it has none.
	MaxOrderNumber(ctx context.Context, taskID int64) (int, error)

	// UpdateStatus sets a single stage's state, touching updated_at.
	UpdateStatus(ctx context.Context, id int64, stateID int16) error

	// FindOverdue returns stages that have been started but not completed,
	// are not in the completed state, and whose owning live task is due
	// strictly before the given day.
	FindOverdue(ctx context.Context, completedStateID int16, taskDueBefore time.Time) ([]*StageWithTask, error)

	// WithTx returns a StageStore bound to the given transaction.
	WithTx(tx *sql.Tx) StageStore
}
