package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/mwhitlock/tasktrack-api/internal/domain"
)

// TaskWithAssignee pairs a task with the contact details of its assigned
// user, resolved in one query. The scheduled jobs use it to compose
// notifications without a read per task; a nil AssigneeEmail means the task
// has no resolvable recipient.
type TaskWithAssignee struct {
	Task          *domain.Task
	AssigneeEmail *string
	AssigneeName  string
}

// TaskStore defines the persistence interface for tasks.
// Reads exclude soft-deleted rows unless noted otherwise.
type TaskStore interface {
	// Create saves a new task and populates its generated id.
	// Returns ErrDuplicate if the idempotency key is already in use.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task without its stages.
	// Returns ErrTaskNotFound if the task does not exist or is soft-deleted.
	GetByID(ctx context.Context, id int64) (*domain.Task, error)

	// GetByIDWithStages retrieves a task together with its stages ordered
	// by order number.
	GetByIDWithStages(ctx context.Context, id int64) (*domain.Task, error)

	// GetByIdempotencyKey retrieves the live task created with the given
	// idempotency key. Returns ErrTaskNotFound when no such task exists.
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Task, error)

	// List returns tasks with id greater than lastID, ordered by id, at
	// most limit rows, each with its stages loaded.
	List(ctx context.Context, lastID int64, limit int) ([]*domain.Task, error)

	// Update saves changes to an existing task's mutable fields.
	Update(ctx context.Context, task *domain.Task) error

	// UpdateStatus sets the task's state and, when non-nil, its completed
	// date, touching updated_at.
	UpdateStatus(ctx context.Context, id int64, stateID int16, completedDate *time.Time) error

	// SoftDelete marks the task deleted without removing the row.
	SoftDelete(ctx context.Context, id int64, at time.Time) error

	// Delete physically removes the task; its stages go with it
	// (cascade). Used by the archival job after the snapshot is written.
	Delete(ctx context.Context, id int64) error

	// FindOverdue returns live tasks not in the completed state whose due
	// date is strictly before the given day, with assignee contact details.
	FindOverdue(ctx context.Context, completedStateID int16, before time.Time) ([]*TaskWithAssignee, error)

	// FindDueBetween returns live tasks not in the completed state whose
	// due date falls in [from, to] (both ends inclusive), with assignee
	// contact details. Used for the look-ahead reminders.
	FindDueBetween(ctx context.Context, completedStateID int16, from, to time.Time) ([]*TaskWithAssignee, error)

	// FindArchivable returns completed tasks with completed date on or
	// before the cutoff, each with its stages loaded.
	FindArchivable(ctx context.Context, completedStateID int16, cutoff time.Time) ([]*domain.Task, error)

	// WithTx returns a TaskStore bound to the given transaction.
	WithTx(tx *sql.Tx) TaskStore
}
