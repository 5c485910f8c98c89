package store

import (
	"context"
	"database/sql"

	"github.com/mwhitlock/tasktrack-api/internal/domain"
)

// ArchiveStore defines the persistence interface for the append-only
// archive. Records are written by the archival job inside the same
// transaction that removes the live task, and never mutated afterwards.
type ArchiveStore interface {
	// CreateTask writes one archived task snapshot.
	CreateTask(ctx context.Context, task *domain.ArchivedTask) error

	// CreateStage writes one archived stage snapshot.
	CreateStage(ctx context.Context, stage *domain.ArchivedStage) error

	// GetTask retrieves an archived task by the original task id.
	// Returns ErrTaskNotFound when no snapshot exists.
	GetTask(ctx context.Context, taskID int64) (*domain.ArchivedTask, error)

	// ListStages returns the archived stages of a task ordered by order
	// number.
	ListStages(ctx context.Context, taskID int64) ([]*domain.ArchivedStage, error)

	// WithTx returns an ArchiveStore bound to the given transaction.
	WithTx(tx *sql.Tx) ArchiveStore
}
