package store

import (
	"context"
	"time"

	"github.com/mwhitlock/tasktrack-api/internal/domain"
)

// NotificationLogStore defines the persistence interface for the durable
// notification log. A row is created in the pending state the moment a
// notification is requested; the delivery worker moves it to exactly one
// terminal state.
type NotificationLogStore interface {
	// Create persists a pending log row and populates its generated id.
	Create(ctx context.Context, log *domain.NotificationLog) error

	// GetByID retrieves a log row.
	// Returns ErrNotificationNotFound if it does not exist.
	GetByID(ctx context.Context, id int64) (*domain.NotificationLog, error)

	// MarkSent moves the row to the sent state with the given timestamp.
	MarkSent(ctx context.Context, id int64, at time.Time) error

	// MarkFailed moves the row to the failed state and records the
	// transport error text.
	MarkFailed(ctx context.Context, id int64, errorMessage string) error

	// FindPending returns pending rows created more than minAge ago,
	// ordered by creation time. The recovery pass uses it to requeue
	// notifications orphaned by a crash or a full dispatch queue; a zero
	// minAge returns every pending row.
	FindPending(ctx context.Context, minAge time.Duration) ([]*domain.NotificationLog, error)
}
