package store

import (
	"context"

	"github.com/mwhitlock/tasktrack-api/internal/domain"
)

// TemplateStore provides read access to task templates. Templates are
// blueprints only: task creation copies their stage lists, so this
// interface has no mutation methods in the core flow.
type TemplateStore interface {
	// List returns every template with its stages ordered by order number.
	List(ctx context.Context) ([]*domain.TaskTemplate, error)

	// GetByID retrieves one template with its stages.
	// Returns ErrTemplateNotFound if it does not exist.
	GetByID(ctx context.Context, id int64) (*domain.TaskTemplate, error)
}
