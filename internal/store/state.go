package store

import (
	"context"

	"github.com/mwhitlock/tasktrack-api/internal/domain"
)

// StateStore provides read access to the lifecycle state vocabulary.
// The states table is seeded by migration and read exactly once at startup
// to build the process-wide domain.StateRegistry.
type StateStore interface {
	// List returns every seeded state.
	List(ctx context.Context) ([]domain.State, error)
}
