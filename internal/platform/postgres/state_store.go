package postgres

import (
	"context"
	"log/slog"

	"github.com/mwhitlock/tasktrack-api/internal/domain"
	"github.com/mwhitlock/tasktrack-api/internal/platform/logger"
	"github.com/mwhitlock/tasktrack-api/internal/store"
)

// PostgresStateStore implements the store.StateStore interface
// using a PostgreSQL database as the storage backend.
type PostgresStateStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresStateStore creates a new PostgreSQL implementation of the
// StateStore interface. If logger is nil, a default logger will be used.
func NewPostgresStateStore(db store.DBTX, logger *slog.Logger) *PostgresStateStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresStateStore{
		db:     db,
		logger: logger.With(slog.String("component", "state_store")),
	}
}

// Ensure PostgresStateStore implements store.StateStore interface
var _ store.StateStore = (*PostgresStateStore)(nil)

// List implements store.StateStore.List
// It returns every seeded lifecycle state.
func (s *PostgresStateStore) List(ctx context.Context) ([]domain.State, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, name, description
		FROM states
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to list states", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer closeRows(rows, log)

	states := []domain.State{}
	for rows.Next() {
		var state domain.State
		var name string

		if err := rows.Scan(&state.ID, &name, &state.Description); err != nil {
			log.Error("failed to scan state row", slog.String("error", err.Error()))
			return nil, err
		}

		state.Name = domain.StateName(name)
		states = append(states, state)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return states, nil
}
