package postgres

import (
	"context"
	"log/slog"

	"github.com/mwhitlock/tasktrack-api/internal/platform/logger"
	"github.com/mwhitlock/tasktrack-api/internal/store"
)

// PostgresStatsStore implements the store.StatsStore interface
// using a PostgreSQL database as the storage backend.
type PostgresStatsStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresStatsStore creates a new PostgreSQL implementation of the
// StatsStore interface. If logger is nil, a default logger will be used.
func NewPostgresStatsStore(db store.DBTX, logger *slog.Logger) *PostgresStatsStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresStatsStore{
		db:     db,
		logger: logger.With(slog.String("component", "stats_store")),
	}
}

// Ensure PostgresStatsStore implements store.StatsStore interface
var _ store.StatsStore = (*PostgresStatsStore)(nil)

// CountTasksByState implements store.StatsStore.CountTasksByState
func (s *PostgresStatsStore) CountTasksByState(ctx context.Context) ([]store.StatusCount, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT state_id, COUNT(*)
		FROM tasks
		WHERE NOT is_deleted
		GROUP BY state_id
		ORDER BY state_id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to count tasks by state", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer closeRows(rows, log)

	counts := []store.StatusCount{}
	for rows.Next() {
		var c store.StatusCount
		if err := rows.Scan(&c.StateID, &c.Count); err != nil {
			log.Error("failed to scan status count row", slog.String("error", err.Error()))
			return nil, err
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return counts, nil
}

// CompletionStats implements store.StatsStore.CompletionStats
// The average delay is (completed_date - due_date) in days over live
// completed tasks; it is 0 when no task qualifies.
func (s *PostgresStatsStore) CompletionStats(
	ctx context.Context,
	completedStateID int16,
) (*store.CompletionStats, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT COUNT(*),
			COALESCE(AVG(completed_date - due_date), 0)
		FROM tasks
		WHERE NOT is_deleted
			AND state_id = $1
			AND completed_date IS NOT NULL
	`

	var stats store.CompletionStats
	err := s.db.QueryRowContext(ctx, query, completedStateID).Scan(
		&stats.CompletedCount,
		&stats.AvgDelayDays,
	)
	if err != nil {
		log.Error("failed to compute completion stats", slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	return &stats, nil
}
