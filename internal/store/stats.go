package store

import "context"

// StatusCount is one row of the per-state task breakdown.
type StatusCount struct {
	StateID int16
	Count   int
}

// CompletionStats aggregates delivery performance over completed tasks.
type CompletionStats struct {
	CompletedCount int
	// AvgDelayDays is the mean of (completed date - due date) in days over
	// completed tasks; negative values mean tasks finish early on average.
	AvgDelayDays float64
}

// StatsStore provides the aggregated reads behind the analytics summary.
type StatsStore interface {
	// CountTasksByState returns the number of live tasks per state.
	CountTasksByState(ctx context.Context) ([]StatusCount, error)

	// CompletionStats aggregates over live completed tasks with a
	// completed date.
	CompletionStats(ctx context.Context, completedStateID int16) (*CompletionStats, error)
}
