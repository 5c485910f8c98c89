package service

import (
	"context"
	"log/slog"

	"github.com/mwhitlock/tasktrack-api/internal/domain"
	"github.com/mwhitlock/tasktrack-api/internal/platform/logger"
	"github.com/mwhitlock/tasktrack-api/internal/store"
)

// Summary is the aggregated view behind the analytics endpoint.
type Summary struct {
	TasksByState   map[domain.StateName]int `json:"tasks_by_state"`
	CompletedCount int                      `json:"completed_count"`
	AvgDelayDays   float64                  `json:"avg_delay_days"`
}

// AnalyticsService computes workload summaries from the stats store.
type AnalyticsService struct {
	stats    store.StatsStore
	registry *domain.StateRegistry
	logger   *slog.Logger
}

// NewAnalyticsService creates an AnalyticsService. If logger is nil, a
// default logger will be used.
func NewAnalyticsService(stats store.StatsStore, registry *domain.StateRegistry, logger *slog.Logger) *AnalyticsService {
	if logger == nil {
		logger = slog.Default()
	}

	return &AnalyticsService{
		stats:    stats,
		registry: registry,
		logger:   logger.With(slog.String("component", "analytics_service")),
	}
}

// Summarize returns the per-state task breakdown and completion
// statistics over live tasks. States with no tasks report zero.
func (s *AnalyticsService) Summarize(ctx context.Context) (*Summary, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	counts, err := s.stats.CountTasksByState(ctx)
	if err != nil {
		return nil, err
	}

	byState := make(map[domain.StateName]int, len(domain.CanonicalStateNames))
	for _, name := range domain.CanonicalStateNames {
		byState[name] = 0
	}
	for _, c := range counts {
		name, err := s.registry.NameOf(c.StateID)
		if err != nil {
			log.Warn("task count for unknown state",
				slog.Int("state_id", int(c.StateID)))
			continue
		}
		byState[name] = c.Count
	}

	completion, err := s.stats.CompletionStats(ctx, s.registry.MustID(domain.StateCompleted))
	if err != nil {
		return nil, err
	}

	return &Summary{
		TasksByState:   byState,
		CompletedCount: completion.CompletedCount,
		AvgDelayDays:   completion.AvgDelayDays,
	}, nil
}
