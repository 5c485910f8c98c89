package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mwhitlock/tasktrack-api/internal/config"
)

// Job is a scheduled unit of work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler runs the background jobs on their cron schedules, but only on
// the replica that holds the advisory lock. Replicas that lose the race
// stay idle; the lock is released on Stop so another replica can take
// over after a deploy.
type Scheduler struct {
	cron   *cron.Cron
	lock   *SchedulerLock
	config config.JobsConfig
	jobs   []scheduledJob
	logger *slog.Logger

	active bool
}

type scheduledJob struct {
	spec string
	job  Job
}

// NewScheduler creates a Scheduler running the overdue sweep and the
// archival job on the cron specs from the configuration.
func NewScheduler(cfg config.JobsConfig, lock *SchedulerLock, sweep Job, archival Job, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:   cron.New(),
		lock:   lock,
		config: cfg,
		jobs: []scheduledJob{
			{spec: cfg.OverdueCron, job: sweep},
			{spec: cfg.ArchivalCron, job: archival},
		},
		logger: logger.With(slog.String("component", "scheduler")),
	}
}

// Start tries to take the scheduler lock and, when it wins, registers the
// jobs and starts the cron loop. Losing the lock is not an error; the
// scheduler simply stays idle on this replica.
func (s *Scheduler) Start(ctx context.Context) error {
	acquired, err := s.lock.TryAcquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire scheduler lock: %w", err)
	}
	if !acquired {
		s.logger.Info("scheduler lock held by another replica, jobs disabled here")
		return nil
	}

	for _, entry := range s.jobs {
		job := entry.job
		if _, err := s.cron.AddFunc(entry.spec, func() { s.runJob(job) }); err != nil {
			s.lock.Release(ctx)
			return fmt.Errorf("invalid cron spec %q for job %s: %w", entry.spec, job.Name(), err)
		}
		s.logger.Info("job scheduled",
			slog.String("job", job.Name()),
			slog.String("spec", entry.spec))
	}

	s.cron.Start()
	s.active = true
	return nil
}

// RunAll runs every job once, immediately, regardless of the cron
// schedules. It exists for tests and manual triggering; no HTTP route
// exposes it.
func (s *Scheduler) RunAll(ctx context.Context) error {
	for _, entry := range s.jobs {
		if err := entry.job.Run(ctx); err != nil {
			return fmt.Errorf("job %s: %w", entry.job.Name(), err)
		}
	}
	return nil
}

// Stop halts the cron loop, waits for any running job to finish (bounded
// by ctx), and releases the scheduler lock.
func (s *Scheduler) Stop(ctx context.Context) {
	if s.active {
		stopped := s.cron.Stop()
		select {
		case <-stopped.Done():
		case <-ctx.Done():
			s.logger.Warn("gave up waiting for running jobs to finish")
		}
		s.active = false
	}
	s.lock.Release(ctx)
}

func (s *Scheduler) runJob(job Job) {
	start := time.Now()
	log := s.logger.With(slog.String("job", job.Name()))
	log.Info("job starting")

	if err := job.Run(context.Background()); err != nil {
		log.Error("job failed",
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()))
		return
	}
	log.Info("job finished", slog.Duration("duration", time.Since(start)))
}
