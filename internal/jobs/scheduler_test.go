package jobs_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwhitlock/tasktrack-api/internal/config"
	"github.com/mwhitlock/tasktrack-api/internal/jobs"
	"github.com/mwhitlock/tasktrack-api/internal/testdb"
)

type stubJob struct {
	name string
	err  error

	mu   sync.Mutex
	runs int
}

func (j *stubJob) Name() string { return j.name }

func (j *stubJob) Run(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.runs++
	return j.err
}

func (j *stubJob) runCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runs
}

func schedulerConfig(key int64) config.JobsConfig {
	return config.JobsConfig{
		OverdueCron:        "@every 1h",
		ArchivalCron:       "@every 1h",
		ArchiveAfterDays:   30,
		ReminderWindowDays: 2,
		SchedulerLockKey:   key,
	}
}

func TestSchedulerRunAll(t *testing.T) {
	db := testdb.MustOpen(t)
	ctx := context.Background()

	key := rand.Int63()
	lock := jobs.NewSchedulerLock(db, key, nil)
	t.Cleanup(func() { lock.Release(ctx) })

	sweep := &stubJob{name: "overdue_sweep"}
	archival := &stubJob{name: "archival"}
	s := jobs.NewScheduler(schedulerConfig(key), lock, sweep, archival, nil)

	require.NoError(t, s.RunAll(ctx))
	assert.Equal(t, 1, sweep.runCount())
	assert.Equal(t, 1, archival.runCount())

	sweep.err = errors.New("boom")
	err := s.RunAll(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overdue_sweep")
}

func TestSchedulerStartReleasesLockOnStop(t *testing.T) {
	db := testdb.MustOpen(t)
	ctx := context.Background()

	key := rand.Int63()
	lock := jobs.NewSchedulerLock(db, key, nil)

	s := jobs.NewScheduler(schedulerConfig(key), lock, &stubJob{name: "overdue_sweep"}, &stubJob{name: "archival"}, nil)
	require.NoError(t, s.Start(ctx))

	// While the scheduler runs, the lock is taken.
	other := jobs.NewSchedulerLock(db, key, nil)
	t.Cleanup(func() { other.Release(ctx) })
	acquired, err := other.TryAcquire(ctx)
	require.NoError(t, err)
	assert.False(t, acquired)

	s.Stop(ctx)

	acquired, err = other.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestSchedulerStartRejectsBadCronSpec(t *testing.T) {
	db := testdb.MustOpen(t)
	ctx := context.Background()

	key := rand.Int63()
	cfg := schedulerConfig(key)
	cfg.OverdueCron = "not a cron spec"

	lock := jobs.NewSchedulerLock(db, key, nil)
	s := jobs.NewScheduler(cfg, lock, &stubJob{name: "overdue_sweep"}, &stubJob{name: "archival"}, nil)

	require.Error(t, s.Start(ctx))

	// The lock was given back on the failed start.
	other := jobs.NewSchedulerLock(db, key, nil)
	t.Cleanup(func() { other.Release(ctx) })
	acquired, err := other.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, acquired)
}
