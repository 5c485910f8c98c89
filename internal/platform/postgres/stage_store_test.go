package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwhitlock/tasktrack-api/internal/domain"
	"github.com/mwhitlock/tasktrack-api/internal/platform/postgres"
	"github.com/mwhitlock/tasktrack-api/internal/store"
	"github.com/mwhitlock/tasktrack-api/internal/testdb"
)

func createTestTask(t *testing.T, tx *sql.Tx, reg *domain.StateRegistry, name string, due time.Time) *domain.Task {
	t.Helper()

	task, err := domain.NewTask(name, "", due, domain.PriorityMedium, reg.MustID(domain.StatePending))
	require.NoError(t, err)
	require.NoError(t, postgres.NewPostgresTaskStore(tx, nil).Create(context.Background(), task))
	return task
}

func TestStageStoreCRUD(t *testing.T) {
	t.Parallel()
	db := testdb.MustOpen(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		reg := loadRegistry(t, tx)
		stageStore := postgres.NewPostgresStageStore(tx, nil)

		pending := reg.MustID(domain.StatePending)
		task := createTestTask(t, tx, reg, "Build deck", time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))

		first, err := domain.NewStage(task.ID, "Outline", 2, 1, pending)
		require.NoError(t, err)
		require.NoError(t, stageStore.Create(ctx, first))
		require.NotZero(t, first.ID)

		second, err := domain.NewStage(task.ID, "Draft slides", 6, 2, pending)
		require.NoError(t, err)
		require.NoError(t, stageStore.Create(ctx, second))

		max, err := stageStore.MaxOrderNumber(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, max)

		start := time.Date(2025, 7, 20, 0, 0, 0, 0, time.UTC)
		first.StateID = reg.MustID(domain.StateInProgress)
		first.StartDate = &start
		require.NoError(t, stageStore.Update(ctx, first))

		loaded, err := stageStore.GetByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, reg.MustID(domain.StateInProgress), loaded.StateID)
		require.NotNil(t, loaded.StartDate)
		assert.Equal(t, start, *loaded.StartDate)

		require.NoError(t, stageStore.Delete(ctx, second.ID))
		_, err = stageStore.GetByID(ctx, second.ID)
		assert.ErrorIs(t, err, store.ErrStageNotFound)

		remaining, err := stageStore.ListByTask(ctx, task.ID)
		require.NoError(t, err)
		require.Len(t, remaining, 1)
		assert.Equal(t, first.ID, remaining[0].ID)
	})
}

func TestStageStoreRenumberAfterDelete(t *testing.T) {
	t.Parallel()
	db := testdb.MustOpen(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		reg := loadRegistry(t, tx)
		stageStore := postgres.NewPostgresStageStore(tx, nil)

		pending := reg.MustID(domain.StatePending)
		task := createTestTask(t, tx, reg, "Onboard client", time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))

		names := []string{"Kickoff", "Contracts", "Access setup"}
		for i, name := range names {
			stage, err := domain.NewStage(task.ID, name, 1, i+1, pending)
			require.NoError(t, err)
			require.NoError(t, stageStore.Create(ctx, stage))
		}

		stages, err := stageStore.ListByTask(ctx, task.ID)
		require.NoError(t, err)
		require.Len(t, stages, 3)

		require.NoError(t, stageStore.Delete(ctx, stages[1].ID))

		survivors := []*domain.Stage{stages[0], stages[2]}
		domain.Renumber(survivors)
		require.NoError(t, stageStore.UpdateOrderNumbers(ctx, survivors))

		stages, err = stageStore.ListByTask(ctx, task.ID)
		require.NoError(t, err)
		require.Len(t, stages, 2)
		assert.Equal(t, 1, stages[0].OrderNumber)
		assert.Equal(t, "Kickoff", stages[0].Name)
		assert.Equal(t, 2, stages[1].OrderNumber)
		assert.Equal(t, "Access setup", stages[1].Name)
	})
}

func TestStageStoreFindOverdue(t *testing.T) {
	t.Parallel()
	db := testdb.MustOpen(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		reg := loadRegistry(t, tx)
		stageStore := postgres.NewPostgresStageStore(tx, nil)

		pending := reg.MustID(domain.StatePending)
		inProgress := reg.MustID(domain.StateInProgress)
		completed := reg.MustID(domain.StateCompleted)

		today := time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC)
		lateTask := createTestTask(t, tx, reg, "Late project", today.AddDate(0, 0, -2))
		onTimeTask := createTestTask(t, tx, reg, "On-time project", today.AddDate(0, 0, 5))

		start := today.AddDate(0, 0, -5)

		// Started but unfinished on a late task: should be flagged.
		started, err := domain.NewStage(lateTask.ID, "Started work", 3, 1, inProgress)
		require.NoError(t, err)
		started.StartDate = &start
		require.NoError(t, stageStore.Create(ctx, started))

		// Never started: not flagged even though the task is late.
		unstarted, err := domain.NewStage(lateTask.ID, "Not started", 3, 2, pending)
		require.NoError(t, err)
		require.NoError(t, stageStore.Create(ctx, unstarted))

		// Started on a task that is not yet due: not flagged.
		onTime, err := domain.NewStage(onTimeTask.ID, "Also started", 3, 1, inProgress)
		require.NoError(t, err)
		onTime.StartDate = &start
		require.NoError(t, stageStore.Create(ctx, onTime))

		overdue, err := stageStore.FindOverdue(ctx, completed, today)
		require.NoError(t, err)
		require.Len(t, overdue, 1)
		assert.Equal(t, started.ID, overdue[0].Stage.ID)
		assert.Equal(t, "Late project", overdue[0].TaskName)
	})
}
