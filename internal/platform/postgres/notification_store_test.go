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

func TestNotificationLogStoreStateMachine(t *testing.T) {
	t.Parallel()
	db := testdb.MustOpen(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		logStore := postgres.NewPostgresNotificationLogStore(tx, nil)

		to := "assignee@example.com"
		n, err := domain.NewNotificationLog("Task Overdue: Quarterly report", "The task is overdue.", &to)
		require.NoError(t, err)
		require.NoError(t, logStore.Create(ctx, n))
		require.NotZero(t, n.ID)

		loaded, err := logStore.GetByID(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.NotificationStatusPending, loaded.Status)
		assert.Nil(t, loaded.SentAt)

		sentAt := time.Now().UTC().Truncate(time.Microsecond)
		require.NoError(t, logStore.MarkSent(ctx, n.ID, sentAt))

		loaded, err = logStore.GetByID(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.NotificationStatusSent, loaded.Status)
		require.NotNil(t, loaded.SentAt)
		assert.Nil(t, loaded.ErrorMessage)

		failed, err := domain.NewNotificationLog("Reminder: Task Due Soon - Deploy", "Due soon.", &to)
		require.NoError(t, err)
		require.NoError(t, logStore.Create(ctx, failed))
		require.NoError(t, logStore.MarkFailed(ctx, failed.ID, "smtp: connection refused"))

		loaded, err = logStore.GetByID(ctx, failed.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.NotificationStatusFailed, loaded.Status)
		require.NotNil(t, loaded.ErrorMessage)
		assert.Equal(t, "smtp: connection refused", *loaded.ErrorMessage)

		assert.ErrorIs(t, logStore.MarkSent(ctx, 999999, sentAt), store.ErrNotificationNotFound)
	})
}

func TestNotificationLogStoreFindPending(t *testing.T) {
	t.Parallel()
	db := testdb.MustOpen(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		logStore := postgres.NewPostgresNotificationLogStore(tx, nil)

		old, err := domain.NewNotificationLog("Old pending", "body", nil)
		require.NoError(t, err)
		old.CreatedAt = time.Now().UTC().Add(-time.Hour)
		require.NoError(t, logStore.Create(ctx, old))

		fresh, err := domain.NewNotificationLog("Fresh pending", "body", nil)
		require.NoError(t, err)
		require.NoError(t, logStore.Create(ctx, fresh))

		done, err := domain.NewNotificationLog("Already sent", "body", nil)
		require.NoError(t, err)
		done.CreatedAt = time.Now().UTC().Add(-time.Hour)
		require.NoError(t, logStore.Create(ctx, done))
		require.NoError(t, logStore.MarkSent(ctx, done.ID, time.Now().UTC()))

		// Age filter picks up only the stale pending row.
		aged, err := logStore.FindPending(ctx, 10*time.Minute)
		require.NoError(t, err)
		require.Len(t, aged, 1)
		assert.Equal(t, old.ID, aged[0].ID)

		// Zero age returns every pending row, oldest first.
		all, err := logStore.FindPending(ctx, 0)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, old.ID, all[0].ID)
		assert.Equal(t, fresh.ID, all[1].ID)
	})
}
