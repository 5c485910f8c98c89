package postgres_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mwhitlock/tasktrack-api/internal/domain"
	"github.com/mwhitlock/tasktrack-api/internal/platform/postgres"
	"github.com/mwhitlock/tasktrack-api/internal/store"
	"github.com/mwhitlock/tasktrack-api/internal/testdb"
)

func TestUserStoreCreateAndGet(t *testing.T) {
	t.Parallel()
	db := testdb.MustOpen(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		userStore := postgres.NewPostgresUserStore(tx, bcrypt.MinCost, nil)

		user, err := domain.NewUser("pmorales", "pmorales@example.com", "Pat Morales", "correct horse battery")
		require.NoError(t, err)
		require.NoError(t, userStore.Create(ctx, user))

		// Plaintext is discarded and the stored hash verifies.
		assert.Empty(t, user.Password)
		require.NotEmpty(t, user.HashedPassword)
		assert.NoError(t, bcrypt.CompareHashAndPassword(
			[]byte(user.HashedPassword), []byte("correct horse battery")))

		byID, err := userStore.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "pmorales", byID.Username)

		byUsername, err := userStore.GetByUsername(ctx, "pmorales")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byUsername.ID)

		byEmail, err := userStore.GetByEmail(ctx, "pmorales@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byEmail.ID)

		_, err = userStore.GetByUsername(ctx, "nobody")
		assert.ErrorIs(t, err, store.ErrUserNotFound)
	})
}

func TestUserStoreUniqueViolations(t *testing.T) {
	t.Parallel()
	db := testdb.MustOpen(t)

	// Each violation aborts its transaction, so the two cases run in
	// separate rolled-back transactions.
	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		userStore := postgres.NewPostgresUserStore(tx, bcrypt.MinCost, nil)

		first, err := domain.NewUser("taken", "taken@example.com", "First User", "password12345")
		require.NoError(t, err)
		require.NoError(t, userStore.Create(ctx, first))

		sameEmail, err := domain.NewUser("other", "taken@example.com", "Second User", "password12345")
		require.NoError(t, err)
		assert.ErrorIs(t, userStore.Create(ctx, sameEmail), store.ErrEmailExists)
	})

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		userStore := postgres.NewPostgresUserStore(tx, bcrypt.MinCost, nil)

		first, err := domain.NewUser("taken", "taken@example.com", "First User", "password12345")
		require.NoError(t, err)
		require.NoError(t, userStore.Create(ctx, first))

		sameUsername, err := domain.NewUser("taken", "other@example.com", "Third User", "password12345")
		require.NoError(t, err)
		assert.ErrorIs(t, userStore.Create(ctx, sameUsername), store.ErrUsernameExists)
	})
}
