package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mwhitlock/tasktrack-api/internal/domain"
	"github.com/mwhitlock/tasktrack-api/internal/service"
	"github.com/mwhitlock/tasktrack-api/internal/service/auth"
	"github.com/mwhitlock/tasktrack-api/internal/store"
)

// memUserStore is an in-memory UserStore for tests. Create hashes the
// password the same way the real store does.
type memUserStore struct {
	users map[uuid.UUID]*domain.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: map[uuid.UUID]*domain.User{}}
}

func (m *memUserStore) Create(_ context.Context, user *domain.User) error {
	for _, u := range m.users {
		if u.Email == user.Email {
			return store.ErrEmailExists
		}
		if u.Username == user.Username {
			return store.ErrUsernameExists
		}
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	user.HashedPassword = string(hashed)
	user.Password = ""
	clone := *user
	m.users[user.ID] = &clone
	return nil
}

func (m *memUserStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (m *memUserStore) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (m *memUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func TestUserServiceRegisterAndAuthenticate(t *testing.T) {
	t.Parallel()

	users := newMemUserStore()
	svc := service.NewUserService(users, auth.NewBcryptVerifier(), nil)
	ctx := context.Background()

	user, err := svc.Register(ctx, "jchen", "jchen@example.com", "Jordan Chen", "a long enough password")
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, user.ID)

	// Login works with the username and with the email.
	byUsername, err := svc.Authenticate(ctx, "jchen", "a long enough password")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byUsername.ID)

	byEmail, err := svc.Authenticate(ctx, "jchen@example.com", "a long enough password")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
}

func TestUserServiceAuthenticateRejectsBadCredentials(t *testing.T) {
	t.Parallel()

	users := newMemUserStore()
	svc := service.NewUserService(users, auth.NewBcryptVerifier(), nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, "jchen", "jchen@example.com", "Jordan Chen", "a long enough password")
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "jchen", "wrong password here")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody", "a long enough password")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestUserServiceRegisterValidation(t *testing.T) {
	t.Parallel()

	svc := service.NewUserService(newMemUserStore(), auth.NewBcryptVerifier(), nil)

	_, err := svc.Register(context.Background(), "x", "not-an-email", "", "short")
	assert.Error(t, err)
}
