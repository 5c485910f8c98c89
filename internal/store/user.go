package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/mwhitlock/tasktrack-api/internal/domain"
)

// UserStore defines the persistence interface for users.
type UserStore interface {
	// Create hashes the user's plaintext password and saves the user.
	// Returns ErrEmailExists or ErrUsernameExists on unique violations.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by id.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByUsername retrieves a user by username.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// GetByEmail retrieves a user by email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}
