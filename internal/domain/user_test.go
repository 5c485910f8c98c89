package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	user, err := NewUser("mallory", "mallory@example.com", "Mallory Q", "averylongpassword")
	require.NoError(t, err)
	assert.NotEqual(t, user.ID.String(), "00000000-0000-0000-0000-000000000000")

	_, err = NewUser("", "mallory@example.com", "", "averylongpassword")
	assert.ErrorIs(t, err, ErrEmptyUsername)

	_, err = NewUser("mallory", "not-an-email", "", "averylongpassword")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = NewUser("mallory", "mallory@example.com", "", "short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestUserValidateHashedOnly(t *testing.T) {
	user, err := NewUser("mallory", "mallory@example.com", "", "averylongpassword")
	require.NoError(t, err)

	// Users loaded from the database carry only the hash.
	user.Password = ""
	user.HashedPassword = "$2a$10$abcdefghijklmnopqrstuv"
	assert.NoError(t, user.Validate())

	user.HashedPassword = ""
	assert.ErrorIs(t, user.Validate(), ErrEmptyPassword)
}
