package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNotificationLog(t *testing.T) {
	to := "dev@example.com"

	log, err := NewNotificationLog("Task Overdue: ship release", "the body", &to)
	require.NoError(t, err)
	assert.Equal(t, NotificationStatusPending, log.Status)
	assert.Nil(t, log.SentAt)
	assert.Nil(t, log.ErrorMessage)

	_, err = NewNotificationLog("", "body", nil)
	assert.ErrorIs(t, err, ErrEmptyNotificationSubject)

	_, err = NewNotificationLog("subject", "", nil)
	assert.ErrorIs(t, err, ErrEmptyNotificationBody)
}

func TestNewNotificationLogWithoutRecipient(t *testing.T) {
	// A nil recipient is valid: the transport falls back to its configured
	// default address or the disabled no-op path.
	log, err := NewNotificationLog("subject", "body", nil)
	require.NoError(t, err)
	assert.Nil(t, log.ToEmail)
}
