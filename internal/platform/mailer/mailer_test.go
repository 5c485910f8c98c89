package mailer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwhitlock/tasktrack-api/internal/config"
)

func TestNewTransportDisabledWhenHostEmpty(t *testing.T) {
	t.Parallel()

	transport, err := NewTransport(config.MailConfig{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &disabledTransport{}, transport)
}

func TestNewTransportSMTPWhenHostSet(t *testing.T) {
	t.Parallel()

	transport, err := NewTransport(config.MailConfig{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "mailer",
		Password: "secret",
		From:     "tasktrack@example.com",
	}, nil)
	require.NoError(t, err)
	assert.IsType(t, &smtpTransport{}, transport)
}

func TestDisabledTransportAlwaysSucceeds(t *testing.T) {
	t.Parallel()

	transport, err := NewTransport(config.MailConfig{}, nil)
	require.NoError(t, err)

	to := "someone@example.com"
	err = transport.Send(context.Background(), Message{
		To:      &to,
		Subject: "Task Overdue: Quarterly report",
		Body:    "The task is overdue.",
	})
	assert.NoError(t, err)

	// No recipient at all is still fine when the transport is disabled.
	err = transport.Send(context.Background(), Message{Subject: "s", Body: "b"})
	assert.NoError(t, err)
}

func TestSMTPTransportRequiresRecipient(t *testing.T) {
	t.Parallel()

	transport, err := NewTransport(config.MailConfig{
		Host: "smtp.example.com",
		Port: 587,
		From: "tasktrack@example.com",
	}, nil)
	require.NoError(t, err)

	err = transport.Send(context.Background(), Message{Subject: "s", Body: "b"})
	assert.Error(t, err)
}
