package domain

import (
	"errors"
	"time"
)

// NotificationStatus represents the delivery state of a notification.
type NotificationStatus string

// Possible notification status values. A notification is created pending
// and moves to exactly one terminal state after the delivery worker
// attempts it.
const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
)

// Common validation errors for NotificationLog
var (
	ErrEmptyNotificationSubject = errors.New("notification subject cannot be empty")
	ErrEmptyNotificationBody    = errors.New("notification body cannot be empty")
)

// NotificationLog is the durable record behind the delivery queue. The row
// is persisted before the in-memory job is enqueued, so a notification
// request survives a process crash; the log, not the queue, is the source
// of truth for recovery.
type NotificationLog struct {
	ID           int64              `json:"id"`
	ToEmail      *string            `json:"to_email,omitempty"`
	Subject      string             `json:"subject"`
	Body         string             `json:"body"`
	Status       NotificationStatus `json:"status"`
	CreatedAt    time.Time          `json:"created_at"`
	SentAt       *time.Time         `json:"sent_at,omitempty"`
	ErrorMessage *string            `json:"error_message,omitempty"`
}

// NewNotificationLog creates a pending notification record. Returns an
// error if validation fails.
func NewNotificationLog(subject, body string, toEmail *string) (*NotificationLog, error) {
	log := &NotificationLog{
		ToEmail:   toEmail,
		Subject:   subject,
		Body:      body,
		Status:    NotificationStatusPending,
		CreatedAt: time.Now().UTC(),
	}

	if err := log.Validate(); err != nil {
		return nil, err
	}

	return log, nil
}

// Validate checks if the NotificationLog has valid data.
func (n *NotificationLog) Validate() error {
	if n.Subject == "" {
		return ErrEmptyNotificationSubject
	}
	if n.Body == "" {
		return ErrEmptyNotificationBody
	}
	return nil
}
