package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/mwhitlock/tasktrack-api/internal/domain"
	"github.com/mwhitlock/tasktrack-api/internal/platform/logger"
	"github.com/mwhitlock/tasktrack-api/internal/store"
)

// PostgresNotificationLogStore implements the store.NotificationLogStore
// interface using a PostgreSQL database as the storage backend.
type PostgresNotificationLogStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresNotificationLogStore creates a new PostgreSQL implementation
// of the NotificationLogStore interface. If logger is nil, a default logger
// will be used.
func NewPostgresNotificationLogStore(db store.DBTX, logger *slog.Logger) *PostgresNotificationLogStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresNotificationLogStore{
		db:     db,
		logger: logger.With(slog.String("component", "notification_log_store")),
	}
}

// Ensure PostgresNotificationLogStore implements store.NotificationLogStore interface
var _ store.NotificationLogStore = (*PostgresNotificationLogStore)(nil)

// Create implements store.NotificationLogStore.Create
// It persists a pending log row and populates its generated id.
func (s *PostgresNotificationLogStore) Create(ctx context.Context, n *domain.NotificationLog) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := n.Validate(); err != nil {
		log.Warn("notification validation failed during create",
			slog.String("error", err.Error()))
		return err
	}

	query := `
		INSERT INTO notification_logs (to_email, subject, body, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := s.db.QueryRowContext(
		ctx,
		query,
		n.ToEmail,
		n.Subject,
		n.Body,
		n.Status,
		n.CreatedAt,
	).Scan(&n.ID)

	if err != nil {
		log.Error("failed to create notification log",
			slog.String("error", err.Error()),
			slog.String("subject", n.Subject))
		return MapError(err)
	}

	log.Debug("notification log created",
		slog.Int64("notification_id", n.ID),
		slog.String("subject", n.Subject))
	return nil
}

// GetByID implements store.NotificationLogStore.GetByID
// Returns store.ErrNotificationNotFound if the row does not exist.
func (s *PostgresNotificationLogStore) GetByID(ctx context.Context, id int64) (*domain.NotificationLog, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, to_email, subject, body, status, created_at, sent_at, error_message
		FROM notification_logs
		WHERE id = $1
	`

	n, err := scanNotification(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotificationNotFound
		}
		log.Error("failed to get notification log by ID",
			slog.String("error", err.Error()),
			slog.Int64("notification_id", id))
		return nil, MapError(err)
	}

	return n, nil
}

// MarkSent implements store.NotificationLogStore.MarkSent
// A sent row also clears any error message left by an earlier attempt.
func (s *PostgresNotificationLogStore) MarkSent(ctx context.Context, id int64, at time.Time) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE notification_logs
		SET status = $1, sent_at = $2, error_message = NULL
		WHERE id = $3
	`

	result, err := s.db.ExecContext(ctx, query, domain.NotificationStatusSent, at, id)
	if err != nil {
		log.Error("failed to mark notification sent",
			slog.String("error", err.Error()),
			slog.Int64("notification_id", id))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "notification"); err != nil {
		return store.ErrNotificationNotFound
	}

	log.Debug("notification marked sent", slog.Int64("notification_id", id))
	return nil
}

// MarkFailed implements store.NotificationLogStore.MarkFailed
func (s *PostgresNotificationLogStore) MarkFailed(ctx context.Context, id int64, errorMessage string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE notification_logs
		SET status = $1, error_message = $2
		WHERE id = $3
	`

	result, err := s.db.ExecContext(ctx, query, domain.NotificationStatusFailed, errorMessage, id)
	if err != nil {
		log.Error("failed to mark notification failed",
			slog.String("error", err.Error()),
			slog.Int64("notification_id", id))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "notification"); err != nil {
		return store.ErrNotificationNotFound
	}

	log.Debug("notification marked failed", slog.Int64("notification_id", id))
	return nil
}

// FindPending implements store.NotificationLogStore.FindPending
// It returns pending rows created more than minAge ago, oldest first. A
// zero minAge returns every pending row.
func (s *PostgresNotificationLogStore) FindPending(
	ctx context.Context,
	minAge time.Duration,
) ([]*domain.NotificationLog, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, to_email, subject, body, status, created_at, sent_at, error_message
		FROM notification_logs
		WHERE status = $1 AND created_at <= $2
		ORDER BY created_at
	`

	cutoff := time.Now().UTC().Add(-minAge)

	rows, err := s.db.QueryContext(ctx, query, domain.NotificationStatusPending, cutoff)
	if err != nil {
		log.Error("failed to find pending notifications", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer closeRows(rows, log)

	pending := []*domain.NotificationLog{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			log.Error("failed to scan notification row", slog.String("error", err.Error()))
			return nil, err
		}
		pending = append(pending, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return pending, nil
}

func scanNotification(row rowScanner) (*domain.NotificationLog, error) {
	var n domain.NotificationLog
	var status string

	err := row.Scan(
		&n.ID,
		&n.ToEmail,
		&n.Subject,
		&n.Body,
		&status,
		&n.CreatedAt,
		&n.SentAt,
		&n.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}

	n.Status = domain.NotificationStatus(status)
	return &n, nil
}
