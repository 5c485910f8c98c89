package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
)

// SchedulerLock is a Postgres advisory lock that arbitrates which replica
// runs the scheduled jobs. The lock is session scoped, so it pins a single
// connection from the pool for as long as it is held.
type SchedulerLock struct {
	db     *sql.DB
	key    int64
	logger *slog.Logger

	mu   sync.Mutex
	conn *sql.Conn
}

// NewSchedulerLock creates a SchedulerLock for the given advisory lock key.
// It panics if db is nil.
func NewSchedulerLock(db *sql.DB, key int64, logger *slog.Logger) *SchedulerLock {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SchedulerLock{
		db:     db,
		key:    key,
		logger: logger.With(slog.String("component", "scheduler_lock")),
	}
}

// TryAcquire attempts to take the advisory lock without blocking. It
// returns false when another session already holds it.
func (l *SchedulerLock) TryAcquire(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn != nil {
		return true, nil
	}

	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to reserve connection for advisory lock: %w", err)
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.key).Scan(&acquired); err != nil {
		_ = conn.Close()
		return false, fmt.Errorf("failed to acquire advisory lock %d: %w", l.key, err)
	}
	if !acquired {
		_ = conn.Close()
		return false, nil
	}

	l.conn = conn
	return true, nil
}

// Release gives the lock back and returns its connection to the pool. It
// is a no-op when the lock is not held.
func (l *SchedulerLock) Release(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn == nil {
		return
	}

	if _, err := l.conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.key); err != nil {
		l.logger.Warn("failed to release advisory lock, closing connection anyway",
			slog.Int64("key", l.key),
			slog.String("error", err.Error()))
	}
	if err := l.conn.Close(); err != nil {
		l.logger.Warn("failed to close advisory lock connection",
			slog.String("error", err.Error()))
	}
	l.conn = nil
}
