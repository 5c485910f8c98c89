// Package testdb provides utilities for database integration tests.
// Tests that need a real PostgreSQL instance call MustOpen, which skips
// the test when DATABASE_URL is not set, and WithTx, which rolls back
// every modification so tests stay isolated and can run in parallel.
package testdb

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/mwhitlock/tasktrack-api/internal/platform/postgres"
)

// URL returns the test database connection string from DATABASE_URL,
// or "" when integration tests should be skipped.
func URL() string {
	return os.Getenv("DATABASE_URL")
}

// MustOpen connects to the test database and applies migrations.
// It skips the test when DATABASE_URL is not set and fails it when the
// connection or migration step errors. The connection is closed via test
// cleanup.
func MustOpen(t *testing.T) *sql.DB {
	t.Helper()

	url := URL()
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	db, err := sql.Open("pgx", url)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("failed to close test database: %v", err)
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("failed to ping test database: %v", err)
	}

	if err := postgres.MigrateUp(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// WithTx runs fn inside a transaction that is always rolled back,
// so database modifications never leak between tests.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			t.Errorf("failed to roll back transaction: %v", err)
		}
	}()

	fn(t, tx)
}
