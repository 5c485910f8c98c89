// Package store defines the persistence interfaces consumed by the service
// layer and the background jobs, the sentinel errors they surface, and the
// transaction helper that keeps stage mutations and the resulting task
// status propagation atomic.
//
// Implementations live in internal/platform/postgres.
package store
