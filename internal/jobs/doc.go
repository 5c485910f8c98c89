// Package jobs contains the scheduled background work: the daily overdue
// sweep that flips late tasks and stages and queues the matching
// notifications, and the archival job that moves stale completed tasks
// into the append-only archive. A Postgres advisory lock keeps the jobs
// on a single replica, and the cron wiring lives in Scheduler.
package jobs
