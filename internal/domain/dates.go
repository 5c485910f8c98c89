package domain

import "time"

// DateOnly truncates a timestamp to midnight UTC. Task and stage dates
// (due, start, completed) are calendar dates; all comparisons in the
// propagation rules and the scheduled jobs operate on these normalized
// values.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DatePtr returns a pointer to the date-only form of t.
func DatePtr(t time.Time) *time.Time {
	d := DateOnly(t)
	return &d
}
