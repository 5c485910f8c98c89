package jobs

import "time"

// Clock abstracts the current time so jobs can be exercised against a
// fixed day in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time {
	return time.Now()
}
