// Package schedule implements the dispatch scheduler: it binds resolved
// query specs to target instants, enforces the per-credential rate gate, and
// executes one task at a time on the batch's own timeline.
package schedule

import "time"

// Clock abstracts wall time so scheduler timing is testable without
// sleeping. The production clock is the real one; tests inject a manual
// clock and advance it explicitly.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// RealClock returns the wall clock.
func RealClock() Clock {
	return realClock{}
}
