// Package clock abstracts the time source so lock-expiry logic is
// deterministically testable without wall-clock sleeps.
package clock

import "time"

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// Real returns the wall clock in UTC.
func Real() Clock {
	return realClock{}
}

// Fixed is a settable clock for tests.
type Fixed struct {
	Current time.Time
}

func (f *Fixed) Now() time.Time {
	return f.Current
}

// Advance moves the fixed clock forward.
func (f *Fixed) Advance(d time.Duration) {
	f.Current = f.Current.Add(d)
}
