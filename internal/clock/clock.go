// Package clock abstracts wall time and timer scheduling so session
// timers (typing debounce, forced transitions, latency probes) can be
// driven by a virtual clock in tests.
package clock

import "time"

// Timer is a scheduled callback. Stop and Reset follow the semantics
// of time.Timer created via AfterFunc.
type Timer interface {
	Stop() bool
	Reset(d time.Duration) bool
}

// Clock provides current time and callback scheduling. Periodic work
// re-arms itself from inside its own callback.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// New returns a Clock backed by the time package.
func New() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
