// Package system provides wall-clock time sources.
package system

import "time"

// Clock reports the current UTC time.
type Clock struct{}

// New creates a Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns time.Now in UTC.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}

// Frozen always reports the same instant. Useful in tests and replays.
type Frozen struct {
	At time.Time
}

// Now returns f.At.
func (f Frozen) Now() time.Time {
	return f.At
}
