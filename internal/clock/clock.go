// Package clock abstracts wall-clock time so build dates and banner
// timestamps are deterministic in tests.
package clock

import "time"

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// System is the production clock. It reports UTC so version dates do not
// depend on the machine's time zone.
type System struct{}

func (System) Now() time.Time {
	return time.Now().UTC()
}

// Fixed always returns the same instant.
type Fixed time.Time

func (f Fixed) Now() time.Time {
	return time.Time(f)
}
