package ratelimit

import "time"

// Clock provides an abstraction for time operations to enable testing.
//
// The guard itself never reads the system clock on the decision path; callers
// pass an explicit timestamp to Check and Sweep. The Clock is only consulted
// for defaults and by callers that want a single injected time source.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// SystemClock is a Clock implementation that uses the system time.
type SystemClock struct{}

// Now returns the current system time.
func (c *SystemClock) Now() time.Time {
	return time.Now()
}
