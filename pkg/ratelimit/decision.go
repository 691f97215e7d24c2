package ratelimit

import (
	"fmt"
	"time"
)

// State classifies the outcome of a guard check.
type State int

const (
	// StateAllowed means the request is within the rate limit.
	StateAllowed State = iota

	// StateRateLimited means this request pushed the client over the limit
	// and a block has just been applied.
	StateRateLimited

	// StateBlocked means the client is inside a previously applied block.
	StateBlocked
)

// String returns the lowercase name of the state, suitable for metrics labels.
func (s State) String() string {
	switch s {
	case StateAllowed:
		return "allowed"
	case StateRateLimited:
		return "rate_limited"
	case StateBlocked:
		return "blocked"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Decision is the result of a single guard check.
//
// It carries everything an HTTP adapter needs to respond: the verdict, the
// remaining budget for allowed requests, and the retry delay for rejected
// ones. The guard never formats HTTP responses itself.
type Decision struct {
	// Key is the client identifier the decision applies to.
	Key string

	// State is the verdict: allowed, rate limited, or blocked.
	State State

	// Limit is the maximum number of requests allowed in the window.
	Limit int

	// Remaining is the number of requests left in the current window.
	// Zero for rejected requests.
	Remaining int

	// RetryAfter is how long the client should wait before retrying.
	// Zero for allowed requests.
	RetryAfter time.Duration
}

// Allowed reports whether the request should proceed.
func (d Decision) Allowed() bool {
	return d.State == StateAllowed
}

// RetryAfterSeconds returns the retry delay in whole seconds, rounded up so
// a client that honors the header never retries inside the block.
// Useful for the Retry-After response header.
func (d Decision) RetryAfterSeconds() int64 {
	if d.RetryAfter <= 0 {
		return 0
	}
	secs := int64((d.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// String returns a human-readable representation of the decision.
func (d Decision) String() string {
	if d.Allowed() {
		return fmt.Sprintf("Decision{%s key=%s remaining=%d/%d}", d.State, d.Key, d.Remaining, d.Limit)
	}
	return fmt.Sprintf("Decision{%s key=%s retry_after=%s}", d.State, d.Key, d.RetryAfter)
}
