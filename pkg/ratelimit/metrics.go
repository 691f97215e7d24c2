package ratelimit

// GuardMetrics receives observability events from the guard.
//
// Implementations can use Prometheus or custom metrics systems. Reporting is
// an external collaborator concern; the guard only emits events and never
// depends on the implementation for correctness.
type GuardMetrics interface {
	// RecordDecision records the outcome of a single check.
	// whitelisted is true when the client bypassed limiting entirely.
	RecordDecision(state State, whitelisted bool)

	// RecordSweep records a completed sweep: the number of client records
	// removed and the number remaining.
	RecordSweep(removed, remaining int)
}

// NoopGuardMetrics discards all events. Used when metrics are disabled and
// in tests that do not assert on observability.
type NoopGuardMetrics struct{}

// RecordDecision does nothing.
func (NoopGuardMetrics) RecordDecision(State, bool) {}

// RecordSweep does nothing.
func (NoopGuardMetrics) RecordSweep(int, int) {}
