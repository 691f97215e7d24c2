// Package ratelimit provides framework-agnostic request admission control.
//
// The Guard combines a per-client sliding window with automatic temporary
// blocking of clients that exceed the limit, a whitelist for exempt
// identifiers, and a periodic sweep that bounds memory. It performs no I/O
// and never blocks; callers supply an explicit timestamp, which makes
// time-dependent behavior deterministic under test.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// clientRecord tracks guard state for a single client identifier.
type clientRecord struct {
	// timestamps holds request times within the current window,
	// oldest first. Entries older than the window are pruned lazily.
	timestamps []time.Time

	// blockedUntil rejects all requests while in the future.
	// Monotonically non-decreasing across consecutive violations.
	blockedUntil time.Time

	// violations counts how many times this client triggered a block,
	// used for exponential backoff.
	violations int

	// lastSeen is the most recent Check time, used by Sweep and for
	// defensive handling of a clock that steps backwards.
	lastSeen time.Time
}

// Guard makes the admit-or-reject decision for every inbound request.
//
// All mutable state is owned by the Guard and protected by a single mutex;
// both Check and Sweep are O(requests-in-window) per client, with no
// blocking work inside the critical section.
type Guard struct {
	cfg       GuardConfig
	whitelist map[string]struct{}
	metrics   GuardMetrics

	mu      sync.Mutex
	clients map[string]*clientRecord
}

// NewGuard creates a guard from the given configuration.
// Invalid configuration is rejected immediately.
func NewGuard(cfg GuardConfig) (*Guard, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid guard config: %w", err)
	}
	if cfg.MaxBlockDuration == 0 {
		cfg.MaxBlockDuration = cfg.BlockDuration
	}
	if cfg.Clock == nil {
		cfg.Clock = &SystemClock{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NoopGuardMetrics{}
	}

	whitelist := make(map[string]struct{}, len(cfg.Whitelist))
	for _, id := range cfg.Whitelist {
		whitelist[id] = struct{}{}
	}

	return &Guard{
		cfg:       cfg,
		whitelist: whitelist,
		metrics:   cfg.Metrics,
		clients:   make(map[string]*clientRecord),
	}, nil
}

// Check decides whether a request from clientID at time now is admitted.
//
// The whitelist is consulted before any window or block logic and performs
// no bookkeeping for exempt clients. For everyone else the order is: active
// block first, then sliding-window accounting. The request that exceeds the
// limit receives StateRateLimited and starts a block; requests arriving
// during the block receive StateBlocked with the remaining delay.
//
// An empty clientID is a contract violation by the caller and panics.
func (g *Guard) Check(clientID string, now time.Time) Decision {
	if clientID == "" {
		panic("ratelimit: empty client identifier")
	}

	if _, ok := g.whitelist[clientID]; ok {
		g.metrics.RecordDecision(StateAllowed, true)
		return Decision{
			Key:       clientID,
			State:     StateAllowed,
			Limit:     g.cfg.MaxRequests,
			Remaining: g.cfg.MaxRequests,
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.clients[clientID]
	if !ok {
		rec = &clientRecord{timestamps: make([]time.Time, 0, g.cfg.MaxRequests)}
		g.clients[clientID] = rec
	}

	// Tolerate a clock that stepped backwards: never let a regression admit
	// requests that an honest clock would have rejected.
	if now.Before(rec.lastSeen) {
		now = rec.lastSeen
	}
	rec.lastSeen = now

	if now.Before(rec.blockedUntil) {
		d := Decision{
			Key:        clientID,
			State:      StateBlocked,
			Limit:      g.cfg.MaxRequests,
			RetryAfter: rec.blockedUntil.Sub(now),
		}
		g.metrics.RecordDecision(StateBlocked, false)
		return d
	}

	rec.prune(now.Add(-g.cfg.Window))
	rec.timestamps = append(rec.timestamps, now)

	if len(rec.timestamps) > g.cfg.MaxRequests {
		block := g.blockFor(rec.violations)
		until := now.Add(block)
		// Repeated violations extend, never shorten, the block.
		if until.After(rec.blockedUntil) {
			rec.blockedUntil = until
		}
		rec.violations++

		d := Decision{
			Key:        clientID,
			State:      StateRateLimited,
			Limit:      g.cfg.MaxRequests,
			RetryAfter: block,
		}
		g.metrics.RecordDecision(StateRateLimited, false)
		return d
	}

	d := Decision{
		Key:       clientID,
		State:     StateAllowed,
		Limit:     g.cfg.MaxRequests,
		Remaining: g.cfg.MaxRequests - len(rec.timestamps),
	}
	g.metrics.RecordDecision(StateAllowed, false)
	return d
}

// blockFor returns the block duration for a client with the given number of
// prior violations, applying exponential backoff when configured.
func (g *Guard) blockFor(violations int) time.Duration {
	block := g.cfg.BlockDuration
	if !g.cfg.ExponentialBackoff {
		return block
	}
	for i := 0; i < violations; i++ {
		block *= 2
		if block >= g.cfg.MaxBlockDuration {
			return g.cfg.MaxBlockDuration
		}
	}
	return block
}

// Sweep removes client records with no activity for longer than
// window + max block duration and returns the number removed.
//
// Sweep is best-effort memory management: it is safe to call concurrently
// with Check and never affects the correctness of in-flight decisions.
func (g *Guard) Sweep(now time.Time) int {
	cutoff := now.Add(-(g.cfg.Window + g.cfg.MaxBlockDuration))

	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	for id, rec := range g.clients {
		if rec.lastSeen.Before(cutoff) {
			delete(g.clients, id)
			removed++
		}
	}

	g.metrics.RecordSweep(removed, len(g.clients))
	return removed
}

// ClientCount returns the number of client records currently tracked.
func (g *Guard) ClientCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.clients)
}

// prune drops timestamps at or before the cutoff. Timestamps are appended in
// non-decreasing order, so a single scan from the front suffices.
func (r *clientRecord) prune(cutoff time.Time) {
	i := 0
	for i < len(r.timestamps) && !r.timestamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		r.timestamps = append(r.timestamps[:0], r.timestamps[i:]...)
	}
}
