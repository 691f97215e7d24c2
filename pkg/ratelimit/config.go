package ratelimit

import (
	"fmt"
	"time"
)

// GuardConfig holds configuration for the DDoS guard.
//
// Invalid configuration is rejected by NewGuard at construction time rather
// than silently clamped, so a misconfigured deployment fails at startup.
type GuardConfig struct {
	// Window is the sliding window over which requests are counted.
	Window time.Duration

	// MaxRequests is the maximum number of requests allowed per client
	// within the window. The request that exceeds it triggers a block.
	MaxRequests int

	// BlockDuration is the base duration of a block applied to a client
	// that exceeds the limit.
	BlockDuration time.Duration

	// MaxBlockDuration caps the block duration when exponential backoff is
	// enabled. It also bounds how long an idle client record is retained.
	// Zero defaults to BlockDuration.
	MaxBlockDuration time.Duration

	// ExponentialBackoff doubles the block duration for each prior
	// violation by the same client, up to MaxBlockDuration.
	ExponentialBackoff bool

	// Whitelist is the set of client identifiers exempt from limiting.
	// Whitelisted clients are admitted before any bookkeeping happens.
	Whitelist []string

	// Clock provides time for defaults. Callers of Check and Sweep pass
	// explicit timestamps; nil defaults to SystemClock.
	Clock Clock

	// Metrics receives per-decision observability events.
	// Nil defaults to NoopGuardMetrics.
	Metrics GuardMetrics
}

// DefaultGuardConfig returns a configuration suitable for a public chat API:
// 100 requests per minute per client, 5 minute base block, backoff capped at
// one hour.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		Window:             1 * time.Minute,
		MaxRequests:        100,
		BlockDuration:      5 * time.Minute,
		MaxBlockDuration:   1 * time.Hour,
		ExponentialBackoff: true,
	}
}

// Validate checks the configuration and returns an error describing the
// first problem found.
func (c GuardConfig) Validate() error {
	if c.Window <= 0 {
		return fmt.Errorf("window must be positive, got %v", c.Window)
	}
	if c.MaxRequests <= 0 {
		return fmt.Errorf("max requests must be positive, got %d", c.MaxRequests)
	}
	if c.BlockDuration <= 0 {
		return fmt.Errorf("block duration must be positive, got %v", c.BlockDuration)
	}
	if c.MaxBlockDuration < 0 {
		return fmt.Errorf("max block duration must not be negative, got %v", c.MaxBlockDuration)
	}
	if c.MaxBlockDuration > 0 && c.MaxBlockDuration < c.BlockDuration {
		return fmt.Errorf("max block duration %v must not be shorter than block duration %v",
			c.MaxBlockDuration, c.BlockDuration)
	}
	return nil
}
