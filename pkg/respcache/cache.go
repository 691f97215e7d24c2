// Package respcache provides a concurrency-safe in-memory response cache
// with TTL expiry and creation-order capacity eviction.
//
// The cache maps a deterministic fingerprint of a chat request to a
// previously computed response payload. Expiry is lazy: a stale entry is
// treated as absent and removed on lookup. When the entry count exceeds the
// configured maximum, the oldest-created entries are evicted; last access
// time is recorded for observability only and never drives eviction.
package respcache

import (
	"bytes"
	"fmt"
	"sync"
	"time"
)

// Config holds configuration for the response cache.
type Config struct {
	// TTL is the default time-to-live applied by callers passing it to
	// Store. It is validated here so a misconfigured deployment fails at
	// startup.
	TTL time.Duration

	// MaxEntries bounds the number of cached responses. Exceeding it
	// evicts entries with the oldest creation time.
	MaxEntries int
}

// DefaultConfig returns the default cache configuration: one hour TTL,
// 1000 entries.
func DefaultConfig() Config {
	return Config{
		TTL:        1 * time.Hour,
		MaxEntries: 1000,
	}
}

// Validate checks the configuration and returns an error describing the
// first problem found.
func (c Config) Validate() error {
	if c.TTL <= 0 {
		return fmt.Errorf("ttl must be positive, got %v", c.TTL)
	}
	if c.MaxEntries <= 0 {
		return fmt.Errorf("max entries must be positive, got %d", c.MaxEntries)
	}
	return nil
}

// Stats holds monotonically accumulating cache counters since process start,
// plus the current entry count.
type Stats struct {
	Entries int
	Hits    uint64
	Misses  uint64
}

// entry is a single cached response. Read-only after creation except for
// lastAccessedAt.
type entry struct {
	payload        []byte
	createdAt      time.Time
	expiresAt      time.Time
	lastAccessedAt time.Time
}

// Cache is a TTL response cache safe for concurrent use.
//
// All operations are immediate in-memory computations; no I/O happens inside
// the critical section. Callers pass an explicit timestamp, which keeps
// expiry deterministic under test.
type Cache struct {
	cfg Config

	mu      sync.Mutex
	entries map[Fingerprint]*entry
	hits    uint64
	misses  uint64
}

// New creates a cache from the given configuration.
// Invalid configuration is rejected immediately.
func New(cfg Config) (*Cache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cache config: %w", err)
	}
	return &Cache{
		cfg:     cfg,
		entries: make(map[Fingerprint]*entry),
	}, nil
}

// TTL returns the configured default time-to-live.
func (c *Cache) TTL() time.Duration {
	return c.cfg.TTL
}

// Lookup returns the payload cached under fp if present and not expired at
// time now. A present-but-expired entry is removed and reported as absent.
// The returned slice is a copy; callers may modify it freely.
func (c *Cache) Lookup(fp Fingerprint, now time.Time) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[fp]
	if !ok {
		c.misses++
		return nil, false
	}
	if !now.Before(e.expiresAt) {
		delete(c.entries, fp)
		c.misses++
		return nil, false
	}

	e.lastAccessedAt = now
	c.hits++
	return bytes.Clone(e.payload), true
}

// Store inserts or overwrites the payload under fp with the given ttl,
// evicting oldest-created entries if the capacity is exceeded.
//
// A non-positive ttl is a contract violation by the caller and panics;
// validated configuration never produces one.
func (c *Cache) Store(fp Fingerprint, payload []byte, now time.Time, ttl time.Duration) {
	if ttl <= 0 {
		panic(fmt.Sprintf("respcache: non-positive ttl %v", ttl))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[fp] = &entry{
		payload:        bytes.Clone(payload),
		createdAt:      now,
		expiresAt:      now.Add(ttl),
		lastAccessedAt: now,
	}

	for len(c.entries) > c.cfg.MaxEntries {
		c.evictOldestLocked()
	}
}

// evictOldestLocked removes the entry with the oldest creation time.
// Caller must hold the lock.
func (c *Cache) evictOldestLocked() {
	var (
		oldestKey Fingerprint
		oldest    time.Time
		found     bool
	)
	for fp, e := range c.entries {
		if !found || e.createdAt.Before(oldest) {
			oldestKey = fp
			oldest = e.createdAt
			found = true
		}
	}
	if found {
		delete(c.entries, oldestKey)
	}
}

// InvalidateAll clears the cache and returns the number of entries removed.
// Used by administrative triggers, not by normal request flow.
func (c *Cache) InvalidateAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.entries)
	c.entries = make(map[Fingerprint]*entry)
	return n
}

// RemoveExpired removes all entries expired at time now and returns the
// number removed. Lookup already expires lazily; this exists for the
// administrative endpoint that reclaims memory eagerly.
func (c *Cache) RemoveExpired(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for fp, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, fp)
			removed++
		}
	}
	return removed
}

// Stats returns current cache statistics.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Entries: len(c.entries),
		Hits:    c.hits,
		Misses:  c.misses,
	}
}
