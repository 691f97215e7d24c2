package ratelimit

import (
	"sync"
	"testing"
	"time"
)

// MockClock implements Clock for deterministic tests.
type MockClock struct {
	mu  sync.RWMutex
	now time.Time
}

func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

func (m *MockClock) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now
}

func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

func testConfig() GuardConfig {
	return GuardConfig{
		Window:        60 * time.Second,
		MaxRequests:   5,
		BlockDuration: 120 * time.Second,
	}
}

func mustNewGuard(t *testing.T, cfg GuardConfig) *Guard {
	t.Helper()
	g, err := NewGuard(cfg)
	if err != nil {
		t.Fatalf("NewGuard() error = %v", err)
	}
	return g
}

func TestNewGuard_ConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*GuardConfig)
		wantErr bool
	}{
		{
			name:   "valid config",
			mutate: func(c *GuardConfig) {},
		},
		{
			name:    "zero window",
			mutate:  func(c *GuardConfig) { c.Window = 0 },
			wantErr: true,
		},
		{
			name:    "negative window",
			mutate:  func(c *GuardConfig) { c.Window = -time.Second },
			wantErr: true,
		},
		{
			name:    "zero max requests",
			mutate:  func(c *GuardConfig) { c.MaxRequests = 0 },
			wantErr: true,
		},
		{
			name:    "zero block duration",
			mutate:  func(c *GuardConfig) { c.BlockDuration = 0 },
			wantErr: true,
		},
		{
			name:    "max block shorter than block",
			mutate:  func(c *GuardConfig) { c.MaxBlockDuration = time.Second },
			wantErr: true,
		},
		{
			name:   "max block equal to block",
			mutate: func(c *GuardConfig) { c.MaxBlockDuration = 120 * time.Second },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			_, err := NewGuard(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewGuard() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGuard_SlidingWindow(t *testing.T) {
	g := mustNewGuard(t, testConfig())
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		d := g.Check("1.2.3.4", now)
		if !d.Allowed() {
			t.Fatalf("request %d: got %v, want allowed", i+1, d.State)
		}
		if d.Remaining != 5-(i+1) {
			t.Errorf("request %d: Remaining = %d, want %d", i+1, d.Remaining, 5-(i+1))
		}
	}

	d := g.Check("1.2.3.4", now.Add(1*time.Second))
	if d.State != StateRateLimited {
		t.Fatalf("6th request: got %v, want StateRateLimited", d.State)
	}
	if d.RetryAfter != 120*time.Second {
		t.Errorf("6th request: RetryAfter = %v, want %v", d.RetryAfter, 120*time.Second)
	}

	// An unrelated client is unaffected.
	if d := g.Check("5.6.7.8", now); !d.Allowed() {
		t.Errorf("independent client: got %v, want allowed", d.State)
	}
}

func TestGuard_WindowExpiry(t *testing.T) {
	g := mustNewGuard(t, testConfig())
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		if d := g.Check("c", now); !d.Allowed() {
			t.Fatalf("warmup request %d rejected: %v", i+1, d.State)
		}
	}

	// After the window has passed, the budget is fresh.
	later := now.Add(61 * time.Second)
	d := g.Check("c", later)
	if !d.Allowed() {
		t.Fatalf("post-window request: got %v, want allowed", d.State)
	}
	if d.Remaining != 4 {
		t.Errorf("post-window Remaining = %d, want 4", d.Remaining)
	}
}

func TestGuard_BlockMonotonicity(t *testing.T) {
	g := mustNewGuard(t, testConfig())
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		g.Check("c", now)
	}
	limited := g.Check("c", now)
	if limited.State != StateRateLimited {
		t.Fatalf("got %v, want StateRateLimited", limited.State)
	}

	// While the block is active, retry_after never increases.
	prev := limited.RetryAfter
	for _, dt := range []time.Duration{10 * time.Second, 30 * time.Second, 119 * time.Second} {
		d := g.Check("c", now.Add(dt))
		if d.State != StateBlocked {
			t.Fatalf("at +%v: got %v, want StateBlocked", dt, d.State)
		}
		if d.RetryAfter > prev {
			t.Errorf("at +%v: RetryAfter %v increased beyond %v", dt, d.RetryAfter, prev)
		}
		prev = d.RetryAfter
	}

	// After the block expires, the client is admitted again.
	if d := g.Check("c", now.Add(121*time.Second)); !d.Allowed() {
		t.Errorf("post-block request: got %v, want allowed", d.State)
	}
}

func TestGuard_ExponentialBackoff(t *testing.T) {
	cfg := testConfig()
	cfg.ExponentialBackoff = true
	cfg.MaxBlockDuration = 300 * time.Second
	g := mustNewGuard(t, cfg)

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	trip := func(at time.Time) Decision {
		t.Helper()
		var d Decision
		for i := 0; i < 6; i++ {
			d = g.Check("c", at)
		}
		if d.State != StateRateLimited {
			t.Fatalf("expected StateRateLimited, got %v", d.State)
		}
		return d
	}

	first := trip(now)
	if first.RetryAfter != 120*time.Second {
		t.Errorf("first violation: RetryAfter = %v, want 120s", first.RetryAfter)
	}

	// Second episode, after the first block expired: doubled.
	second := trip(now.Add(200 * time.Second))
	if second.RetryAfter != 240*time.Second {
		t.Errorf("second violation: RetryAfter = %v, want 240s", second.RetryAfter)
	}

	// Third episode: 480s capped at 300s.
	third := trip(now.Add(600 * time.Second))
	if third.RetryAfter != 300*time.Second {
		t.Errorf("third violation: RetryAfter = %v, want cap 300s", third.RetryAfter)
	}
}

func TestGuard_WhitelistPrecedence(t *testing.T) {
	cfg := testConfig()
	cfg.Whitelist = []string{"10.0.0.1"}
	g := mustNewGuard(t, cfg)

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 1000; i++ {
		d := g.Check("10.0.0.1", now)
		if !d.Allowed() {
			t.Fatalf("whitelisted request %d: got %v, want allowed", i+1, d.State)
		}
	}

	// Whitelisted traffic performs no bookkeeping.
	if got := g.ClientCount(); got != 0 {
		t.Errorf("ClientCount() = %d, want 0", got)
	}
}

func TestGuard_EmptyClientIDPanics(t *testing.T) {
	g := mustNewGuard(t, testConfig())

	defer func() {
		if recover() == nil {
			t.Error("Check with empty client id should panic")
		}
	}()
	g.Check("", time.Now())
}

func TestGuard_ClockRegression(t *testing.T) {
	g := mustNewGuard(t, testConfig())
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		g.Check("c", now)
	}
	if d := g.Check("c", now); d.State != StateRateLimited {
		t.Fatalf("got %v, want StateRateLimited", d.State)
	}

	// A clock that steps backwards must not slip past the block.
	d := g.Check("c", now.Add(-30*time.Second))
	if d.State != StateBlocked {
		t.Errorf("after clock regression: got %v, want StateBlocked", d.State)
	}
}

func TestGuard_Sweep(t *testing.T) {
	cfg := testConfig()
	cfg.MaxBlockDuration = 120 * time.Second
	g := mustNewGuard(t, cfg)

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	g.Check("old", now)
	g.Check("recent", now.Add(3*time.Minute))

	if got := g.ClientCount(); got != 2 {
		t.Fatalf("ClientCount() = %d, want 2", got)
	}

	// Horizon is window + max block = 3 minutes. At +4m only "old" is stale.
	removed := g.Sweep(now.Add(4 * time.Minute))
	if removed != 1 {
		t.Errorf("Sweep() removed = %d, want 1", removed)
	}
	if got := g.ClientCount(); got != 1 {
		t.Errorf("ClientCount() after sweep = %d, want 1", got)
	}

	// A swept client starts from a clean slate.
	if d := g.Check("old", now.Add(5*time.Minute)); !d.Allowed() {
		t.Errorf("swept client: got %v, want allowed", d.State)
	}
}

func TestGuard_ConcurrentChecks(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRequests = 50
	g := mustNewGuard(t, cfg)

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	const goroutines = 10
	const perGoroutine = 20

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				if g.Check("shared", now).Allowed() {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
				// Sweeps must be safe alongside checks.
				g.Sweep(now)
			}
		}()
	}
	wg.Wait()

	// Exactly the window budget is admitted, regardless of interleaving.
	if allowed != 50 {
		t.Errorf("allowed = %d, want exactly 50", allowed)
	}
}

func TestDecision_RetryAfterSeconds(t *testing.T) {
	tests := []struct {
		name       string
		retryAfter time.Duration
		want       int64
	}{
		{"zero", 0, 0},
		{"sub-second rounds up", 300 * time.Millisecond, 1},
		{"exact seconds", 2 * time.Second, 2},
		{"fractional rounds up", 2500 * time.Millisecond, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decision{RetryAfter: tt.retryAfter}
			if got := d.RetryAfterSeconds(); got != tt.want {
				t.Errorf("RetryAfterSeconds() = %d, want %d", got, tt.want)
			}
		})
	}
}
