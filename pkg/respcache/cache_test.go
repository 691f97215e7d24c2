package respcache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func mustNewCache(t *testing.T, cfg Config) *Cache {
	t.Helper()
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNew_ConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{TTL: time.Hour, MaxEntries: 10}, false},
		{"zero ttl", Config{TTL: 0, MaxEntries: 10}, true},
		{"negative ttl", Config{TTL: -time.Second, MaxEntries: 10}, true},
		{"zero max entries", Config{TTL: time.Hour, MaxEntries: 0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCache_RoundTrip(t *testing.T) {
	c := mustNewCache(t, DefaultConfig())
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	fp := FingerprintRequest(
		[]Message{{Role: "user", Content: "hello"}},
		GenerationParams{Model: "gpt-4o-mini", Temperature: 0.7, MaxTokens: 1024},
	)
	payload := []byte(`{"reply":"hi"}`)

	c.Store(fp, payload, now, time.Hour)

	got, ok := c.Lookup(fp, now)
	if !ok {
		t.Fatal("Lookup() miss, want hit")
	}
	if string(got) != string(payload) {
		t.Errorf("Lookup() = %q, want %q", got, payload)
	}

	// The returned slice is a copy; mutating it must not corrupt the cache.
	got[0] = 'X'
	again, ok := c.Lookup(fp, now)
	if !ok || string(again) != string(payload) {
		t.Errorf("payload aliased: got %q, want %q", again, payload)
	}
}

func TestCache_Expiry(t *testing.T) {
	c := mustNewCache(t, DefaultConfig())
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	fp := FingerprintRequest(
		[]Message{{Role: "user", Content: "hello"}},
		GenerationParams{Model: "gpt-4o-mini"},
	)
	c.Store(fp, []byte("payload"), now, 3600*time.Second)

	if _, ok := c.Lookup(fp, now.Add(3599*time.Second)); !ok {
		t.Error("lookup at ttl-1s: miss, want hit")
	}
	if _, ok := c.Lookup(fp, now.Add(3601*time.Second)); ok {
		t.Error("lookup at ttl+1s: hit, want miss")
	}

	// The expired entry is removed, not just hidden.
	if stats := c.Stats(); stats.Entries != 0 {
		t.Errorf("Entries = %d after expiry, want 0", stats.Entries)
	}
}

func TestCache_CapacityEviction(t *testing.T) {
	c := mustNewCache(t, Config{TTL: time.Hour, MaxEntries: 3})
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	fps := make([]Fingerprint, 4)
	for i := range fps {
		fps[i] = FingerprintRequest(
			[]Message{{Role: "user", Content: fmt.Sprintf("q%d", i)}},
			GenerationParams{Model: "m"},
		)
		c.Store(fps[i], []byte(fmt.Sprintf("p%d", i)), now.Add(time.Duration(i)*time.Second), time.Hour)
	}

	if stats := c.Stats(); stats.Entries != 3 {
		t.Fatalf("Entries = %d, want 3", stats.Entries)
	}

	// The single oldest-created entry was evicted.
	if _, ok := c.Lookup(fps[0], now.Add(time.Minute)); ok {
		t.Error("oldest entry survived, want evicted")
	}
	for i := 1; i < 4; i++ {
		if _, ok := c.Lookup(fps[i], now.Add(time.Minute)); !ok {
			t.Errorf("entry %d evicted, want kept", i)
		}
	}
}

func TestCache_EvictionIgnoresAccessOrder(t *testing.T) {
	c := mustNewCache(t, Config{TTL: time.Hour, MaxEntries: 2})
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	a := Fingerprint("a")
	b := Fingerprint("b")
	c.Store(a, []byte("a"), now, time.Hour)
	c.Store(b, []byte("b"), now.Add(time.Second), time.Hour)

	// Touch the oldest entry; creation-order eviction must still remove it.
	if _, ok := c.Lookup(a, now.Add(2*time.Second)); !ok {
		t.Fatal("warmup lookup missed")
	}

	c.Store(Fingerprint("c"), []byte("c"), now.Add(3*time.Second), time.Hour)

	if _, ok := c.Lookup(a, now.Add(4*time.Second)); ok {
		t.Error("oldest-created entry survived despite recent access")
	}
	if _, ok := c.Lookup(b, now.Add(4*time.Second)); !ok {
		t.Error("newer entry evicted, want kept")
	}
}

func TestCache_StoreOverwrites(t *testing.T) {
	c := mustNewCache(t, DefaultConfig())
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	fp := Fingerprint("k")
	c.Store(fp, []byte("v1"), now, time.Hour)
	c.Store(fp, []byte("v2"), now.Add(time.Second), time.Hour)

	got, ok := c.Lookup(fp, now.Add(2*time.Second))
	if !ok || string(got) != "v2" {
		t.Errorf("Lookup() = %q, %v; want %q, true", got, ok, "v2")
	}
	if stats := c.Stats(); stats.Entries != 1 {
		t.Errorf("Entries = %d, want 1", stats.Entries)
	}
}

func TestCache_InvalidateAll(t *testing.T) {
	c := mustNewCache(t, DefaultConfig())
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	c.Store(Fingerprint("a"), []byte("a"), now, time.Hour)
	c.Store(Fingerprint("b"), []byte("b"), now, time.Hour)

	if n := c.InvalidateAll(); n != 2 {
		t.Errorf("InvalidateAll() = %d, want 2", n)
	}
	if stats := c.Stats(); stats.Entries != 0 {
		t.Errorf("Entries = %d, want 0", stats.Entries)
	}
}

func TestCache_RemoveExpired(t *testing.T) {
	c := mustNewCache(t, DefaultConfig())
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	c.Store(Fingerprint("short"), []byte("s"), now, time.Minute)
	c.Store(Fingerprint("long"), []byte("l"), now, time.Hour)

	if n := c.RemoveExpired(now.Add(2 * time.Minute)); n != 1 {
		t.Errorf("RemoveExpired() = %d, want 1", n)
	}
	if _, ok := c.Lookup(Fingerprint("long"), now.Add(2*time.Minute)); !ok {
		t.Error("unexpired entry removed")
	}
}

func TestCache_Stats(t *testing.T) {
	c := mustNewCache(t, DefaultConfig())
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	fp := Fingerprint("k")
	c.Lookup(fp, now) // miss
	c.Store(fp, []byte("v"), now, time.Hour)
	c.Lookup(fp, now) // hit
	c.Lookup(fp, now) // hit

	stats := c.Stats()
	if stats.Hits != 2 {
		t.Errorf("Hits = %d, want 2", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Misses = %d, want 1", stats.Misses)
	}
	if stats.Entries != 1 {
		t.Errorf("Entries = %d, want 1", stats.Entries)
	}
}

func TestCache_NonPositiveTTLPanics(t *testing.T) {
	c := mustNewCache(t, DefaultConfig())

	defer func() {
		if recover() == nil {
			t.Error("Store with non-positive ttl should panic")
		}
	}()
	c.Store(Fingerprint("k"), []byte("v"), time.Now(), 0)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := mustNewCache(t, Config{TTL: time.Hour, MaxEntries: 100})
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	const goroutines = 8
	const ops = 200

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < ops; j++ {
				fp := Fingerprint(fmt.Sprintf("key-%d", j%20))
				if j%3 == 0 {
					c.Store(fp, []byte("payload"), now, time.Hour)
				} else {
					if got, ok := c.Lookup(fp, now); ok && string(got) != "payload" {
						t.Errorf("partially written entry observed: %q", got)
					}
				}
			}
		}(i)
	}
	wg.Wait()
}
