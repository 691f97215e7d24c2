package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"ragchat/pkg/ratelimit"
)

// DDoSGuard is HTTP middleware that enforces per-IP request limits with
// escalating blocks. It is a thin adapter over pkg/ratelimit: it
// extracts the client IP, asks the guard for a decision and translates
// it into status codes and headers.
//
// Response headers:
//   - X-RateLimit-Limit: maximum requests per window
//   - X-RateLimit-Remaining: requests left in the current window
//   - Retry-After: seconds until the block lifts (429 only)
type DDoSGuard struct {
	guard       *ratelimit.Guard
	ipExtractor IPExtractor
	now         func() time.Time
	skipPaths   map[string]struct{}
}

// NewDDoSGuard creates the middleware. skipPaths lists request paths
// that bypass the guard entirely, typically health and metrics probes.
func NewDDoSGuard(guard *ratelimit.Guard, ipExtractor IPExtractor, skipPaths []string) *DDoSGuard {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}
	return &DDoSGuard{
		guard:       guard,
		ipExtractor: ipExtractor,
		now:         time.Now,
		skipPaths:   skip,
	}
}

// Middleware returns the http.Handler wrapper.
func (g *DDoSGuard) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := g.skipPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			ip, err := g.ipExtractor.ExtractIP(r)
			if err != nil {
				// Without a client identity there is nothing to limit.
				// Fail open so a malformed peer address never takes the
				// API down.
				slog.Error("ddos guard: failed to extract IP, allowing request",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
					slog.String("path", r.URL.Path))
				next.ServeHTTP(w, r)
				return
			}

			decision := g.guard.Check(ip, g.now())

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

			if !decision.Allowed() {
				g.writeLimited(w, r, decision)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (g *DDoSGuard) writeLimited(w http.ResponseWriter, r *http.Request, decision ratelimit.Decision) {
	retryAfter := decision.RetryAfterSeconds()
	w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	response := map[string]any{
		"error":       "rate_limit_exceeded",
		"message":     "Too many requests from this IP address",
		"retry_after": retryAfter,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("ddos guard: failed to encode JSON response",
			slog.String("error", err.Error()))
	}

	slog.Warn("rate limit exceeded",
		slog.String("key", decision.Key),
		slog.String("state", decision.State.String()),
		slog.Int("limit", decision.Limit),
		slog.Int64("retry_after", retryAfter),
		slog.String("path", r.URL.Path),
		slog.String("method", r.Method))
}

// StartSweep runs the guard's sweep on a ticker until ctx is cancelled.
// Sweeping drops records of clients that have gone quiet so the guard's
// memory stays bounded.
func (g *DDoSGuard) StartSweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("ddos guard sweep started", slog.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			slog.Info("ddos guard sweep stopped")
			return
		case <-ticker.C:
			removed := g.guard.Sweep(g.now())
			slog.Debug("ddos guard sweep completed",
				slog.Int("removed", removed),
				slog.Int("active_clients", g.guard.ClientCount()))
		}
	}
}
