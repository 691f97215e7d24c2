// Package cache exposes administrative endpoints for the response
// cache: inspection, full invalidation and expired-entry cleanup.
package cache

import (
	"log/slog"
	"net/http"
	"time"

	"ragchat/internal/handler/http/respond"
	"ragchat/pkg/respcache"
)

// StatsResponse is the GET /cache/stats payload.
type StatsResponse struct {
	Entries    int     `json:"entries"`
	Hits       uint64  `json:"hits"`
	Misses     uint64  `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
	TTLSeconds int     `json:"ttl_seconds"`
}

// StatsHandler serves GET /cache/stats.
type StatsHandler struct{ Cache *respcache.Cache }

func (h StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	stats := h.Cache.Stats()

	var hitRate float64
	if total := stats.Hits + stats.Misses; total > 0 {
		hitRate = float64(stats.Hits) / float64(total)
	}

	respond.JSON(w, http.StatusOK, StatsResponse{
		Entries:    stats.Entries,
		Hits:       stats.Hits,
		Misses:     stats.Misses,
		HitRate:    hitRate,
		TTLSeconds: int(h.Cache.TTL().Seconds()),
	})
}

// ClearHandler serves POST /cache/clear. It drops every entry.
type ClearHandler struct{ Cache *respcache.Cache }

func (h ClearHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	removed := h.Cache.InvalidateAll()
	slog.Info("response cache cleared", slog.Int("removed", removed))
	respond.JSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// ClearExpiredHandler serves POST /cache/clear-expired. It removes only
// entries whose TTL has passed; live entries stay.
type ClearExpiredHandler struct{ Cache *respcache.Cache }

func (h ClearExpiredHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	removed := h.Cache.RemoveExpired(time.Now())
	slog.Info("expired cache entries removed", slog.Int("removed", removed))
	respond.JSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// Register wires the cache admin routes into the mux, wrapped by the
// given auth middleware.
func Register(mux *http.ServeMux, cache *respcache.Cache, authz func(http.Handler) http.Handler) {
	mux.Handle("GET /cache/stats", authz(StatsHandler{cache}))
	mux.Handle("POST /cache/clear", authz(ClearHandler{cache}))
	mux.Handle("POST /cache/clear-expired", authz(ClearExpiredHandler{cache}))
}
