// Package metrics provides centralized Prometheus metrics for the
// application, registered on a dedicated registry so tests stay isolated
// from the global default.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ragchat/pkg/respcache"
)

// Registry bundles the application's Prometheus registry with the chat
// metrics recorded by the request path.
type Registry struct {
	reg *prometheus.Registry

	// ChatRequestsTotal counts chat requests by outcome.
	// Labels:
	//   - result: "cached", "generated", "streamed", "rejected" or "error"
	ChatRequestsTotal *prometheus.CounterVec

	// ChatDuration measures end-to-end chat handling duration for
	// non-error outcomes.
	ChatDuration *prometheus.HistogramVec
}

// New creates the application registry with Go runtime and process
// collectors plus the chat metrics.
func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		reg: reg,
		ChatRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_requests_total",
				Help: "Chat requests by result",
			},
			[]string{"result"},
		),
		ChatDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chat_request_duration_seconds",
				Help:    "End-to-end chat request duration",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"result"},
		),
	}
	reg.MustRegister(r.ChatRequestsTotal, r.ChatDuration)
	return r
}

// Registerer exposes the underlying registerer for components that register
// their own metrics (e.g. the DDoS guard).
func (r *Registry) Registerer() prometheus.Registerer {
	return r.reg
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// ObserveChat records one chat request with its outcome and duration.
func (r *Registry) ObserveChat(result string, d time.Duration) {
	r.ChatRequestsTotal.WithLabelValues(result).Inc()
	if result != "error" {
		r.ChatDuration.WithLabelValues(result).Observe(d.Seconds())
	}
}

// cacheCollector exports response cache statistics as gauges by reading
// Cache.Stats on every scrape, so no counters are duplicated in two places.
type cacheCollector struct {
	cache   *respcache.Cache
	entries *prometheus.Desc
	hits    *prometheus.Desc
	misses  *prometheus.Desc
}

// RegisterCache registers a collector exposing the given cache's stats.
func (r *Registry) RegisterCache(cache *respcache.Cache) {
	r.reg.MustRegister(&cacheCollector{
		cache: cache,
		entries: prometheus.NewDesc(
			"response_cache_entries",
			"Current number of cached responses", nil, nil),
		hits: prometheus.NewDesc(
			"response_cache_hits_total",
			"Cache lookups served from the cache", nil, nil),
		misses: prometheus.NewDesc(
			"response_cache_misses_total",
			"Cache lookups that fell through to generation", nil, nil),
	})
}

func (c *cacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.entries
	ch <- c.hits
	ch <- c.misses
}

func (c *cacheCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.cache.Stats()
	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(stats.Entries))
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(stats.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(stats.Misses))
}
