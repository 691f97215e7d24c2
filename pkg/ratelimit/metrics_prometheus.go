package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusGuardMetrics implements GuardMetrics using Prometheus.
//
// All metrics are registered on the registerer passed to the constructor so
// tests can use isolated registries and the application can expose a single
// registry via promhttp.
type PrometheusGuardMetrics struct {
	// decisionsTotal counts guard decisions.
	// Labels:
	//   - state: "allowed", "rate_limited", or "blocked"
	decisionsTotal *prometheus.CounterVec

	// whitelistedTotal counts checks short-circuited by the whitelist.
	whitelistedTotal prometheus.Counter

	// sweepRemovedTotal counts client records removed by sweeps.
	sweepRemovedTotal prometheus.Counter

	// activeClients tracks client records remaining after the last sweep.
	activeClients prometheus.Gauge
}

// NewPrometheusGuardMetrics creates guard metrics registered on reg.
func NewPrometheusGuardMetrics(reg prometheus.Registerer) *PrometheusGuardMetrics {
	m := &PrometheusGuardMetrics{
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ddos_guard_decisions_total",
				Help: "Guard decisions by state",
			},
			[]string{"state"},
		),
		whitelistedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ddos_guard_whitelisted_total",
				Help: "Checks admitted via the whitelist",
			},
		),
		sweepRemovedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ddos_guard_sweep_removed_total",
				Help: "Client records removed by periodic sweeps",
			},
		),
		activeClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ddos_guard_active_clients",
				Help: "Client records tracked after the last sweep",
			},
		),
	}

	reg.MustRegister(m.decisionsTotal, m.whitelistedTotal, m.sweepRemovedTotal, m.activeClients)
	return m
}

// RecordDecision implements GuardMetrics.
func (m *PrometheusGuardMetrics) RecordDecision(state State, whitelisted bool) {
	m.decisionsTotal.WithLabelValues(state.String()).Inc()
	if whitelisted {
		m.whitelistedTotal.Inc()
	}
}

// RecordSweep implements GuardMetrics.
func (m *PrometheusGuardMetrics) RecordSweep(removed, remaining int) {
	m.sweepRemovedTotal.Add(float64(removed))
	m.activeClients.Set(float64(remaining))
}
