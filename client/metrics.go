package client

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metrics mirrors the Proxy's metrics surface on the Client side
// (SPEC_FULL.md §6), grounded on the same matst80-showoff pattern.
type metrics struct {
	poolSize        prometheus.Gauge
	reconnectsTotal prometheus.Counter
}

var sharedRegistry = prometheus.NewRegistry()

func newMetrics(instance string) *metrics {
	labels := prometheus.Labels{"instance": instance}
	m := &metrics{
		poolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "revtun_pool_size",
			Help:        "Reverse tunnels currently active in the client's pool.",
			ConstLabels: labels,
		}),
		reconnectsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "revtun_reconnects_total",
			Help:        "Tunnel-ended events that triggered a pool refill.",
			ConstLabels: labels,
		}),
	}
	_ = sharedRegistry.Register(m.poolSize)
	_ = sharedRegistry.Register(m.reconnectsTotal)
	return m
}

// Registry returns the shared prometheus.Registry that every Client's
// metrics are registered against, for a caller wiring its own /metrics.
func Registry() *prometheus.Registry {
	return sharedRegistry
}
