package proxy

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the Proxy's process metrics (SPEC_FULL.md §3/§6). They are
// registered lazily and namespaced by an instance id so more than one
// Proxy can run in the same process (e.g. in tests) without a duplicate
// registration panic, the same problem matst80-showoff's promauto globals
// would have if its server ever ran twice in-process.
type metrics struct {
	idleTunnels      prometheus.Gauge
	waitingRequests  prometheus.Gauge
	pairsEstablished prometheus.Counter
	pairDuration     prometheus.Histogram
}

var sharedRegistry = prometheus.NewRegistry()

func newMetrics(instance string) *metrics {
	labels := prometheus.Labels{"instance": instance}
	m := &metrics{
		idleTunnels: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "revtun_idle_tunnels",
			Help:        "Idle tunnels currently sitting in the proxy's pool.",
			ConstLabels: labels,
		}),
		waitingRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "revtun_waiting_requests",
			Help:        "Public requests currently waiting for a tunnel.",
			ConstLabels: labels,
		}),
		pairsEstablished: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "revtun_pairs_established_total",
			Help:        "Request/tunnel pairs established.",
			ConstLabels: labels,
		}),
		pairDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "revtun_pair_duration_seconds",
			Help:        "Lifetime of a request/tunnel pair.",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),
	}
	_ = sharedRegistry.Register(m.idleTunnels)
	_ = sharedRegistry.Register(m.waitingRequests)
	_ = sharedRegistry.Register(m.pairsEstablished)
	_ = sharedRegistry.Register(m.pairDuration)
	return m
}

// Registry returns the shared prometheus.Registry that every Proxy's
// metrics are registered against, for a caller to expose over /metrics.
func Registry() *prometheus.Registry {
	return sharedRegistry
}
