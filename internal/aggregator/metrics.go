package aggregator

import "github.com/prometheus/client_golang/prometheus"

var (
	poolKeys = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "stlauncher",
		Subsystem: "aggregator",
		Name:      "pool_keys",
		Help:      "Number of keys in the pool",
	})
	poolQuarantined = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "stlauncher",
		Subsystem: "aggregator",
		Name:      "quarantined_keys",
		Help:      "Number of quarantined keys",
	})
	poolResets = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "stlauncher",
		Subsystem: "aggregator",
		Name:      "quarantine_resets_total",
		Help:      "Times the quarantine was cleared because every key was quarantined",
	})
	upstreamTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stlauncher",
		Subsystem: "aggregator",
		Name:      "upstream_requests_total",
		Help:      "Proxied requests by upstream status code (error for transport failures)",
	}, []string{"code"})
	upstreamDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "stlauncher",
		Subsystem: "aggregator",
		Name:      "upstream_duration_seconds",
		Help:      "Time until upstream response headers arrived",
		Buckets:   prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(poolKeys, poolQuarantined, poolResets, upstreamTotal, upstreamDuration)
}
