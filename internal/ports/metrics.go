package ports

import "github.com/prometheus/client_golang/prometheus"

var reclaimTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "stlauncher",
		Subsystem: "ports",
		Name:      "reclaim_total",
		Help:      "Port reclamation attempts by the strategy that succeeded (none when all failed)",
	},
	[]string{"strategy"},
)

func init() {
	prometheus.MustRegister(reclaimTotal)
}
