package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	startsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stlauncher",
			Subsystem: "supervisor",
			Name:      "starts_total",
			Help:      "Start attempts by outcome (ready, initializing, rejected, failed)",
		},
		[]string{"outcome"},
	)

	exitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stlauncher",
			Subsystem: "supervisor",
			Name:      "exits_total",
			Help:      "Child process terminations by reason (stopped, forced, unexpected)",
		},
		[]string{"reason"},
	)

	stateGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "stlauncher",
			Subsystem: "supervisor",
			Name:      "state",
			Help:      "Supervisor state: 0 stopped, 1 starting, 2 running, 3 stopping",
		},
	)
)

func init() {
	prometheus.MustRegister(startsTotal, exitsTotal, stateGauge)
}
