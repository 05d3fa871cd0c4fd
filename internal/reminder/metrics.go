package reminder

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "studyping"

var cycles = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reminder",
		Name:      "cycles_total",
		Help:      "Reminder cycles by outcome",
	},
	[]string{"status"},
)

func recordCycle(status string) {
	cycles.WithLabelValues(status).Inc()
}
