package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "studyping"

var batchCycles = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "batch_cycles_total",
		Help:      "Per-subscriber cycle outcomes across scheduled batches",
	},
	[]string{"status"},
)

func recordBatch(result BatchResult) {
	batchCycles.WithLabelValues("success").Add(float64(result.Succeeded))
	batchCycles.WithLabelValues("failure").Add(float64(result.Failed))
}
