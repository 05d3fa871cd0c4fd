package sms

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "studyping"

var (
	smsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sms",
			Name:      "sent_total",
			Help:      "Outbound SMS attempts by outcome",
		},
		[]string{"status"},
	)

	replies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sms",
			Name:      "replies_total",
			Help:      "Inbound webhook replies by routing outcome",
		},
		[]string{"outcome"},
	)
)

func recordSend(status string) {
	smsSent.WithLabelValues(status).Inc()
}

func recordReply(outcome string) {
	replies.WithLabelValues(outcome).Inc()
}
