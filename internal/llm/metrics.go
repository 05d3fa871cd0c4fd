package llm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "studyping"

var (
	llmRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "requests_total",
			Help:      "Text-generation requests by outcome",
		},
		[]string{"status"},
	)

	llmTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Token usage reported by the text-generation API",
		},
		[]string{"type"},
	)
)

func recordRequest(status string) {
	llmRequests.WithLabelValues(status).Inc()
}

func recordTokens(usage Usage) {
	llmTokens.WithLabelValues("prompt").Add(float64(usage.PromptTokens))
	llmTokens.WithLabelValues("completion").Add(float64(usage.CompletionTokens))
}
