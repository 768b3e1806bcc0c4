package chat

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	llmCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tutor",
		Name:      "llm_calls_total",
		Help:      "LLM API calls by outcome",
	}, []string{"status"})

	llmCallDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tutor",
		Name:      "llm_call_duration_seconds",
		Help:      "LLM API call latency",
		Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
	})

	toolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tutor",
		Name:      "tool_calls_total",
		Help:      "Tool invocations by tool name and outcome",
	}, []string{"tool", "status"})

	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tutor",
		Name:      "sessions_active",
		Help:      "Conversation sessions currently held in memory",
	})
)
