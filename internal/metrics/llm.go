package metrics

import "github.com/prometheus/client_golang/prometheus"

// Language model metrics. The transport records per-request outcomes, the
// resilience layer records breaker transitions.
var (
	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of chat completion requests",
		},
		[]string{"provider", "model", "status"},
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Chat completion duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"provider", "model"},
	)

	LLMTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "llm_tokens_total",
			Help:      "Total chat completion tokens consumed",
		},
		[]string{"provider", "model", "type"},
	)

	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "llm_generations_total",
			Help:      "Generations through the circuit breaker, by outcome",
		},
		[]string{"status"},
	)

	generationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "llm_generation_duration_seconds",
			Help:      "Generation duration including retries",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		},
	)

	breakerOpen = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "llm_breaker_open",
			Help:      "1 when the circuit breaker is open or half-open",
		},
		[]string{"breaker"},
	)
)

func llmCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		LLMRequestsTotal,
		LLMRequestDuration,
		LLMTokensTotal,
		generationsTotal,
		generationDuration,
		breakerOpen,
	}
}
