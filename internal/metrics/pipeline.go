package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "queries_total",
			Help:      "Dispatched database commands by operation and outcome",
		},
		[]string{"operation", "status"},
	)

	queryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "query_duration_seconds",
			Help:      "Database command duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"operation"},
	)

	rejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "safety_rejections_total",
			Help:      "Requests refused by the read-only gate",
		},
		[]string{"origin", "keyword"},
	)

	decodeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "recovery_decode_total",
			Help:      "Model output arguments by the decode stage that accepted them",
		},
		[]string{"stage"},
	)

	intentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "compiler_intents_total",
			Help:      "Questions compiled by the rule engine, by intent",
		},
		[]string{"intent"},
	)

	answersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "answers_total",
			Help:      "Answered questions by pipeline source and outcome",
		},
		[]string{"source", "outcome"},
	)
)

func pipelineCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		queriesTotal,
		queryDuration,
		rejectionsTotal,
		decodeTotal,
		intentsTotal,
		answersTotal,
	}
}

// Recorder adapts the package collectors to the observer interfaces of the
// use cases. The zero value is ready to use.
type Recorder struct{}

// ObserveQuery records one dispatched command.
func (Recorder) ObserveQuery(operation, status string, elapsed time.Duration) {
	queriesTotal.WithLabelValues(operation, status).Inc()
	if status != "rejected" {
		queryDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
	}
}

// Rejected records a gate refusal.
func (Recorder) Rejected(origin, keyword string) {
	rejectionsTotal.WithLabelValues(origin, keyword).Inc()
}

// ObserveGeneration records one generation through the breaker.
func (Recorder) ObserveGeneration(status string, elapsed time.Duration) {
	generationsTotal.WithLabelValues(status).Inc()
	generationDuration.Observe(elapsed.Seconds())
}

// BreakerState records a breaker transition.
func (Recorder) BreakerState(name, state string) {
	v := 1.0
	if state == "closed" {
		v = 0
	}
	breakerOpen.WithLabelValues(name).Set(v)
}

// ObserveDecode records which decode stage accepted a model argument.
func (Recorder) ObserveDecode(stage string) {
	decodeTotal.WithLabelValues(stage).Inc()
}

// ObserveIntent records a rule-engine compilation.
func (Recorder) ObserveIntent(intent string) {
	intentsTotal.WithLabelValues(intent).Inc()
}

// ObserveAnswer records a finished question.
func (Recorder) ObserveAnswer(source, outcome string) {
	answersTotal.WithLabelValues(source, outcome).Inc()
}
