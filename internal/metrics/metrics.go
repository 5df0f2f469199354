// Package metrics defines the Prometheus collectors of the service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "docquery"

var registerOnce sync.Once

// Register adds all collectors to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		for _, group := range [][]prometheus.Collector{
			httpCollectors(),
			embeddingCollectors(),
			llmCollectors(),
			pipelineCollectors(),
		} {
			prometheus.MustRegister(group...)
		}
	})
}
