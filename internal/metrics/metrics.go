// Package metrics defines Prometheus collectors for kvgraph. The collectors
// are package-level and unregistered; call Register to expose them.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "kvgraph"

// StoreCommands counts store commands by backend, op and result.
var StoreCommands = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "store",
	Name:      "commands_total",
	Help:      "Store commands executed.",
}, []string{"backend", "op", "result"})

// BatchDuration observes grouped batch execution time by backend.
var BatchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "store",
	Name:      "batch_duration_seconds",
	Help:      "Duration of atomic command batches.",
	Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
}, []string{"backend"})

// BatchFailures counts failed batches by backend.
var BatchFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "store",
	Name:      "batch_failures_total",
	Help:      "Atomic command batches that failed.",
}, []string{"backend"})

// ElementSaves counts saves by model, path (create, update) and result.
var ElementSaves = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "element",
	Name:      "saves_total",
	Help:      "Element saves.",
}, []string{"model", "path", "result"})

// ElementDestroys counts destroys by model and result.
var ElementDestroys = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "element",
	Name:      "destroys_total",
	Help:      "Element destroys.",
}, []string{"model", "result"})

// QueryEvaluations counts query evaluations by model and result.
var QueryEvaluations = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "query",
	Name:      "evaluations_total",
	Help:      "Query collection evaluations.",
}, []string{"model", "result"})

// TempKeysSwept counts temporary query keys removed by sweeps.
var TempKeysSwept = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "query",
	Name:      "temp_keys_swept_total",
	Help:      "Leaked temporary query keys deleted by sweeps.",
})

// Collectors returns every kvgraph collector.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		StoreCommands,
		BatchDuration,
		BatchFailures,
		ElementSaves,
		ElementDestroys,
		QueryEvaluations,
		TempKeysSwept,
	}
}

// Register registers every collector with reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Result maps an error to a result label.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveBatch records one batch execution.
func ObserveBatch(backend string, start time.Time, err error) {
	BatchDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())
	if err != nil {
		BatchFailures.WithLabelValues(backend).Inc()
	}
}
