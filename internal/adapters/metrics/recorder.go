// Package metrics implements ports.Metrics with Prometheus collectors.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "workclock"

// Recorder counts work-order saves, their latency and store retries on a
// private registry.
type Recorder struct {
	registry  *prometheus.Registry
	results   *prometheus.CounterVec
	durations *prometheus.HistogramVec
	retries   *prometheus.CounterVec
}

// New creates a recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Work-order persistence operations by result.",
		}, []string{"op", "result"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of work-order persistence operations, retries included.",
			Buckets:   []float64{.005, .01, .05, .1, .5, 1, 2.5, 5, 10},
		}, []string{"op"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_retries_total",
			Help:      "Store calls retried after a transient failure.",
		}, []string{"op"}),
	}
	r.registry.MustRegister(r.results, r.durations, r.retries)
	return r
}

// Observe implements ports.Metrics.
func (r *Recorder) Observe(_ context.Context, op string, success bool, d time.Duration) {
	if op == "" {
		return
	}
	result := "error"
	if success {
		result = "success"
	}
	r.results.WithLabelValues(op, result).Inc()
	r.durations.WithLabelValues(op).Observe(d.Seconds())
}

// Retry implements ports.Metrics.
func (r *Recorder) Retry(op string) {
	r.retries.WithLabelValues(op).Inc()
}

// Registry exposes the registry for scraping or inspection.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes the current metrics in the node exporter textfile
// format. The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
