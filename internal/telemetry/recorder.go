package telemetry

import (
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"cpasim/domain/run"
	"cpasim/domain/stage"
)

const namespace = "cpasim"

// Recorder collects stage timings and run metrics in a private registry.
// It implements pipeline.Observer.
type Recorder struct {
	registry *prometheus.Registry
	duration *prometheus.HistogramVec
	failures *prometheus.CounterVec
	runs     prometheus.Counter
	metrics  *prometheus.GaugeVec
}

// NewRecorder creates a recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time spent in each pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(1e-4, 4, 10),
		}, []string{"stage", "kind"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_failures_total",
			Help:      "Stages that returned an error.",
		}, []string{"stage", "kind"}),
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed pipeline runs.",
		}),
		metrics: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_metric",
			Help:      "Final summary metrics of the last completed run.",
		}, []string{"pipeline", "metric"}),
	}
	r.registry.MustRegister(r.duration, r.failures, r.runs, r.metrics)
	return r
}

// ObserveStage records one stage execution.
func (r *Recorder) ObserveStage(name stage.Name, kind stage.Kind, d time.Duration, err error) {
	labels := prometheus.Labels{"stage": string(name), "kind": string(kind)}
	r.duration.With(labels).Observe(d.Seconds())
	if err != nil {
		r.failures.With(labels).Inc()
	}
}

// RecordResult exports the summary metrics of a completed run.
func (r *Recorder) RecordResult(pipeline string, res *run.Result) {
	r.runs.Inc()
	for k, v := range res.Metrics {
		if !strings.Contains(k, ".summary.") {
			continue
		}
		r.metrics.With(prometheus.Labels{"pipeline": pipeline, "metric": k[strings.LastIndex(k, ".summary.")+1:]}).Set(v)
	}
}

// Gatherer exposes the underlying registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes the registry in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write telemetry textfile %s: %w", path, err)
	}
	return nil
}
