// Package telemetry exposes per-run analysis counters in the Prometheus
// text format.
package telemetry

import (
	"time"

	"github.com/isseis/go-wcc/internal/failure"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder collects the metrics of one analysis run. A nil *Recorder is
// valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	filesAnalyzed prometheus.Counter
	filesIgnored  prometheus.Counter
	failures      *prometheus.CounterVec
	duration      prometheus.Histogram
}

// New returns a Recorder backed by its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	r := &Recorder{
		registry: reg,
		filesAnalyzed: factory.NewCounter(prometheus.CounterOpts{
			Name: "wcc_files_analyzed_total",
			Help: "Total number of source files analyzed",
		}),
		filesIgnored: factory.NewCounter(prometheus.CounterOpts{
			Name: "wcc_files_ignored_total",
			Help: "Total number of files skipped because their language is unknown",
		}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wcc_failures_total",
			Help: "Total number of failures by kind",
		}, []string{"kind"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "wcc_analysis_duration_seconds",
			Help:    "Wall time of an analysis run",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
	}

	// Export a zero series for every kind so that dashboards see them all.
	for _, k := range failure.Kinds() {
		r.failures.WithLabelValues(k.String())
	}
	return r
}

// FileAnalyzed counts one analyzed file.
func (r *Recorder) FileAnalyzed() {
	if r == nil {
		return
	}
	r.filesAnalyzed.Inc()
}

// FileIgnored counts one file skipped for an unknown language.
func (r *Recorder) FileIgnored() {
	if r == nil {
		return
	}
	r.filesIgnored.Inc()
}

// Failure counts one failure of the given kind.
func (r *Recorder) Failure(kind failure.Kind) {
	if r == nil {
		return
	}
	r.failures.WithLabelValues(kind.String()).Inc()
}

// ObserveRun records the duration of a run.
func (r *Recorder) ObserveRun(d time.Duration) {
	if r == nil {
		return
	}
	r.duration.Observe(d.Seconds())
}

// WriteFile writes every metric to path in the text exposition format, as
// consumed by the node exporter textfile collector. The file is replaced
// atomically.
func (r *Recorder) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return failure.FromIO(err)
	}
	return nil
}
