// Package metrics records Prometheus metrics for download runs.
//
// Metrics live in a private registry rather than the global one so that
// tests and repeated runs in one process do not collide. The CLI writes the
// registry to a node_exporter textfile after each run.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "mopsdl"

// Recorder collects run metrics. A nil *Recorder is valid and records
// nothing.
type Recorder struct {
	registry *prometheus.Registry

	documents  *prometheus.CounterVec
	savedBytes prometheus.Counter
	resolve    *prometheus.HistogramVec
	runs       *prometheus.CounterVec
	inProgress prometheus.Gauge
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Documents processed by report type and outcome.",
		}, []string{"type", "outcome"}),
		savedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saved_bytes_total",
			Help:      "Bytes written to the save location.",
		}),
		resolve: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolve_duration_seconds",
			Help:      "Time spent resolving one document, by report type.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"type"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished runs by terminal status.",
		}, []string{"status"}),
		inProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_in_progress",
			Help:      "1 while a run is active.",
		}),
	}

	r.registry.MustRegister(
		r.documents,
		r.savedBytes,
		r.resolve,
		r.runs,
		r.inProgress,
		collectors.NewGoCollector(),
	)
	return r
}

// OutcomeSaveFailed is the documents_total outcome for a document that
// resolved but could not be written.
const OutcomeSaveFailed = "save_failed"

// ObserveResolve records the time spent resolving one document.
func (r *Recorder) ObserveResolve(reportType string, d time.Duration) {
	if r == nil {
		return
	}
	r.resolve.WithLabelValues(reportType).Observe(d.Seconds())
}

// ObserveDocument records the final outcome of one document. Each document
// is counted exactly once; n bytes are added to saved_bytes_total only for
// the "success" outcome.
func (r *Recorder) ObserveDocument(reportType, outcome string, n int64) {
	if r == nil {
		return
	}
	r.documents.WithLabelValues(reportType, outcome).Inc()
	if outcome == "success" {
		r.savedBytes.Add(float64(n))
	}
}

// RunStarted marks a run as active.
func (r *Recorder) RunStarted() {
	if r == nil {
		return
	}
	r.inProgress.Set(1)
}

// RunFinished marks the active run as finished with status.
func (r *Recorder) RunFinished(status string) {
	if r == nil {
		return
	}
	r.inProgress.Set(0)
	r.runs.WithLabelValues(status).Inc()
}

// WriteTextfile writes all metrics to path in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
