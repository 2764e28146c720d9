package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/use-agent/prerender/models"
)

// Metrics bundles Prometheus collectors for render runs.
type Metrics struct {
	Registry      *prometheus.Registry
	PagesTotal    *prometheus.CounterVec
	PageDuration  prometheus.Histogram
	ArtifactBytes *prometheus.CounterVec
	BatchesTotal  *prometheus.CounterVec
	ErrorsTotal   *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	pages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prerender_pages_total",
			Help: "Total pages rendered, by outcome.",
		},
		[]string{"outcome"},
	)
	duration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "prerender_page_duration_seconds",
			Help:    "Time spent capturing and exporting one page.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
	)
	artifactBytes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prerender_artifact_bytes_total",
			Help: "Bytes written per artifact format.",
		},
		[]string{"format"},
	)
	batches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prerender_batches_total",
			Help: "Total render batches, by outcome.",
		},
		[]string{"outcome"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prerender_errors_total",
			Help: "Page and batch errors by code.",
		},
		[]string{"code"},
	)

	registry.MustRegister(pages, duration, artifactBytes, batches, errorsTotal)

	return &Metrics{
		Registry:      registry,
		PagesTotal:    pages,
		PageDuration:  duration,
		ArtifactBytes: artifactBytes,
		BatchesTotal:  batches,
		ErrorsTotal:   errorsTotal,
	}
}

// ObservePage records one finished page.
func (m *Metrics) ObservePage(r *models.PageResult) {
	if m == nil {
		return
	}
	m.PageDuration.Observe((time.Duration(r.DurationMs) * time.Millisecond).Seconds())
	if !r.Succeeded {
		m.PagesTotal.WithLabelValues("failed").Inc()
		if r.Error != nil {
			m.ErrorsTotal.WithLabelValues(r.Error.Code).Inc()
		}
		return
	}
	m.PagesTotal.WithLabelValues("succeeded").Inc()
	for _, a := range r.Artifacts {
		m.ArtifactBytes.WithLabelValues(string(a.Format)).Add(float64(a.Size))
	}
}

// ObserveBatch records a finished batch: "completed" when every page
// succeeded, "partial" when some did, "failed" otherwise.
func (m *Metrics) ObserveBatch(report *models.BatchReport) {
	if m == nil {
		return
	}
	m.BatchesTotal.WithLabelValues(BatchOutcome(report)).Inc()
}

// IncError counts an error that aborted a whole batch.
func (m *Metrics) IncError(code string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(code).Inc()
}

// BatchOutcome classifies a report.
func BatchOutcome(report *models.BatchReport) string {
	switch {
	case report == nil || len(report.Results) == 0:
		return "failed"
	case report.Failed() == 0:
		return "completed"
	case report.Succeeded() > 0:
		return "partial"
	default:
		return "failed"
	}
}
