package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/filing-analyzer/internal/core/domain"
)

const namespace = "filing"

// PipelineMetrics records per-branch outcomes of the analysis pipeline.
type PipelineMetrics struct {
	service string

	branchTotal    *prometheus.CounterVec
	branchDuration *prometheus.HistogramVec
	tablesDetected prometheus.Histogram
	tablesKept     prometheus.Histogram
	chunksIndexed  prometheus.Histogram
}

func NewPipelineMetrics(service string, registerer prometheus.Registerer) *PipelineMetrics {
	branchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "branch_total",
			Help:      "Total pipeline branch runs by outcome.",
		},
		[]string{"service", "branch", "status"},
	)
	branchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "branch_duration_seconds",
			Help:      "Pipeline branch duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"service", "branch"},
	)
	tablesDetected := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "tables",
			Name:        "detected",
			Help:        "Tables detected per document before keyword filtering.",
			Buckets:     []float64{0, 1, 2, 5, 10, 20, 50, 100, 200},
			ConstLabels: prometheus.Labels{"service": service},
		},
	)
	tablesKept := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "tables",
			Name:        "kept",
			Help:        "Tables kept per document after keyword filtering.",
			Buckets:     []float64{0, 1, 2, 3, 5, 8, 13},
			ConstLabels: prometheus.Labels{"service": service},
		},
	)
	chunksIndexed := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "index",
			Name:        "chunks",
			Help:        "Chunks embedded per retrieval index.",
			Buckets:     prometheus.ExponentialBuckets(1, 2, 12),
			ConstLabels: prometheus.Labels{"service": service},
		},
	)

	if registerer != nil {
		registerer.MustRegister(branchTotal, branchDuration, tablesDetected, tablesKept, chunksIndexed)
	}

	return &PipelineMetrics{
		service:        service,
		branchTotal:    branchTotal,
		branchDuration: branchDuration,
		tablesDetected: tablesDetected,
		tablesKept:     tablesKept,
		chunksIndexed:  chunksIndexed,
	}
}

func (m *PipelineMetrics) ObserveBranch(branch string, err error, seconds float64) {
	m.branchTotal.WithLabelValues(m.service, branch, branchStatus(err)).Inc()
	m.branchDuration.WithLabelValues(m.service, branch).Observe(seconds)
}

func (m *PipelineMetrics) ObserveTables(kept, detected int) {
	m.tablesDetected.Observe(float64(detected))
	m.tablesKept.Observe(float64(kept))
}

func (m *PipelineMetrics) ObserveChunks(n int) {
	m.chunksIndexed.Observe(float64(n))
}

// branchStatus collapses errors to a bounded label set.
func branchStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case domain.IsKind(err, domain.ErrMissingCredential):
		return "missing_credential"
	case domain.IsKind(err, domain.ErrTemporary):
		return "temporary"
	case domain.IsKind(err, domain.ErrDocumentParse):
		return "parse_error"
	default:
		return "error"
	}
}
