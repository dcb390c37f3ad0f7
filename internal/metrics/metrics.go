// Package metrics exposes Prometheus instrumentation for ingestion and league runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Match outcome labels.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Manager owns the pipeline metrics and the registry they live on.
type Manager struct {
	namespace string
	subsystem string
	buckets   []float64
	registry  *prometheus.Registry

	matches       *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	stageRetries  *prometheus.CounterVec
	aggregateRows *prometheus.GaugeVec
	skippedRows   prometheus.Counter
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithHistogramBuckets sets custom buckets for stage durations.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.buckets = buckets
		}
	}
}

// WithRegistry registers the metrics on r instead of a fresh registry.
func WithRegistry(r *prometheus.Registry) Option {
	return func(m *Manager) {
		if r != nil {
			m.registry = r
		}
	}
}

// NewManager creates a Manager on its own registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "dotametrics",
		subsystem: "pipeline",
		buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	auto := promauto.With(m.registry)
	m.matches = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "matches_total",
		Help:      "Matches handled by the ingest stage, by outcome",
	}, []string{"status"})
	m.stageDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stage_duration_seconds",
		Help:      "Wall time of each league pipeline stage attempt",
		Buckets:   m.buckets,
	}, []string{"stage"})
	m.stageRetries = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stage_retries_total",
		Help:      "Compensating retries per stage",
	}, []string{"stage"})
	m.aggregateRows = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "aggregate_rows",
		Help:      "Rows written by the latest aggregation, by kind",
	}, []string{"kind"})
	m.skippedRows = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "malformed_rows_total",
		Help:      "Event log lines skipped as malformed",
	})
	return m
}

// MatchProcessed counts one match outcome.
func (m *Manager) MatchProcessed(status string) { m.matches.WithLabelValues(status).Inc() }

// ObserveStage records one stage attempt.
func (m *Manager) ObserveStage(stage string, d time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// StageRetried counts a compensating retry.
func (m *Manager) StageRetried(stage string) { m.stageRetries.WithLabelValues(stage).Inc() }

// AggregateRows records the size of the latest aggregation of kind.
func (m *Manager) AggregateRows(kind string, n int) {
	m.aggregateRows.WithLabelValues(kind).Set(float64(n))
}

// SkippedRows adds malformed event-log lines.
func (m *Manager) SkippedRows(n int) { m.skippedRows.Add(float64(n)) }

// Registry exposes the underlying registry for gathering.
func (m *Manager) Registry() *prometheus.Registry { return m.registry }

// WriteTextfile dumps all metrics in the Prometheus text format, e.g. for a
// node_exporter textfile collector.
func (m *Manager) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
