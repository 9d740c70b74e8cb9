package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "covid_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the scrape pipeline.
type Metrics struct {
	RunsTotal        *prometheus.CounterVec // labels: outcome={success,error}
	RunDuration      prometheus.Histogram
	FetchDuration    prometheus.Histogram
	ShapeErrors      prometheus.Counter
	MessagesProduced prometheus.Counter
	LastSuccess      prometheus.Gauge
	PipelineRunning  prometheus.Gauge

	// Per-section and per-format metrics.
	SectionRows  *prometheus.GaugeVec   // labels: section={totals,regions,testing,combined}
	FilesWritten *prometheus.CounterVec // labels: format={csv,json,html}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.Collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

// Collectors returns every metric for registration on a custom registry.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RunsTotal,
		m.RunDuration,
		m.FetchDuration,
		m.SectionRows,
		m.FilesWritten,
		m.ShapeErrors,
		m.MessagesProduced,
		m.LastSuccess,
		m.PipelineRunning,
	}
}

func newMetrics() *Metrics {
	return &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Scrape runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete fetch, transform and load cycle.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of the statistics page download and parse.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		SectionRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "section_rows",
			Help:      "Rows in the most recent table for each section.",
		}, []string{"section"}),
		FilesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_written_total",
			Help:      "Snapshot and chart files written by format.",
		}, []string{"format"}),
		ShapeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shape_errors_total",
			Help:      "Runs aborted because a widget payload had an unexpected structure.",
		}),
		MessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_produced_total",
			Help:      "Total snapshot rows published to Kafka.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a run is in progress, 0 otherwise.",
		}),
	}
}
