package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "quakemag"

// Metrics holds the Prometheus counters, histograms, and gauges for a pipeline run.
type Metrics struct {
	PipelineRunning prometheus.Gauge

	// Ingestion metrics.
	FilesRead    *prometheus.CounterVec // labels: dataset={magnetometer,quake}
	FilesSkipped prometheus.Counter
	RowsLoaded   *prometheus.CounterVec // labels: dataset
	RowsDropped  *prometheus.CounterVec // labels: dataset, reason={sentinel,cutoff}

	// Cache metrics.
	CacheLookups *prometheus.CounterVec // labels: key, result={hit,miss,stale}

	// Analysis metrics.
	StageDuration *prometheus.HistogramVec // labels: stage
	AlignedRows   prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(
		m.PipelineRunning,
		m.FilesRead,
		m.FilesSkipped,
		m.RowsLoaded,
		m.RowsDropped,
		m.CacheLookups,
		m.StageDuration,
		m.AlignedRows,
	)
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}
	return &Metrics{
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      help("1 while a run is in progress, 0 otherwise."),
		}),
		FilesRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_read_total",
			Help:      help("Raw input files parsed, by dataset."),
		}, []string{"dataset"}),
		FilesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_skipped_total",
			Help:      help("Months with no magnetometer file for any station."),
		}),
		RowsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_loaded_total",
			Help:      help("Rows kept after cleaning, by dataset."),
		}, []string{"dataset"}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      help("Rows removed during cleaning, by dataset and reason."),
		}, []string{"dataset", "reason"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      help("Cache lookups by artifact key and result."),
		}, []string{"key", "result"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      help("Duration of each pipeline stage."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"stage"}),
		AlignedRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "aligned_rows",
			Help:      help("Hourly rows in the unified table of the last run."),
		}),
	}
}

// WriteTextfile dumps the default registry to path in the text exposition
// format read by the node_exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
