package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for a pipeline run.
type Metrics struct {
	SourcesLoaded   *prometheus.CounterVec // labels: source, status={available,unavailable,schema_mismatch}
	RowsIngested    *prometheus.CounterVec // labels: source
	BadLinesSkipped *prometheus.CounterVec // labels: source

	// Reconciliation metrics.
	FallbackSubstitutions *prometheus.CounterVec // labels: attribute, strategy
	DistrictsScored       prometheus.Gauge

	StageDuration *prometheus.HistogramVec // labels: stage
	ArtifactRows  *prometheus.CounterVec   // labels: artifact, sink

	LastSuccess prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.SourcesLoaded,
		m.RowsIngested,
		m.BadLinesSkipped,
		m.FallbackSubstitutions,
		m.DistrictsScored,
		m.StageDuration,
		m.ArtifactRows,
		m.LastSuccess,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		SourcesLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gerontech_etl",
			Name:      "sources_loaded_total",
			Help:      "Source ingestion attempts by source and outcome.",
		}, []string{"source", "status"}),
		RowsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gerontech_etl",
			Name:      "rows_ingested_total",
			Help:      "Data rows kept after filtering, by source.",
		}, []string{"source"}),
		BadLinesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gerontech_etl",
			Name:      "bad_lines_skipped_total",
			Help:      "Malformed source lines dropped during parsing, by source.",
		}, []string{"source"}),
		FallbackSubstitutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gerontech_etl",
			Name:      "fallback_substitutions_total",
			Help:      "District indicators filled by a fallback strategy.",
		}, []string{"attribute", "strategy"}),
		DistrictsScored: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gerontech_etl",
			Name:      "districts_scored",
			Help:      "Number of district records produced by the last run.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gerontech_etl",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"stage"}),
		ArtifactRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gerontech_etl",
			Name:      "artifact_rows_total",
			Help:      "Rows written per artifact and sink.",
		}, []string{"artifact", "sink"}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gerontech_etl",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run that emitted all artifacts.",
		}),
	}
}

// WriteTextfile flushes the default registry in the node-exporter textfile
// format. Batch runs exit before anything could scrape them.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
