package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for a merge run.
type Metrics struct {
	TrackPointsLoaded prometheus.Counter
	GranulesScanned   prometheus.Counter
	GranulesMatched   *prometheus.CounterVec // label: variant={imagery,sounding}
	GranulesMerged    prometheus.Counter
	RunInProgress     prometheus.Gauge

	StageDuration *prometheus.HistogramVec // label: stage={track,match,merge,assemble}
}

// NewMetrics creates and registers all run metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.TrackPointsLoaded,
		m.GranulesScanned,
		m.GranulesMatched,
		m.GranulesMerged,
		m.RunInProgress,
		m.StageDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics with unregistered collectors to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		TrackPointsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tc_mirs",
			Name:      "track_points_loaded_total",
			Help:      "Track points selected for the storm and year.",
		}),
		GranulesScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tc_mirs",
			Name:      "granules_scanned_total",
			Help:      "Granule metadata reads during matching (files x track points).",
		}),
		GranulesMatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tc_mirs",
			Name:      "granules_matched_total",
			Help:      "Unique granules matched to the track, by variant.",
		}, []string{"variant"}),
		GranulesMerged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tc_mirs",
			Name:      "granules_merged_total",
			Help:      "Granule files loaded into the merged datasets.",
		}),
		RunInProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tc_mirs",
			Name:      "run_in_progress",
			Help:      "1 while a merge run is executing, 0 otherwise.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tc_mirs",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 1200},
		}, []string{"stage"}),
	}
}
