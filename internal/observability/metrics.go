package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for
// both pipelines.
type Metrics struct {
	// Acquisition metrics.
	FetchAttempts     *prometheus.CounterVec // labels: outcome={ok,failed}
	RegionsAcquired   *prometheus.CounterVec // labels: outcome={ok,empty,failed}
	TanksAccepted     prometheus.Counter
	TanksRejected     prometheus.Counter
	DuplicatesRemoved prometheus.Counter

	// Extraction metrics.
	AssetsLoaded    *prometheus.CounterVec // labels: outcome={accepted,empty,missing}
	CompositesBuilt prometheus.Counter
	ScenesPerWindow prometheus.Histogram
	RecordsProduced prometheus.Counter
	ExtractRunning  prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FetchAttempts,
		m.RegionsAcquired,
		m.TanksAccepted,
		m.TanksRejected,
		m.DuplicatesRemoved,
		m.AssetsLoaded,
		m.CompositesBuilt,
		m.ScenesPerWindow,
		m.RecordsProduced,
		m.ExtractRunning,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so
// parallel tests do not trip "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tank_watch",
			Name:      "fetch_attempts_total",
			Help:      "Overpass fetch attempts by outcome.",
		}, []string{"outcome"}),
		RegionsAcquired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tank_watch",
			Name:      "regions_acquired_total",
			Help:      "Region acquisition results by outcome.",
		}, []string{"outcome"}),
		TanksAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tank_watch",
			Name:      "tanks_accepted_total",
			Help:      "Tank polygons passing geometric validation.",
		}),
		TanksRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tank_watch",
			Name:      "tanks_rejected_total",
			Help:      "Candidate ways discarded during assembly.",
		}),
		DuplicatesRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tank_watch",
			Name:      "duplicates_removed_total",
			Help:      "Polygons dropped by first-wins deduplication.",
		}),
		AssetsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tank_watch",
			Name:      "assets_loaded_total",
			Help:      "Published polygon asset resolutions by outcome.",
		}, []string{"outcome"}),
		CompositesBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tank_watch",
			Name:      "composites_built_total",
			Help:      "Weekly median composites produced.",
		}),
		ScenesPerWindow: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tank_watch",
			Name:      "scenes_per_window",
			Help:      "Qualifying source scenes contributing to each window.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		}),
		RecordsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tank_watch",
			Name:      "records_produced_total",
			Help:      "Statistics records appended to the output sequence.",
		}),
		ExtractRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tank_watch",
			Name:      "extract_running",
			Help:      "1 while the extraction run is active, 0 otherwise.",
		}),
	}
}
