package metrics

import "github.com/prometheus/client_golang/prometheus"

// Index Prometheus metrics.
var (
	IndexRecords = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "profilesearch",
			Name:      "index_records",
			Help:      "Number of profiles in the live index",
		},
		[]string{"backend"},
	)

	IndexBuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "profilesearch",
			Name:      "index_builds_total",
			Help:      "Index builds by outcome",
		},
		[]string{"backend", "status"},
	)

	IndexBuildDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "profilesearch",
			Name:      "index_build_duration_seconds",
			Help:      "Corpus ingestion duration in seconds, embedding included",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"backend"},
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "profilesearch",
			Name:      "search_duration_seconds",
			Help:      "Similarity search duration in seconds, query embedding excluded",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		},
		[]string{"backend"},
	)
)

var indexMetricsRegistered bool

// RegisterIndexMetrics registers Prometheus index metrics. Must be called once from main.
func RegisterIndexMetrics() {
	if indexMetricsRegistered {
		return
	}
	prometheus.MustRegister(IndexRecords)
	prometheus.MustRegister(IndexBuildsTotal)
	prometheus.MustRegister(IndexBuildDuration)
	prometheus.MustRegister(SearchDuration)
	indexMetricsRegistered = true
}
