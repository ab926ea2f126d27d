// Package metrics exposes Prometheus instrumentation for retrieval sessions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hashrecipe_queries_total",
			Help: "Total number of retrieval queries by outcome",
		},
		[]string{"mode", "algorithm", "outcome"}, // outcome: completed, failed, rejected
	)

	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hashrecipe_query_duration_seconds",
			Help:    "Duration of retrieval queries in seconds, simulated latency included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode", "algorithm"},
	)

	QueryResults = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hashrecipe_query_results",
			Help:    "Number of recipes returned per completed query",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 25, 50},
		},
		[]string{"mode"},
	)

	LikeToggles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hashrecipe_like_toggles_total",
			Help: "Total number of like toggles by resulting state",
		},
		[]string{"state"}, // liked, unliked
	)

	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hashrecipe_logins_total",
			Help: "Total number of login attempts by outcome",
		},
		[]string{"outcome"},
	)

	LocaleSwitches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hashrecipe_locale_switches_total",
			Help: "Total number of locale switches by target locale",
		},
		[]string{"locale"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hashrecipe_active_sessions",
			Help: "Current number of live sessions",
		},
	)
)

// RecordQuery records the outcome of one query.
func RecordQuery(mode, algorithm, outcome string, elapsed time.Duration) {
	QueriesTotal.WithLabelValues(mode, algorithm, outcome).Inc()
	if outcome != "rejected" {
		QueryDuration.WithLabelValues(mode, algorithm).Observe(elapsed.Seconds())
	}
}

// RecordResults records the size of a completed result set.
func RecordResults(mode string, count int) {
	QueryResults.WithLabelValues(mode).Observe(float64(count))
}

// RecordLike records a like toggle.
func RecordLike(liked bool) {
	state := "unliked"
	if liked {
		state = "liked"
	}
	LikeToggles.WithLabelValues(state).Inc()
}
