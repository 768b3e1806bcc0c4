package catalog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	searchQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tutor",
			Name:      "content_search_total",
			Help:      "Total course content searches",
		},
		[]string{"result"}, // "ok", "empty", "no_course", "error"
	)

	searchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tutor",
			Name:      "content_search_duration_seconds",
			Help:      "Duration of course content searches in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	searchResultsCount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tutor",
			Name:      "content_search_results",
			Help:      "Number of chunks returned per content search",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 10},
		},
	)
)
