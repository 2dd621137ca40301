package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refhub_upstream_requests_total",
			Help: "Total number of requests sent to the RefHub search page",
		},
		[]string{"status"},
	)

	UpstreamDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "refhub_upstream_duration_seconds",
			Help:    "Duration of RefHub search page fetches in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	BooksExtractedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "refhub_books_extracted_total",
			Help: "Total number of book cards extracted from search pages",
		},
	)

	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refhub_searches_total",
			Help: "Total number of searches served, by outcome",
		},
		[]string{"outcome"},
	)

	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refhub_cache_lookups_total",
			Help: "Search cache lookups, by result",
		},
		[]string{"result"},
	)
)

// RecordUpstream records one fetch against the upstream site. A zero status
// code means the request never produced a response.
func RecordUpstream(statusCode int, duration time.Duration) {
	status := "error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}

	UpstreamRequestsTotal.WithLabelValues(status).Inc()
	UpstreamDuration.Observe(duration.Seconds())
}

func RecordBooks(n int) {
	BooksExtractedTotal.Add(float64(n))
}

func RecordSearch(outcome string) {
	SearchesTotal.WithLabelValues(outcome).Inc()
}

func RecordCacheLookup(hit bool) {
	if hit {
		CacheLookupsTotal.WithLabelValues("hit").Inc()
		return
	}
	CacheLookupsTotal.WithLabelValues("miss").Inc()
}
