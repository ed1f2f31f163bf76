// Package metrics provides Prometheus metrics for the catalog and its HTTP API.
//
// Usage:
//
//	// Count catalog mutations as they are journaled
//	recorder := metrics.NewRecorder(journal)
//
//	// Record every catalog search and how many books it matched
//	catalog.Open(s, catalog.WithSearchObserver(metrics.RecordSearch))
package metrics

import (
	"strconv"
	"time"

	"bookshelf/internal/audit"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CatalogEventsTotal counts catalog mutations by event type.
	CatalogEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookshelf_catalog_events_total",
			Help: "Total number of catalog mutations by event type",
		},
		[]string{"event_type"},
	)

	// SearchesTotal counts prefix searches.
	SearchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookshelf_searches_total",
			Help: "Total number of title prefix searches",
		},
	)

	// SearchResults tracks how many books each search returned.
	SearchResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bookshelf_search_results",
			Help:    "Number of books returned per search",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 500},
		},
	)

	// HTTPRequestsTotal counts API requests by method, route pattern and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookshelf_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks API latency by route pattern.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookshelf_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

// RecordSearch records one search that returned n books.
func RecordSearch(n int) {
	SearchesTotal.Inc()
	SearchResults.Observe(float64(n))
}

// RecordHTTPRequest records one served request. route is the matched
// pattern, not the raw path, to keep label cardinality bounded.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// Recorder counts catalog events and passes them on to the next recorder.
type Recorder struct {
	next audit.Recorder
}

// NewRecorder wraps next. A nil next only counts.
func NewRecorder(next audit.Recorder) *Recorder {
	if next == nil {
		next = audit.NopRecorder{}
	}
	return &Recorder{next: next}
}

// Record implements audit.Recorder.
func (r *Recorder) Record(event audit.Event) error {
	CatalogEventsTotal.WithLabelValues(string(event.EventType)).Inc()
	return r.next.Record(event)
}
