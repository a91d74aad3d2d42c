// Package metrics defines the Prometheus collectors used by the search
// service and the index builder, and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors of the search service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	RateLimitedTotal     prometheus.Counter
	SearchQueriesTotal   *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	SearchResultsCount   prometheus.Histogram
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	IndexEntries         prometheus.Gauge
	IndexLoadsTotal      *prometheus.CounterVec
}

// New creates the search service collectors and registers them with reg.
// A nil reg means the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "http_requests_rate_limited_total",
				Help: "Total number of HTTP requests rejected by the rate limiter.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by result type (hit, zero_result, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
			},
			[]string{"cache_status"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of results returned per search query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses.",
			},
		),
		IndexEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "search_index_entries",
				Help: "Number of sections in the loaded search index.",
			},
		),
		IndexLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_index_loads_total",
				Help: "Search index load attempts by status.",
			},
			[]string{"status"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.RateLimitedTotal,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.IndexEntries,
		m.IndexLoadsTotal,
	)

	return m
}

// BuildMetrics holds the collectors of an index build.
type BuildMetrics struct {
	SectionsIndexedTotal  prometheus.Counter
	DocumentsSkippedTotal *prometheus.CounterVec
	BuildsTotal           *prometheus.CounterVec
	BuildDuration         prometheus.Histogram
	ArtifactBytes         prometheus.Gauge
	PublishesTotal        *prometheus.CounterVec
}

// NewBuild creates the build collectors and registers them with reg. A nil
// reg means the default registry.
func NewBuild(reg prometheus.Registerer) *BuildMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &BuildMetrics{
		SectionsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "index_sections_indexed_total",
				Help: "Total sections added to search indexes.",
			},
		),
		DocumentsSkippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_documents_skipped_total",
				Help: "Documents that produced no sections, by reason (draft, no_headings).",
			},
			[]string{"reason"},
		),
		BuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_builds_total",
				Help: "Index builds by status.",
			},
			[]string{"status"},
		),
		BuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "index_build_duration_seconds",
				Help:    "Wall time of a full index build in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
		ArtifactBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_artifact_bytes",
				Help: "Size of the last encoded index artifact.",
			},
		),
		PublishesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_publishes_total",
				Help: "Artifact publishes by target and status.",
			},
			[]string{"target", "status"},
		),
	}

	reg.MustRegister(
		m.SectionsIndexedTotal,
		m.DocumentsSkippedTotal,
		m.BuildsTotal,
		m.BuildDuration,
		m.ArtifactBytes,
		m.PublishesTotal,
	)

	return m
}

// Handler returns the scrape handler for g, or for the default registry
// when g is nil.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
