// Package metrics defines the Prometheus metric collectors used across the
// blog search services and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the services.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	SearchQueriesTotal *prometheus.CounterVec
	SearchLatency      *prometheus.HistogramVec
	SearchResultsCount prometheus.Histogram

	TranslationsTotal  *prometheus.CounterVec
	TranslationLatency prometheus.Histogram
	TranslateCacheHits prometheus.Counter
	TranslateCacheMiss prometheus.Counter

	ContentCacheHits   prometheus.Counter
	ContentCacheMisses prometheus.Counter
	ContentReloads     *prometheus.CounterVec
	PostsLoaded        prometheus.Gauge

	LiveSessions        prometheus.Gauge
	StaleResultsDropped prometheus.Counter

	AnalyticsEventsTotal *prometheus.CounterVec
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates all collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
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
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blog_search_queries_total",
				Help: "Total search queries by script class and outcome (hit, zero_result, error).",
			},
			[]string{"script", "outcome"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "blog_search_latency_seconds",
				Help:    "End-to-end search latency in seconds, translation included.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"script"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "blog_search_results_count",
				Help:    "Number of matched posts per search.",
				Buckets: []float64{0, 1, 3, 6, 12, 25, 50, 100},
			},
		),
		TranslationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blog_translations_total",
				Help: "Query resolutions by source (none, passthrough, service, fallback, identity).",
			},
			[]string{"source"},
		),
		TranslationLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "blog_translation_latency_seconds",
				Help:    "Latency of remote translation calls in seconds.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5},
			},
		),
		TranslateCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "blog_translate_cache_hits_total",
				Help: "Translation lookups served from Redis.",
			},
		),
		TranslateCacheMiss: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "blog_translate_cache_misses_total",
				Help: "Translation lookups that went to the remote service.",
			},
		),
		ContentCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "blog_content_cache_hits_total",
				Help: "Post list reads served from the in-memory cache.",
			},
		),
		ContentCacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "blog_content_cache_misses_total",
				Help: "Post list reads that reloaded from the store.",
			},
		),
		ContentReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blog_content_reloads_total",
				Help: "Store reloads by status.",
			},
			[]string{"status"},
		),
		PostsLoaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "blog_posts_loaded",
				Help: "Number of valid posts in the current cache.",
			},
		),
		LiveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "blog_live_sessions",
				Help: "Open live search websocket sessions.",
			},
		),
		StaleResultsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "blog_stale_results_dropped_total",
				Help: "Search results discarded because a newer query superseded them.",
			},
		),
		AnalyticsEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blog_analytics_events_total",
				Help: "Search analytics events by status (queued, dropped, published, failed).",
			},
			[]string{"status"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.TranslationsTotal,
		m.TranslationLatency,
		m.TranslateCacheHits,
		m.TranslateCacheMiss,
		m.ContentCacheHits,
		m.ContentCacheMisses,
		m.ContentReloads,
		m.PostsLoaded,
		m.LiveSessions,
		m.StaleResultsDropped,
		m.AnalyticsEventsTotal,
		m.CircuitBreakerState,
	)

	return m
}

// NewUnregistered builds collectors on a private registry. Tests and CLI
// tools use it when nothing scrapes the process.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
