// Package metrics provides Prometheus instrumentation for the sports-data
// service. All metric collectors are registered via the Init function and
// exposed through the Handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// UpstreamRequestsTotal counts outbound provider calls by provider and
	// outcome ("success", "transient_error", "client_error", "circuit_open").
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_upstream_requests_total",
			Help: "Total outbound provider calls",
		},
		[]string{"provider", "outcome"},
	)

	// UpstreamRequestDuration observes provider call latency in seconds.
	UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feed_upstream_request_duration_seconds",
			Help:    "Provider call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// RetryTotal counts retry attempts by provider.
	RetryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_upstream_retries_total",
			Help: "Total retry attempts against providers",
		},
		[]string{"provider"},
	)

	// CircuitState exposes the current circuit breaker state per provider
	// (0=closed, 1=open, 2=half-open).
	CircuitState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "feed_circuit_state",
			Help: "Circuit breaker state per provider (0=closed, 1=open, 2=half-open)",
		},
		[]string{"provider"},
	)

	// CircuitStateChanges counts breaker transitions by provider and edge.
	CircuitStateChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_circuit_state_changes_total",
			Help: "Total circuit breaker state transitions",
		},
		[]string{"provider", "from", "to"},
	)

	// BulkheadInFlight tracks in-flight provider calls held by the bulkhead.
	BulkheadInFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "feed_bulkhead_in_flight",
			Help: "In-flight provider calls admitted by the bulkhead",
		},
		[]string{"provider"},
	)

	// BulkheadRejections counts calls rejected at the concurrency limit.
	BulkheadRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_bulkhead_rejections_total",
			Help: "Total provider calls rejected by the bulkhead",
		},
		[]string{"provider"},
	)

	// RateLimitRejections counts local sliding-window limiter rejections.
	RateLimitRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_rate_limit_rejections_total",
			Help: "Total requests rejected by the sliding-window rate limiter",
		},
		[]string{"scope"},
	)

	// CacheHits counts cache hits by data kind.
	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"kind"},
	)

	// CacheMisses counts cache misses by data kind.
	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"kind"},
	)

	// StaleServes counts responses served from expired cache entries while a
	// provider was unavailable.
	StaleServes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_cache_stale_serves_total",
			Help: "Total stale cache entries served during provider outages",
		},
		[]string{"kind"},
	)

	// ParseFailures counts malformed provider payloads by provider.
	ParseFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_parse_failures_total",
			Help: "Total malformed provider payloads",
		},
		[]string{"provider"},
	)

	// RequestsTotal counts requests to the service's own endpoints.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_requests_total",
			Help: "Total HTTP requests served",
		},
		[]string{"path", "method", "status"},
	)
)

// Init registers all metric collectors with the default Prometheus registry.
// Must be called once at startup before handling requests.
func Init() {
	prometheus.MustRegister(
		UpstreamRequestsTotal,
		UpstreamRequestDuration,
		RetryTotal,
		CircuitState,
		CircuitStateChanges,
		BulkheadInFlight,
		BulkheadRejections,
		RateLimitRejections,
		CacheHits,
		CacheMisses,
		StaleServes,
		ParseFailures,
		RequestsTotal,
	)
}

// Handler returns an http.Handler that serves the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
