// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Graph API
	GraphRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graph_requests_total",
			Help: "Total number of Graph API requests by operation and result",
		},
		[]string{"operation", "result"}, // result: "success", "failure", "rejected"
	)

	GraphRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "graph_request_duration_seconds",
			Help:    "Duration of Graph API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Search pipeline
	SearchBatches = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "event_search_batches",
			Help:    "Number of detail batches issued per event search",
			Buckets: []float64{0, 1, 2, 4, 8, 12, 16, 20},
		},
	)

	SearchResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "event_search_results",
			Help:    "Number of events returned per event search",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	// Circuit breaker
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// HTTP
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_rejections_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"backend"},
	)
)
