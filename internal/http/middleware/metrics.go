// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file wires Prometheus instrumentation for API traffic. Labels are kept
// to the bounded set {method, path, status}, where path is the registered Gin
// route (e.g. /api/v1/trips/:id/actions/apply) so label cardinality never
// tracks raw URLs.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "trip_api"

var (
	// reqTotal counts requests by method, route path, and status code.
	reqTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	// reqLatency records request duration in seconds. Status is omitted to
	// keep histogram cardinality down.
	reqLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// reqInflight gauges requests currently being handled.
	reqInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_inflight",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	// respBytes captures response sizes. Buckets cover everything from a bare
	// error envelope up to a large multi-day snapshot payload.
	respBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_response_size_bytes",
			Help:      "Size of HTTP responses in bytes.",
			Buckets: []float64{
				200, 500, 1 << 10, 2 << 10, 5 << 10,
				10 << 10, 25 << 10, 50 << 10,
				100 << 10, 250 << 10, 500 << 10,
				1 << 20, 2 << 20, 5 << 20,
			},
		},
		[]string{"method", "path"},
	)

	// idemReplays counts apply requests answered from the version ledger
	// instead of running the reducer. Incremented by IdempotencyValidator.
	idemReplays = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "idempotent_replays_total",
			Help:      "Total number of apply operations served as idempotent replays.",
		},
	)
)

func init() {
	prometheus.MustRegister(reqTotal, reqLatency, reqInflight, respBytes, idemReplays)
}

// Metrics returns a Gin middleware that instruments requests with Prometheus.
//
// Per request it increments trip_api_http_requests_total, observes
// trip_api_http_request_duration_seconds and trip_api_http_response_size_bytes,
// and tracks the trip_api_http_requests_inflight gauge while the handler runs.
// When no route matched (404) the path label falls back to the raw URL path.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqInflight.Inc()
		defer reqInflight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		reqTotal.WithLabelValues(method, path, status).Inc()
		reqLatency.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		if size := c.Writer.Size(); size >= 0 {
			// Size is -1 for bodyless responses; skip those.
			respBytes.WithLabelValues(method, path).Observe(float64(size))
		}
	}
}
