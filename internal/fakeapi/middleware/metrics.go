// Package middleware contains the Gin middleware of the fake PawConnect
// backend.
//
// This file exposes Prometheus instrumentation for the backend's traffic.
// Metrics() measures request counts, latencies, in-flight concurrency and
// response sizes under these labels:
//
//   - method:   HTTP method verb (GET/POST/...)
//   - path:     the registered Gin route (e.g. /api/adoption/:id);
//     "unmatched" when no route matched
//   - status:   numeric status code as a string (e.g. "200", "401")
//
// The collectors live in the default registry and are served by the
// backend's /metrics route. All of them are safe for concurrent use.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// httpReqs counts requests by method, route and status.
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fakeapi_http_requests_total",
			Help: "Requests served by the fake backend.",
		},
		[]string{"method", "path", "status"},
	)

	// httpLat records request duration by method and route.
	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fakeapi_http_request_duration_seconds",
			Help:    "Latency of fake backend requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// httpInflight is the number of requests currently being served.
	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fakeapi_http_requests_inflight",
			Help: "Requests currently being served.",
		},
	)

	httpRespSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fakeapi_http_response_size_bytes",
			Help:    "Size of fake backend responses in bytes.",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8), // 256B..4MiB
		},
		[]string{"method", "path"},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpRespSize)
}

// Metrics returns a Gin middleware recording every request.
//
// Behavior:
//   - increments the in-flight gauge on entry and decrements it on exit,
//     including when a later handler panics and Recovery answers
//   - after the chain: one counter sample (method, route, status), one
//     latency sample (method, route) and, when the writer reports a size, one
//     response-size sample
//
// Register it after RequestID and before the handlers so aborted requests
// are counted with their final status.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method

		httpReqs.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpLat.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		if size := c.Writer.Size(); size >= 0 {
			httpRespSize.WithLabelValues(method, path).Observe(float64(size))
		}
	}
}
