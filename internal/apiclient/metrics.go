package apiclient

import "github.com/prometheus/client_golang/prometheus"

// kindOK labels calls that produced a result.
const kindOK = "ok"

var (
	// apiReqs counts outbound calls by method and outcome kind.
	apiReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pawconnect_api_requests_total",
			Help: "Total number of backend calls by outcome.",
		},
		[]string{"method", "kind"},
	)

	// apiLat records call duration in seconds by method, transport
	// failures included.
	apiLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pawconnect_api_request_duration_seconds",
			Help:    "Duration of backend calls in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	apiInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pawconnect_api_requests_inflight",
			Help: "Current number of in-flight backend calls.",
		},
	)
)

func init() {
	prometheus.MustRegister(apiReqs, apiLat, apiInflight)
}
