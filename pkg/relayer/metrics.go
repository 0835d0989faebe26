package relayer

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Registry holds the SDK's Prometheus collectors.
	Registry = prometheus.NewRegistry()

	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relayer_sdk",
			Name:      "requests_total",
			Help:      "Total number of relayer requests by terminal outcome.",
		},
		[]string{"operation", "outcome"},
	)

	httpResponses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relayer_sdk",
			Name:      "http_responses_total",
			Help:      "HTTP responses received from the relayer.",
		},
		[]string{"operation", "method", "status"},
	)

	retriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relayer_sdk",
			Name:      "retries_total",
			Help:      "Scheduled Retry-After waits.",
		},
		[]string{"operation", "reason"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "relayer_sdk",
			Name:      "request_duration_seconds",
			Help:      "Wall time from Run to termination.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
		},
		[]string{"operation"},
	)
)

func init() {
	Registry.MustRegister(requestsTotal, httpResponses, retriesTotal, requestDuration)
}
