// Package server — metrics.go registers all Prometheus metrics for the HTTP
// server and exposes helpers used by handlers and middleware.
package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// labelHandler partitions HTTP metrics by the logical endpoint name rather
// than the raw URL path.
const labelHandler = "handler"

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// A single instance is created in New and stored on Server so that tests can
// inject a fresh prometheus.Registry without polluting the default one.
type serverMetrics struct {
	// chatRequestsTotal counts answered /chat requests, partitioned by the
	// pipeline stage that produced the answer. A rising share of "pattern"
	// or "fallback" answers is the signal that retrieval or the model
	// provider is degraded, even though every request still returns 200.
	chatRequestsTotal *prometheus.CounterVec

	// chatDurationSeconds records the answer pipeline latency per source.
	chatDurationSeconds *prometheus.HistogramVec

	// chatConfidence records the confidence of shipped answers per source.
	chatConfidence *prometheus.HistogramVec

	// httpRequestsTotal counts all HTTP requests handled by the mux,
	// partitioned by method, handler, and status code.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of all HTTP requests.
	httpDurationSeconds *prometheus.HistogramVec
}

// newServerMetrics registers all server metrics against reg and returns the
// populated serverMetrics. promauto.With(reg) is used so that each call
// registers into the provided registry rather than the global default —
// this keeps unit tests hermetic.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		chatRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "folio",
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Total number of /chat requests answered, partitioned by answer source.",
		}, []string{"source"}),

		chatDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "folio",
			Subsystem: "chat",
			Name:      "duration_seconds",
			Help:      "Answer pipeline latency of /chat requests, partitioned by answer source.",
			Buckets:   []float64{0.005, 0.05, 0.25, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),

		chatConfidence: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "folio",
			Subsystem: "chat",
			Name:      "confidence",
			Help:      "Confidence of shipped answers, partitioned by answer source.",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		}, []string{"source"}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "folio",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", labelHandler, "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "folio",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", labelHandler}),
	}
}
