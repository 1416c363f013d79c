package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// EndpointLatency tracks API handler latency by endpoint.
	EndpointLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stocksim",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of simulation API endpoints",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"endpoint"},
	)

	EndpointErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stocksim",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by simulation API endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	// ModelServiceLatency tracks calls to the remote forecasting service.
	ModelServiceLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stocksim",
			Subsystem: "model_service",
			Name:      "latency_seconds",
			Help:      "Latency of remote model forecast calls",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"model", "result"},
	)
)

// Register adds the collectors to the default registry once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(EndpointLatency, EndpointErrors, ModelServiceLatency)
	})
}
