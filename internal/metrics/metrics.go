package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// AttemptsTotal counts upstream generation attempts by outcome.
	AttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tongue",
		Subsystem: "dispatch",
		Name:      "attempts_total",
		Help:      "Total number of upstream generation attempts, labeled by outcome (success, transient, fatal, malformed).",
	}, []string{"outcome"})

	// RotationsTotal counts credential rotations after transient failures.
	RotationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tongue",
		Subsystem: "dispatch",
		Name:      "key_rotations_total",
		Help:      "Total number of API key rotations triggered by transient upstream failures.",
	})

	// AnalyzeDurationSeconds is the end-to-end time of one Analyze call, retries included.
	AnalyzeDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tongue",
		Subsystem: "dispatch",
		Name:      "analyze_duration_seconds",
		Help:      "End-to-end time of one tongue analysis including retries and backoff.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
	}, []string{"result"})

	// PoolSize is the number of configured API keys.
	PoolSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tongue",
		Subsystem: "keypool",
		Name:      "size",
		Help:      "Number of API keys in the credential pool.",
	})

	// HTTPRequestsTotal counts inbound API requests by route and status code.
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tongue",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of inbound HTTP requests, labeled by route and status code.",
	}, []string{"route", "code"})
)

// Register registers service metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			AttemptsTotal,
			RotationsTotal,
			AnalyzeDurationSeconds,
			PoolSize,
			HTTPRequestsTotal,
		)
	})
}
