package metrics

import "github.com/prometheus/client_golang/prometheus"

// Cohere model call Prometheus metrics.
var (
	ModelRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "globalmart",
			Name:      "model_requests_total",
			Help:      "Total number of remote model requests",
		},
		[]string{"operation", "model", "status"},
	)

	ModelRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "globalmart",
			Name:      "model_request_duration_seconds",
			Help:      "Remote model request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
		[]string{"operation", "model"},
	)

	ModelFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "globalmart",
			Name:      "model_fallbacks_total",
			Help:      "Total number of requests served by a deterministic fallback",
		},
		[]string{"component"},
	)

	DenseCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "globalmart",
			Name:      "dense_cache_total",
			Help:      "Dense embedding matrix cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	EmbedCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "globalmart",
			Name:      "embed_cache_total",
			Help:      "Per-text embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var modelMetricsRegistered bool

// RegisterModelMetrics registers Prometheus model metrics. Must be called once from main.
func RegisterModelMetrics() {
	if modelMetricsRegistered {
		return
	}
	prometheus.MustRegister(ModelRequestsTotal)
	prometheus.MustRegister(ModelRequestDuration)
	prometheus.MustRegister(ModelFallbacksTotal)
	prometheus.MustRegister(DenseCacheTotal)
	prometheus.MustRegister(EmbedCacheTotal)
	modelMetricsRegistered = true
}
