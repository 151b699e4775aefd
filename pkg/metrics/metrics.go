package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imgfit_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "imgfit_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Optimization metrics
	OptimizationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imgfit_optimizations_total",
			Help: "Total number of optimizations by outcome",
		},
		[]string{"status", "format"}, // success, exhausted, invalid, decode_error, error
	)

	OptimizationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "imgfit_optimization_duration_seconds",
			Help:    "Time spent decoding and searching, in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"format"},
	)

	SearchProbes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "imgfit_search_probes",
			Help:    "Encoder invocations spent per optimization",
			Buckets: []float64{1, 2, 4, 6, 8, 12, 16, 24, 32},
		},
		[]string{"format"},
	)

	ResultTier = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imgfit_result_tier_total",
			Help: "Successful optimizations by the resolution tier that produced them",
		},
		[]string{"tier"}, // native or the tier side length
	)

	ResultQuality = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "imgfit_result_quality",
			Help:    "Quality of accepted encodings",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		},
	)

	ImageBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "imgfit_image_bytes",
			Help:    "Input/output image bytes",
			Buckets: []float64{1024, 10240, 102400, 512000, 1048576, 5242880, 10485760},
		},
		[]string{"direction"}, // input, output
	)

	// Rate limiting metrics
	RateLimitExceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imgfit_rate_limit_exceeded_total",
			Help: "Total number of requests rejected due to rate limiting",
		},
		[]string{"ip_prefix"}, // First octet for privacy
	)

	// Concurrency metrics
	ConcurrentRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "imgfit_concurrent_requests",
			Help: "Current number of concurrent requests being processed",
		},
	)

	ConcurrencyLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "imgfit_concurrency_limit_exceeded_total",
			Help: "Total number of requests rejected due to concurrency limit",
		},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, duration float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(endpoint).Observe(duration)
}

// RecordOptimization records a successful optimization.
func RecordOptimization(format string, duration float64, probes, tier, quality, inputBytes, outputBytes int) {
	OptimizationsTotal.WithLabelValues("success", format).Inc()
	OptimizationDuration.WithLabelValues(format).Observe(duration)
	SearchProbes.WithLabelValues(format).Observe(float64(probes))
	ResultTier.WithLabelValues(TierLabel(tier)).Inc()
	ResultQuality.Observe(float64(quality))
	ImageBytes.WithLabelValues("input").Observe(float64(inputBytes))
	ImageBytes.WithLabelValues("output").Observe(float64(outputBytes))
}

// RecordFailure records a failed optimization with its status label.
func RecordFailure(status, format string, duration float64, probes, inputBytes int) {
	OptimizationsTotal.WithLabelValues(status, format).Inc()
	OptimizationDuration.WithLabelValues(format).Observe(duration)
	if probes > 0 {
		SearchProbes.WithLabelValues(format).Observe(float64(probes))
	}
	ImageBytes.WithLabelValues("input").Observe(float64(inputBytes))
}

// TierLabel names a result tier for metric labels.
func TierLabel(tier int) string {
	if tier == 0 {
		return "native"
	}
	return strconv.Itoa(tier)
}

// RecordRateLimitExceeded records a rate limit rejection
func RecordRateLimitExceeded(ipPrefix string) {
	RateLimitExceeded.WithLabelValues(ipPrefix).Inc()
}

// UpdateConcurrency updates concurrent request gauge
func UpdateConcurrency(count int) {
	ConcurrentRequests.Set(float64(count))
}

// RecordConcurrencyLimitExceeded records a concurrency limit rejection
func RecordConcurrencyLimitExceeded() {
	ConcurrencyLimitExceeded.Inc()
}
