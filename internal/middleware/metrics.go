package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	reportSubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_submissions_total",
			Help: "Total number of report submission attempts",
		},
		[]string{"outcome"},
	)

	engineCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_engine_calls_total",
			Help: "Total number of analysis engine calls",
		},
		[]string{"engine", "status"},
	)

	engineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analysis_engine_duration_seconds",
			Help:    "Analysis engine call duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"engine"},
	)
)

// MetricsMiddleware records Prometheus metrics for every HTTP request.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpRequestsInFlight.Inc()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}

		c.Next()

		httpRequestsInFlight.Dec()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, endpoint, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(duration)
	}
}

// Submission outcome labels.
const (
	OutcomeSubmitted = "submitted"
	OutcomePartial   = "partial"
	OutcomeFailed    = "failed"
	OutcomeRejected  = "rejected"
)

// RecordSubmission counts one report submission attempt.
func RecordSubmission(outcome string) {
	reportSubmissionsTotal.WithLabelValues(outcome).Inc()
}

// RecordEngineCall counts one analysis engine call and its duration.
func RecordEngineCall(engine string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	engineCallsTotal.WithLabelValues(engine, status).Inc()
	engineDuration.WithLabelValues(engine).Observe(duration.Seconds())
}
