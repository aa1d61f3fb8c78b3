package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks total HTTP requests
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration tracks HTTP request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// TransactionTransitions tracks lifecycle operations by resulting status
	TransactionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transaction_transitions_total",
			Help: "Total number of transaction lifecycle transitions",
		},
		[]string{"operation", "status"},
	)

	// ReportsTotal tracks moderation reports by type and reason
	ReportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reports_total",
			Help: "Total number of moderation reports filed",
		},
		[]string{"type", "reason"},
	)

	// NotificationsTotal tracks notification rows written
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Total number of notifications created",
		},
		[]string{"type"},
	)

	// WebhookDeliveries tracks notification webhook attempts by result
	WebhookDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_webhook_deliveries_total",
			Help: "Total number of notification webhook delivery attempts",
		},
		[]string{"result"},
	)

	// CircuitBreakerState tracks circuit breaker state (0=closed, 1=open, 2=half-open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"circuit_name"},
	)

	// CircuitBreakerFailures tracks circuit breaker failures
	CircuitBreakerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of circuit breaker failures",
		},
		[]string{"circuit_name"},
	)

	// BulkheadActiveRequests tracks active requests in bulkhead
	BulkheadActiveRequests = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bulkhead_active_requests",
			Help: "Number of active requests in bulkhead",
		},
		[]string{"bulkhead_name"},
	)

	// BulkheadRejectedRequests tracks rejected requests by bulkhead
	BulkheadRejectedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bulkhead_rejected_requests_total",
			Help: "Total number of rejected requests by bulkhead",
		},
		[]string{"bulkhead_name"},
	)

	// RateLimited tracks requests rejected by the rate limiter
	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_limited_requests_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)
)

// PrometheusMiddleware creates a Gin middleware for automatic metrics collection
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		RequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}
