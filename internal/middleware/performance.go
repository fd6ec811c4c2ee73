package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go-bill-webapp/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PerformanceMonitor tracks request and bill generation metrics on its own registry.
type PerformanceMonitor struct {
	registry      *prometheus.Registry
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	bills         *prometheus.CounterVec
	billFailures  prometheus.Counter
	slowThreshold time.Duration
	startTime     time.Time
	log           *logger.StructuredLogger

	requestCount atomic.Int64
	errorCount   atomic.Int64
}

// NewPerformanceMonitor creates a new performance monitor
func NewPerformanceMonitor(slowThreshold time.Duration, log *logger.StructuredLogger) *PerformanceMonitor {
	pm := &PerformanceMonitor{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billgen_http_requests_total",
			Help: "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "billgen_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		bills: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billgen_bills_generated_total",
			Help: "Bill documents generated by layout.",
		}, []string{"layout"}),
		billFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "billgen_bill_failures_total",
			Help: "Bill documents that failed to serialize.",
		}),
		slowThreshold: slowThreshold,
		startTime:     time.Now(),
		log:           log,
	}
	pm.registry.MustRegister(pm.requests, pm.duration, pm.bills, pm.billFailures)
	return pm
}

// PerformanceMiddleware tracks request performance
func (pm *PerformanceMonitor) PerformanceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		// Skip health check and metrics scrapes
		if path == "/health" || path == "/metrics" || strings.HasPrefix(path, "/static/") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		method := c.Request.Method

		pm.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
		pm.duration.WithLabelValues(route, method).Observe(duration.Seconds())
		pm.requestCount.Add(1)
		if status >= http.StatusInternalServerError {
			pm.errorCount.Add(1)
		}

		if duration > pm.slowThreshold {
			pm.log.Warn("Slow request", map[string]interface{}{
				"method":   method,
				"path":     path,
				"duration": duration.String(),
				"status":   status,
			})
		}
	}
}

// RecordBill counts a generated bill for the named layout.
func (pm *PerformanceMonitor) RecordBill(layout string) {
	pm.bills.WithLabelValues(layout).Inc()
}

// RecordBillFailure counts a bill that could not be generated.
func (pm *PerformanceMonitor) RecordBillFailure() {
	pm.billFailures.Inc()
}

// Registry exposes the monitor's collectors.
func (pm *PerformanceMonitor) Registry() *prometheus.Registry {
	return pm.registry
}

// MetricsHandler serves the Prometheus exposition format.
func (pm *PerformanceMonitor) MetricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{}))
}

// ErrorRate returns the percentage of requests that ended in a 5xx.
func (pm *PerformanceMonitor) ErrorRate() float64 {
	total := pm.requestCount.Load()
	if total == 0 {
		return 0
	}
	return float64(pm.errorCount.Load()) / float64(total) * 100
}

// HealthHandler reports uptime and error rate.
func (pm *PerformanceMonitor) HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		rate := pm.ErrorRate()
		health := gin.H{
			"status":     "healthy",
			"timestamp":  time.Now().UTC(),
			"uptime":     time.Since(pm.startTime).String(),
			"requests":   pm.requestCount.Load(),
			"error_rate": fmt.Sprintf("%.2f%%", rate),
		}

		// Add status based on error rate
		if rate > 10 {
			health["status"] = "degraded"
		}
		if rate > 25 {
			health["status"] = "unhealthy"
		}

		c.JSON(http.StatusOK, health)
	}
}

// SecurityHeadersMiddleware adds security headers
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Don't set HSTS in development
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

// RequestSizeLimitMiddleware limits request body size
func RequestSizeLimitMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request entity too large"})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}
