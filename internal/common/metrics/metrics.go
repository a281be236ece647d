// Package metrics exposes Prometheus instrumentation for SkyTrace services
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skytrace",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "skytrace",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"service", "method", "path"},
	)

	// AnalysisRunsTotal counts completed analysis runs by outcome
	AnalysisRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skytrace",
			Name:      "analysis_runs_total",
			Help:      "Total number of analysis runs",
		},
		[]string{"outcome"},
	)

	// RecordsScoredTotal counts login records scored by the anomaly engine
	RecordsScoredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "skytrace",
			Name:      "records_scored_total",
			Help:      "Total number of login records scored",
		},
	)

	// GeoLookupsTotal counts geolocation lookups by result
	GeoLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skytrace",
			Name:      "geo_lookups_total",
			Help:      "Total number of geolocation lookups",
		},
		[]string{"result"}, // cache_hit, private, resolved, failed
	)
)

// GinMiddleware records request counts and latencies per route
func GinMiddleware(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		httpRequestsTotal.WithLabelValues(serviceName, c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(serviceName, c.Request.Method, path).
			Observe(time.Since(start).Seconds())
	}
}

// Handler returns the Prometheus scrape endpoint handler
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
