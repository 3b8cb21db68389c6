// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file exposes Prometheus instrumentation. HTTP collectors keep label
// cardinality bounded by using the registered Gin route as the path label.
// A domain counter tracks appended log events by event group so dashboards
// can watch the write mix (transcript vs notify vs categorization) without
// scraping the database.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// httpReqs counts requests by method, route path, and status code.
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	// httpLat records request duration in seconds by method and route path.
	// Status is intentionally omitted to keep histogram cardinality lower.
	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// httpInflight gauges the number of in-flight requests.
	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	// eventsAppended counts session log events accepted for persistence,
	// labelled by event group.
	eventsAppended = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_log_events_total",
			Help: "Total number of session log events appended.",
		},
		[]string{"group"},
	)

	// notifyEnqueueFailures counts notify/categorize publishes that could not
	// reach the queue. The parent mutation still succeeds; this is the signal
	// that the manual resend path is accumulating work.
	notifyEnqueueFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notify_enqueue_failures_total",
			Help: "Total number of failed notify job publishes.",
		},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, eventsAppended, notifyEnqueueFailures)
}

// CountEventAppended records one accepted session log event.
func CountEventAppended(group string) {
	eventsAppended.WithLabelValues(group).Inc()
}

// CountNotifyEnqueueFailure records one failed notify publish.
func CountNotifyEnqueueFailure() {
	notifyEnqueueFailures.Inc()
}

// Metrics returns a Gin middleware that instruments requests with Prometheus.
//
// Usage:
//
//	r := gin.New()
//	r.Use(middleware.Metrics())
//	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
//
// The "path" label uses the registered route (c.FullPath()) and falls back
// to the raw URL path when no route matched.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		dur := time.Since(start).Seconds()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		httpReqs.WithLabelValues(method, path, status).Inc()
		httpLat.WithLabelValues(method, path).Observe(dur)
	}
}
