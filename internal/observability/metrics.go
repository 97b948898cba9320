package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce              sync.Once
	lifecycleTransitionsTotal *prometheus.CounterVec
	lifecycleLatencySeconds   *prometheus.HistogramVec
	gradebookPushFailures     prometheus.Counter
	notificationsPublished    *prometheus.CounterVec
	httpRequestsTotal         *prometheus.CounterVec
	httpLatencySeconds        *prometheus.HistogramVec
	httpErrorsTotal           *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors for the assignment
// lifecycle.
func RegisterMetrics() {
	registerOnce.Do(func() {
		lifecycleTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assign_lifecycle_transitions_total",
			Help: "Total number of submission/grade lifecycle transitions applied.",
		}, []string{"action"})

		lifecycleLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "assign_lifecycle_latency_seconds",
			Help:    "Latency distribution of lifecycle operations.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"action"})

		gradebookPushFailures = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "assign_gradebook_push_failures_total",
			Help: "Total number of failed synchronous gradebook pushes.",
		})

		notificationsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assign_notifications_published_total",
			Help: "Total number of notifications published.",
		}, []string{"type"})

		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assign_http_requests_total",
			Help: "Total number of HTTP requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "assign_http_request_duration_seconds",
			Help:    "Latency distribution of HTTP requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assign_http_errors_total",
			Help: "Total number of HTTP responses with an error status.",
		}, []string{"method", "route", "status"})

		prometheus.MustRegister(
			lifecycleTransitionsTotal,
			lifecycleLatencySeconds,
			gradebookPushFailures,
			notificationsPublished,
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
		)
	})
}

// LifecycleTransitions exposes the transition counter.
func LifecycleTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return lifecycleTransitionsTotal
}

// LifecycleLatency exposes the lifecycle latency histogram.
func LifecycleLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return lifecycleLatencySeconds
}

// GradebookPushFailures exposes the failed-push counter.
func GradebookPushFailures() prometheus.Counter {
	RegisterMetrics()
	return gradebookPushFailures
}

// NotificationsPublished exposes the notification counter.
func NotificationsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsPublished
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the error response counter.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}
