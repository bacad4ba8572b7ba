package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus instruments for the analytics backend.
type Metrics struct {
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	messagesIngested *prometheus.CounterVec
	messagesDeduped  prometheus.Counter
	analyticsQueries *prometheus.HistogramVec
	jobRuns          *prometheus.CounterVec
	jobErrors        *prometheus.CounterVec
	jobDuration      *prometheus.HistogramVec
}

// New registers and returns the application metrics.
func New() *Metrics {
	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assistext_http_requests_total",
		Help: "HTTP requests by method, route, and status.",
	}, []string{"method", "route", "status"})

	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "assistext_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	messagesIngested := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assistext_messages_ingested_total",
		Help: "Message events ingested by direction and AI flag.",
	}, []string{"direction", "ai"})

	messagesDeduped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "assistext_messages_deduplicated_total",
		Help: "Message events dropped by the ingest idempotency key.",
	})

	analyticsQueries := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "assistext_analytics_query_duration_seconds",
		Help:    "Analytics facade query latency by query kind.",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	jobRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assistext_scheduler_job_runs_total",
		Help: "Scheduler job runs by name.",
	}, []string{"job"})

	jobErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assistext_scheduler_job_errors_total",
		Help: "Scheduler job errors by name.",
	}, []string{"job"})

	jobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "assistext_scheduler_job_duration_seconds",
		Help:    "Scheduler job latency.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
	}, []string{"job"})

	prometheus.MustRegister(
		httpRequests,
		httpDuration,
		messagesIngested,
		messagesDeduped,
		analyticsQueries,
		jobRuns,
		jobErrors,
		jobDuration,
	)

	return &Metrics{
		httpRequests:     httpRequests,
		httpDuration:     httpDuration,
		messagesIngested: messagesIngested,
		messagesDeduped:  messagesDeduped,
		analyticsQueries: analyticsQueries,
		jobRuns:          jobRuns,
		jobErrors:        jobErrors,
		jobDuration:      jobDuration,
	}
}

// RecordMessageIngested counts an accepted message event.
func (m *Metrics) RecordMessageIngested(direction string, aiGenerated bool) {
	if m == nil {
		return
	}
	m.messagesIngested.WithLabelValues(strings.TrimSpace(direction), strconv.FormatBool(aiGenerated)).Inc()
}

// RecordMessageDeduplicated counts an idempotency-key hit.
func (m *Metrics) RecordMessageDeduplicated() {
	if m == nil {
		return
	}
	m.messagesDeduped.Inc()
}

// ObserveAnalyticsQuery records facade query latency.
func (m *Metrics) ObserveAnalyticsQuery(query string, d time.Duration) {
	if m == nil {
		return
	}
	m.analyticsQueries.WithLabelValues(query).Observe(d.Seconds())
}

// IncJobRun counts a scheduler job execution.
func (m *Metrics) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
}

// IncJobError counts a scheduler job failure.
func (m *Metrics) IncJobError(job string) {
	if m == nil {
		return
	}
	m.jobErrors.WithLabelValues(job).Inc()
}

// ObserveJobDuration records scheduler job latency.
func (m *Metrics) ObserveJobDuration(job string, d time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

// GinMiddleware instruments inbound HTTP requests.
func GinMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if m == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.httpRequests.WithLabelValues(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
