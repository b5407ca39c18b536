package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "courseplatform"

// Login outcomes
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeEphemeral = "ephemeral"
)

// Metrics holds the platform's Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	logins            *prometheus.CounterVec
	videosWatched     prometheus.Counter
	courseCompletions prometheus.Counter
}

// New creates the collectors on a private registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),

		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		logins: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by method and outcome",
		}, []string{"method", "outcome"}),

		videosWatched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "videos_watched_total",
			Help:      "Recorded video watch events",
		}),

		courseCompletions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "course_completions_total",
			Help:      "Newly created course completion records",
		}),
	}
}

func (m *Metrics) RecordLogin(method, outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(method, outcome).Inc()
}

func (m *Metrics) RecordVideoWatched() {
	if m == nil {
		return
	}
	m.videosWatched.Inc()
}

func (m *Metrics) RecordCourseCompleted() {
	if m == nil {
		return
	}
	m.courseCompletions.Inc()
}

// Middleware records request count and latency per matched route
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer is used by tests to read collected values
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}
