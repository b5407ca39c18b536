package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func counterValue(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, metric := range mf.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue next
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func TestMetrics_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/api/progress/:courseId", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	for _, path := range []string{"/api/progress/1", "/api/progress/2", "/nope"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	got := counterValue(t, m, "courseplatform_http_requests_total", map[string]string{"route": "/api/progress/:courseId", "status": "200"})
	if got != 2 {
		t.Errorf("requests for templated route = %v, want 2", got)
	}
	if got := counterValue(t, m, "courseplatform_http_requests_total", map[string]string{"route": "unmatched", "status": "404"}); got != 1 {
		t.Errorf("unmatched requests = %v, want 1", got)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "courseplatform_http_request_duration_seconds") {
		t.Error("metrics endpoint does not expose the latency histogram")
	}
}

func TestMetrics_DomainCounters(t *testing.T) {
	m := New()
	m.RecordLogin("password", OutcomeFailure)
	m.RecordLogin("password", OutcomeFailure)
	m.RecordLogin("discord", OutcomeSuccess)
	m.RecordVideoWatched()
	m.RecordCourseCompleted()

	if got := counterValue(t, m, "courseplatform_logins_total", map[string]string{"method": "password", "outcome": OutcomeFailure}); got != 2 {
		t.Errorf("password failures = %v, want 2", got)
	}
	if got := counterValue(t, m, "courseplatform_videos_watched_total", nil); got != 1 {
		t.Errorf("videos watched = %v, want 1", got)
	}

	var nilMetrics *Metrics
	nilMetrics.RecordLogin("password", OutcomeSuccess)
	nilMetrics.RecordVideoWatched()
	nilMetrics.RecordCourseCompleted()
}
