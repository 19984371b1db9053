package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/connexus-ai/hr-rag-service/internal/metrics"
)

func TestAppMetrics_RecordsLatencyAndOutcome(t *testing.T) {
	reg := metrics.NewRegistry()

	r := gin.New()
	r.POST("/ok", AppMetrics(reg, "chat"), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/fail", AppMetrics(reg, "chat"), func(c *gin.Context) { c.Status(http.StatusUnprocessableEntity) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ok", nil))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/fail", nil))

	stats := reg.Snapshot()["chat"]
	if stats.Count != 4 {
		t.Errorf("count = %d, want 4", stats.Count)
	}
	if stats.Errors != 1 {
		t.Errorf("errors = %d, want 1", stats.Errors)
	}
	if stats.Samples != 4 {
		t.Errorf("samples = %d, want 4", stats.Samples)
	}
	if stats.ErrorRate != 0.25 {
		t.Errorf("error rate = %v, want 0.25", stats.ErrorRate)
	}
}

func TestMetrics_PrometheusMiddlewarePassesThrough(t *testing.T) {
	r := gin.New()
	r.Use(Metrics())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Code != http.StatusOK || w.Body.String() != "pong" {
		t.Fatalf("response altered: %d %q", w.Code, w.Body.String())
	}
}
