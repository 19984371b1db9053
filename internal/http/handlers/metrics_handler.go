// Metrics HTTP handler.
//
// GET /api/v1/metrics returns the in-memory per-endpoint statistics: request
// and error counters, rate-limit hits, and latency percentiles over the
// rolling window. The endpoint is authenticated but not rate limited, so
// dashboards can poll it freely.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/connexus-ai/hr-rag-service/internal/http/middleware"
	"github.com/connexus-ai/hr-rag-service/internal/metrics"
)

// MetricsResponse is the metrics endpoint's success envelope.
type MetricsResponse struct {
	Endpoints map[string]metrics.Stats `json:"endpoints"`
	RequestID string                   `json:"request_id,omitempty"`
	Timestamp time.Time                `json:"timestamp"`
}

// Metrics handles GET /api/v1/metrics.
func (h *Handlers) Metrics(c *gin.Context) {
	ok(c, http.StatusOK, MetricsResponse{
		Endpoints: h.registry.Snapshot(),
		RequestID: middleware.RequestIDFrom(c),
		Timestamp: time.Now().UTC(),
	})
}
