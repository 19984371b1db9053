// Health HTTP handler.
//
// GET /api/v1/health reports dependency readiness without authentication:
//
//   - a trivial store read, with its observed latency;
//   - a presence check for the vector extension;
//   - an embedder probe, cached for a few minutes so load balancers polling
//     the endpoint do not generate provider traffic.
//
// Overall status is "ok" when everything passes, "degraded" when the store
// is reachable but a non-critical check fails, and "unhealthy" when the
// store read fails. Provider names and version strings are omitted by
// policy.
package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/connexus-ai/hr-rag-service/internal/http/middleware"
)

const (
	statusOK        = "ok"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"

	checkPass    = "pass"
	checkFail    = "fail"
	checkSkipped = "skipped"

	// probeCacheTTL is how long one embedder probe result is trusted.
	probeCacheTTL = 5 * time.Minute
	// probeTimeout bounds a single embedder probe.
	probeTimeout = 3 * time.Second
)

// CheckResult is one dependency's outcome in the health response.
type CheckResult struct {
	Status    string  `json:"status"`
	LatencyMs float64 `json:"latency_ms,omitempty"`
}

// HealthResponse is the health endpoint's envelope.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Checks    map[string]CheckResult `json:"checks"`
	RequestID string                 `json:"request_id,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// healthChecker runs the dependency probes and caches the embedder result.
type healthChecker struct {
	store HealthStore
	probe EmbedderProbe

	mu          sync.Mutex
	probedAt    time.Time
	probeOK     bool
	probeCached bool
}

func newHealthChecker(store HealthStore, probe EmbedderProbe) *healthChecker {
	return &healthChecker{store: store, probe: probe}
}

// embedderCheck returns the cached probe outcome, refreshing it when stale.
// A nil probe reports skipped.
func (hc *healthChecker) embedderCheck(ctx context.Context) CheckResult {
	if hc.probe == nil {
		return CheckResult{Status: checkSkipped}
	}

	hc.mu.Lock()
	defer hc.mu.Unlock()

	if hc.probeCached && time.Since(hc.probedAt) < probeCacheTTL {
		if hc.probeOK {
			return CheckResult{Status: checkPass}
		}
		return CheckResult{Status: checkFail}
	}

	pctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	_, err := hc.probe.Embed(pctx, []string{"ping"})

	hc.probedAt = time.Now()
	hc.probeOK = err == nil
	hc.probeCached = true

	if err != nil {
		return CheckResult{Status: checkFail}
	}
	return CheckResult{Status: checkPass}
}

// Health handles GET /api/v1/health.
func (h *Handlers) Health(c *gin.Context) {
	ctx := c.Request.Context()
	checks := make(map[string]CheckResult, 3)

	latency, dbErr := h.health.store.Ping(ctx)
	if dbErr != nil {
		checks["database"] = CheckResult{Status: checkFail}
	} else {
		checks["database"] = CheckResult{
			Status:    checkPass,
			LatencyMs: float64(latency) / float64(time.Millisecond),
		}
	}

	degraded := false
	if hasVec, err := h.health.store.HasVectorExtension(ctx); err != nil || !hasVec {
		checks["vector_extension"] = CheckResult{Status: checkFail}
		degraded = true
	} else {
		checks["vector_extension"] = CheckResult{Status: checkPass}
	}

	emb := h.health.embedderCheck(ctx)
	checks["embedder"] = emb
	if emb.Status == checkFail {
		degraded = true
	}

	resp := HealthResponse{
		Checks:    checks,
		RequestID: middleware.RequestIDFrom(c),
		Timestamp: time.Now().UTC(),
	}
	switch {
	case dbErr != nil:
		resp.Status = statusUnhealthy
		ok(c, http.StatusServiceUnavailable, resp)
	case degraded:
		resp.Status = statusDegraded
		ok(c, http.StatusOK, resp)
	default:
		resp.Status = statusOK
		ok(c, http.StatusOK, resp)
	}
}
