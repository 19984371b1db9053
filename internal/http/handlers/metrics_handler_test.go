package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/connexus-ai/hr-rag-service/internal/metrics"
)

func TestMetrics_ReturnsAllBuckets(t *testing.T) {
	reg := metrics.NewRegistry()
	reg.Observe("chat", 120, false)
	reg.Observe("chat", 80, true)
	reg.Observe("retrieve", 15, false)
	reg.RateLimitHit("chat")

	h := New(&fakeRetriever{}, &fakeChat{}, reg, nil, nil)
	r := gin.New()
	r.GET("/api/v1/metrics", h.Metrics)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp MetricsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	chat, ok := resp.Endpoints["chat"]
	if !ok {
		t.Fatal("chat bucket missing")
	}
	if chat.Count != 2 || chat.Errors != 1 || chat.RateLimitHits != 1 {
		t.Errorf("chat stats = %+v", chat)
	}
	if chat.ErrorRate != 0.5 {
		t.Errorf("error rate = %v, want 0.5", chat.ErrorRate)
	}
	if _, ok := resp.Endpoints["retrieve"]; !ok {
		t.Error("retrieve bucket missing")
	}
	if resp.Timestamp.IsZero() {
		t.Error("timestamp missing")
	}
}
