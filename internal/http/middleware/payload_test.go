package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func payloadRouter(maxBytes int64) *gin.Engine {
	r := gin.New()
	fail := func(c *gin.Context, limitBytes int64) {
		c.AbortWithStatus(http.StatusRequestEntityTooLarge)
	}
	r.POST("/ingest", PayloadLimit(maxBytes, fail), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestPayloadLimit_RejectsOversizedBody(t *testing.T) {
	r := payloadRouter(64)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader(strings.Repeat("x", 100)))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", w.Code)
	}
}

func TestPayloadLimit_AllowsBodyAtLimit(t *testing.T) {
	r := payloadRouter(64)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader(strings.Repeat("x", 64)))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}
