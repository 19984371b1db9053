package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// captureLogs redirects the global logger into a buffer for the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })
	return &buf
}

func TestRequestID_GeneratesAndPropagates(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, RequestIDFrom(c)) })

	// Generated when absent.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if got := w.Header().Get("X-Request-ID"); got == "" || got != w.Body.String() {
		t.Errorf("header %q vs context %q", got, w.Body.String())
	}

	// Reused when supplied.
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "client-supplied-id")
	r.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "client-supplied-id" {
		t.Errorf("X-Request-ID = %q, want client-supplied-id", got)
	}
}

func TestRedactingLogger_MasksCredentialHeaders(t *testing.T) {
	buf := captureLogs(t)

	r := gin.New()
	r.Use(RequestID(), RedactingLogger(RedactOptions{}))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping?email=alice@example.com", nil)
	req.Header.Set("Authorization", "Bearer super-secret-token")
	req.Header.Set("X-Access-Token", "super-secret-token")
	r.ServeHTTP(w, req)

	logged := buf.String()
	if strings.Contains(logged, "super-secret-token") {
		t.Error("credential leaked into logs")
	}
	if strings.Contains(logged, "alice@example.com") {
		t.Error("email leaked into logs")
	}
	if !strings.Contains(logged, "[REDACTED]") {
		t.Error("expected masked header marker")
	}
}

func TestRedactingLogger_AttachesScopedLogger(t *testing.T) {
	captureLogs(t)

	r := gin.New()
	r.Use(RequestID(), RedactingLogger(RedactOptions{}))
	r.GET("/ping", func(c *gin.Context) {
		if LoggerFrom(c) == nil {
			t.Error("scoped logger missing")
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
}

func TestRecovery_ConvertsPanicToEnvelope(t *testing.T) {
	captureLogs(t)

	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `"internal_error"`) || !strings.Contains(body, `"request_id"`) {
		t.Errorf("envelope = %s", body)
	}
	if strings.Contains(body, "kaboom") {
		t.Error("panic value leaked into response")
	}
}
