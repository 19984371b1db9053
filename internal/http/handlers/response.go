// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the standard response utilities used across all endpoints,
// including the structured error envelope, consistent JSON serialization, and
// helpers for common HTTP patterns. The goal is to guarantee uniform responses
// for both success and failure cases, making the API predictable and
// machine-friendly.
//
// Conventions:
//   - All error responses return an ErrorResponse with a stable `code` (see
//     errors.go constants) and, when useful, a small `details` object.
//   - `fail()` centralizes error logging and formatting, ensuring 5xx
//     responses are logged with request context for observability.
//   - `ok()` simplifies writing success responses in a consistent shape.
//
// Example error response:
//
//	HTTP/1.1 429 Too Many Requests
//	{
//	  "error": {
//	    "code": "rate_limit_exceeded",
//	    "message": "too many requests",
//	    "details": {"retry_after_seconds": 42}
//	  },
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000"
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/connexus-ai/hr-rag-service/internal/http/middleware"
)

// ErrorBody carries the machine-readable failure description.
//
// Code is stable and lowercase snake_case; Message is human-readable and safe
// to show to users. Details holds small structured extras such as
// retry_after_seconds, a rejection reason, or per-field validation errors.
// Internal error text never appears here.
type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorResponse is the canonical error envelope returned by every endpoint.
type ErrorResponse struct {
	Error     ErrorBody `json:"error"`
	RequestID string    `json:"request_id,omitempty"`
}

// fail aborts the request with a structured error and logs server-side errors.
//
// Server errors (>= 500) are logged using the request-scoped logger from
// middleware; caller errors are already covered by the access log.
func fail(c *gin.Context, status int, code, msg string, details map[string]any) {
	resp := ErrorResponse{
		Error:     ErrorBody{Code: code, Message: msg, Details: details},
		RequestID: middleware.RequestIDFrom(c),
	}

	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail().
//
// External packages (e.g., router setup) call Fail to return consistent
// error envelopes without depending on unexported helpers.
func Fail(c *gin.Context, status int, code, msg string, details map[string]any) {
	fail(c, status, code, msg, details)
}

// ok writes a success JSON response with the given status.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
