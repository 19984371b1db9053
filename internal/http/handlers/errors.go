// Package handlers defines HTTP-layer error codes used across all API
// endpoints.
//
// This file centralizes the symbolic error code constants that are mapped to
// HTTP responses (via the `fail()` helper in this package) and the shared
// translation from service-layer failures to wire errors.
//
// Conventions:
//   - Codes are lowercase snake_case.
//   - Every error response includes both an HTTP status and one of these
//     codes; clients branch on the code, not the message.
//   - Timeouts are always distinguishable from outages: an expired bound maps
//     to gateway_timeout, a failed dependency to service_unavailable.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/connexus-ai/hr-rag-service/internal/http/middleware"
	"github.com/connexus-ai/hr-rag-service/internal/llm"
	"github.com/connexus-ai/hr-rag-service/internal/services"
)

const (
	ErrCodeBadRequest         = "bad_request"
	ErrCodeUnauthorized       = "unauthorized"
	ErrCodeNotFound           = "not_found"
	ErrCodeMethodNotAllowed   = "method_not_allowed"
	ErrCodeValidationFailed   = "validation_failed"
	ErrCodePayloadTooLarge    = "payload_too_large"
	ErrCodeRateLimited        = "rate_limit_exceeded"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeGatewayTimeout     = "gateway_timeout"
	ErrCodeInternal           = "internal_error"
)

// failFromServiceErr translates errors bubbling out of the retrieval and chat
// services into the wire taxonomy:
//
//   - expired deadlines (including the streaming idle watchdog) → 504
//   - provider outage (embedder or LLM unreachable) → 503
//   - provider content filter → 422 with details.reason = content_filtered
//   - anything else → 500 with a generic message
func failFromServiceErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, services.ErrStreamIdleTimeout):
		fail(c, http.StatusGatewayTimeout, ErrCodeGatewayTimeout,
			"upstream operation timed out", nil)
	case errors.Is(err, llm.ErrUnavailable):
		fail(c, http.StatusServiceUnavailable, ErrCodeServiceUnavailable,
			"a required provider is unavailable", nil)
	case errors.Is(err, llm.ErrContentFiltered):
		fail(c, http.StatusUnprocessableEntity, ErrCodeValidationFailed,
			"request rejected by content policy",
			map[string]any{"reason": "content_filtered"})
	default:
		middleware.LoggerFrom(c).Error().Err(err).Msg("unhandled service error")
		fail(c, http.StatusInternalServerError, ErrCodeInternal,
			"internal server error", nil)
	}
}
