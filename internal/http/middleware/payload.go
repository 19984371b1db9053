// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file bounds request body sizes before any parsing happens. Oversized
// payloads are rejected up front from the declared Content-Length; bodies
// without a declared length are capped by a MaxBytesReader so a chunked
// upload cannot exceed the bound either.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MaxPayloadBytes is the maximum accepted request body size (50 KiB).
// Legitimate chat and retrieval requests are far smaller; the cap exists to
// stop cost amplification through giant payloads.
const MaxPayloadBytes = 50 * 1024

// payloadFailFn writes the 413 envelope. Injected by the router to avoid an
// import cycle with the handlers package.
type payloadFailFn func(c *gin.Context, limitBytes int64)

// PayloadLimit rejects requests whose declared Content-Length exceeds
// maxBytes and caps undeclared bodies at the same bound. The rejection
// happens before validation or any business logic runs.
func PayloadLimit(maxBytes int64, fail payloadFailFn) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			fail(c, maxBytes)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
