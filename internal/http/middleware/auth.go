// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the bearer-token gateway. Tokens arrive either as
// "Authorization: Bearer <token>" or in the X-Access-Token header, and are
// compared to the configured secret with a constant-time comparison that
// always runs over the full length of both operands.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// ctxKeyAuthToken is the Gin context key for the extracted token value.
	// The rate limiter keys on it: keying on the raw header string would
	// let one token dodge its quota by alternating header forms.
	ctxKeyAuthToken = "authToken"

	bearerPrefix = "Bearer "
)

// Failure reasons surfaced in the 401 details.
const (
	ReasonTokenMissing   = "token_missing"
	ReasonTokenInvalid   = "token_invalid"
	ReasonTokenMalformed = "token_malformed"
)

// ExtractToken pulls the presented credential from a request.
//
// Rules:
//   - Authorization beginning with "Bearer " wins; the remainder is the token.
//   - Otherwise X-Access-Token is used.
//   - A non-empty Authorization header without the Bearer prefix and with no
//     X-Access-Token fallback is malformed, not merely missing.
func ExtractToken(r *http.Request) (token, reason string) {
	authz := r.Header.Get("Authorization")
	xToken := r.Header.Get("X-Access-Token")

	if strings.HasPrefix(authz, bearerPrefix) {
		token = authz[len(bearerPrefix):]
	} else if authz != "" && xToken == "" {
		return "", ReasonTokenMalformed
	} else {
		token = xToken
	}

	if token == "" {
		return "", ReasonTokenMissing
	}
	return token, ""
}

// ConstantTimeEqual compares two strings without early exit. The loop runs
// over max(len(a), len(b)) bytes and accumulates differences; a length
// mismatch returns false only after the full scan, so timing does not leak
// how much of a guess matched.
func ConstantTimeEqual(a, b string) bool {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	var diff byte
	for i := 0; i < maxLen; i++ {
		var ca, cb byte
		if i < len(a) {
			ca = a[i]
		}
		if i < len(b) {
			cb = b[i]
		}
		diff |= ca ^ cb
	}
	return diff == 0 && len(a) == len(b)
}

// authFailFn writes the 401 envelope. Injected by the router to avoid an
// import cycle with the handlers package.
type authFailFn func(c *gin.Context, reason string)

// Auth returns a middleware enforcing the bearer secret. On success the
// extracted token is stored in the context for the rate limiter.
func Auth(secret string, fail authFailFn) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, reason := ExtractToken(c.Request)
		if reason != "" {
			fail(c, reason)
			return
		}
		if !ConstantTimeEqual(token, secret) {
			fail(c, ReasonTokenInvalid)
			return
		}
		c.Set(ctxKeyAuthToken, token)
		c.Next()
	}
}

// AuthTokenFrom returns the token extracted by Auth, or "" when the request
// has not passed authentication.
func AuthTokenFrom(c *gin.Context) string {
	if v, ok := c.Get(ctxKeyAuthToken); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
