// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements a lightweight, in-memory, sliding-window rate limiter
// keyed by (endpoint, token). Cleanup is lazy per key: every check prunes
// the key's expired timestamps and removes the key when empty, so memory is
// bounded by the number of tokens active within the window with no global
// sweeper.
//
// Notes:
//   - This limiter is process-local. For horizontally scaled deployments,
//     prefer a distributed limiter (e.g., Redis-backed) behind the same
//     Check signature to enforce global limits.
//   - The limiter is intended for edge-level abuse control and cost
//     protection; it is not an authorization mechanism.
package middleware

import (
	"math"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Limit describes one endpoint's quota over a sliding window.
type Limit struct {
	MaxRequests int
	Window      time.Duration
}

// Fixed per-endpoint quotas. Metrics and health are not limited.
var (
	ChatLimit     = Limit{MaxRequests: 20, Window: time.Minute}
	RetrieveLimit = Limit{MaxRequests: 60, Window: time.Minute}
)

// Decision is the outcome of one rate-limit check.
type Decision struct {
	Allowed           bool
	Remaining         int
	RetryAfterSeconds int
}

// SlidingWindowLimiter tracks request timestamps per (endpoint, token).
// A single lock over the table suffices: operations are O(window size)
// and short. Safe for concurrent use.
type SlidingWindowLimiter struct {
	mu      sync.Mutex
	entries map[string][]time.Time

	// now is a test seam; defaults to time.Now.
	now func() time.Time
}

// NewSlidingWindowLimiter returns an empty limiter.
func NewSlidingWindowLimiter() *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		entries: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Check records an attempt for (endpoint, token) against limit.
//
// Expired timestamps are pruned first; an empty key is deleted. If the
// remaining count reaches the quota the attempt is rejected and
// RetryAfterSeconds reports, rounded up, when the oldest in-window request
// leaves the window. Otherwise the attempt is recorded and Remaining is the
// quota minus the new count.
func (l *SlidingWindowLimiter) Check(endpoint, token string, limit Limit) Decision {
	key := endpoint + "\x00" + token
	now := l.now()
	cutoff := now.Add(-limit.Window)

	l.mu.Lock()
	defer l.mu.Unlock()

	stamps := l.entries[key]
	// Prune in place: timestamps are appended in order, so the live suffix
	// starts at the first in-window entry.
	live := 0
	for live < len(stamps) && !stamps[live].After(cutoff) {
		live++
	}
	stamps = stamps[live:]
	if len(stamps) == 0 {
		delete(l.entries, key)
	}

	if len(stamps) >= limit.MaxRequests {
		oldest := stamps[0]
		retry := int(math.Ceil(oldest.Add(limit.Window).Sub(now).Seconds()))
		if retry < 1 {
			retry = 1
		}
		l.entries[key] = stamps
		return Decision{Allowed: false, Remaining: 0, RetryAfterSeconds: retry}
	}

	stamps = append(stamps, now)
	l.entries[key] = stamps
	return Decision{Allowed: true, Remaining: limit.MaxRequests - len(stamps)}
}

// rateLimitFailFn writes the 429 envelope. Injected by the router to avoid
// an import cycle with the handlers package.
type rateLimitFailFn func(c *gin.Context, retryAfterSeconds int)

// rateLimitObserver records a rejected request for the endpoint's metrics
// bucket.
type rateLimitObserver interface {
	RateLimitHit(endpoint string)
}

// Handler returns a middleware enforcing limit for endpoint. It must run
// after Auth so the extracted token value is available as the key.
func (l *SlidingWindowLimiter) Handler(endpoint string, limit Limit, obs rateLimitObserver, fail rateLimitFailFn) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := l.Check(endpoint, AuthTokenFrom(c), limit)
		if !d.Allowed {
			if obs != nil {
				obs.RateLimitHit(endpoint)
			}
			fail(c, d.RetryAfterSeconds)
			return
		}
		c.Next()
	}
}
