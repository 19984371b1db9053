package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newTestLimiter(start time.Time) (*SlidingWindowLimiter, *time.Time) {
	clock := start
	l := NewSlidingWindowLimiter()
	l.now = func() time.Time { return clock }
	return l, &clock
}

func TestCheck_QuotaWithinWindow(t *testing.T) {
	l, _ := newTestLimiter(time.Unix(1_700_000_000, 0))
	limit := Limit{MaxRequests: 3, Window: time.Minute}

	for i := 0; i < 3; i++ {
		d := l.Check("chat", "tok", limit)
		if !d.Allowed {
			t.Fatalf("request %d rejected", i+1)
		}
		if want := 3 - (i + 1); d.Remaining != want {
			t.Errorf("request %d: remaining = %d, want %d", i+1, d.Remaining, want)
		}
	}

	d := l.Check("chat", "tok", limit)
	if d.Allowed {
		t.Fatal("4th request allowed, want rejection")
	}
	if d.RetryAfterSeconds < 1 {
		t.Errorf("retry_after = %d, want >= 1", d.RetryAfterSeconds)
	}
}

func TestCheck_WindowSlides(t *testing.T) {
	l, clock := newTestLimiter(time.Unix(1_700_000_000, 0))
	limit := Limit{MaxRequests: 2, Window: time.Minute}

	l.Check("chat", "tok", limit)
	l.Check("chat", "tok", limit)
	if d := l.Check("chat", "tok", limit); d.Allowed {
		t.Fatal("over-quota request allowed")
	}

	// After the window passes the old timestamps expire.
	*clock = clock.Add(time.Minute + time.Second)
	d := l.Check("chat", "tok", limit)
	if !d.Allowed {
		t.Fatal("request after window expiry rejected")
	}
	if d.Remaining != 1 {
		t.Errorf("remaining = %d, want 1", d.Remaining)
	}
}

func TestCheck_RetryAfterTracksOldestRequest(t *testing.T) {
	l, clock := newTestLimiter(time.Unix(1_700_000_000, 0))
	limit := Limit{MaxRequests: 2, Window: time.Minute}

	l.Check("chat", "tok", limit)
	*clock = clock.Add(20 * time.Second)
	l.Check("chat", "tok", limit)
	*clock = clock.Add(10 * time.Second)

	// Oldest request is 30s old; it leaves the window in 30s.
	d := l.Check("chat", "tok", limit)
	if d.Allowed {
		t.Fatal("over-quota request allowed")
	}
	if d.RetryAfterSeconds != 30 {
		t.Errorf("retry_after = %d, want 30", d.RetryAfterSeconds)
	}
}

func TestCheck_TokensAreIsolated(t *testing.T) {
	l, _ := newTestLimiter(time.Unix(1_700_000_000, 0))
	limit := Limit{MaxRequests: 1, Window: time.Minute}

	if d := l.Check("chat", "alice", limit); !d.Allowed {
		t.Fatal("alice's first request rejected")
	}
	if d := l.Check("chat", "alice", limit); d.Allowed {
		t.Fatal("alice's second request allowed")
	}
	// A different token has its own quota.
	if d := l.Check("chat", "bob", limit); !d.Allowed {
		t.Fatal("bob's first request rejected after alice exhausted hers")
	}
}

func TestCheck_EndpointsAreIsolated(t *testing.T) {
	l, _ := newTestLimiter(time.Unix(1_700_000_000, 0))
	limit := Limit{MaxRequests: 1, Window: time.Minute}

	l.Check("chat", "tok", limit)
	if d := l.Check("retrieve", "tok", limit); !d.Allowed {
		t.Fatal("retrieve quota consumed by chat requests")
	}
}

func TestCheck_EmptyKeysAreDropped(t *testing.T) {
	l, clock := newTestLimiter(time.Unix(1_700_000_000, 0))
	limit := Limit{MaxRequests: 5, Window: time.Minute}

	l.Check("chat", "tok", limit)
	*clock = clock.Add(2 * time.Minute)
	// Touching a different key should not matter; the expired key is removed
	// when next accessed.
	l.Check("chat", "tok", limit)

	l.mu.Lock()
	n := len(l.entries)
	l.mu.Unlock()
	if n != 1 {
		t.Errorf("entries = %d, want 1 (expired timestamps pruned)", n)
	}
}

type countingObserver struct{ hits int }

func (o *countingObserver) RateLimitHit(string) { o.hits++ }

func TestHandler_RejectsAndObserves(t *testing.T) {
	l, _ := newTestLimiter(time.Unix(1_700_000_000, 0))
	obs := &countingObserver{}
	var gotRetry int

	r := gin.New()
	fail := func(c *gin.Context, retryAfterSeconds int) {
		gotRetry = retryAfterSeconds
		c.AbortWithStatus(http.StatusTooManyRequests)
	}
	// A fixed token in the context stands in for Auth.
	r.POST("/limited",
		func(c *gin.Context) { c.Set(ctxKeyAuthToken, "tok") },
		l.Handler("chat", Limit{MaxRequests: 1, Window: time.Minute}, obs, fail),
		func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func() int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/limited", nil))
		return w.Code
	}

	if code := do(); code != http.StatusOK {
		t.Fatalf("first request: status = %d", code)
	}
	if code := do(); code != http.StatusTooManyRequests {
		t.Fatalf("second request: status = %d, want 429", code)
	}
	if obs.hits != 1 {
		t.Errorf("observer hits = %d, want 1", obs.hits)
	}
	if gotRetry < 1 {
		t.Errorf("retry_after = %d, want >= 1", gotRetry)
	}
}
