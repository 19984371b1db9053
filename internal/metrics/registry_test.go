package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestSnapshot_EmptyBucketZeros(t *testing.T) {
	r := NewRegistry()
	r.RateLimitHit("chat") // creates the bucket without latency samples

	s := r.Snapshot()["chat"]
	if s.Count != 0 || s.Errors != 0 {
		t.Errorf("count/errors = %d/%d, want 0/0", s.Count, s.Errors)
	}
	if s.RateLimitHits != 1 {
		t.Errorf("rateLimitHits = %d, want 1", s.RateLimitHits)
	}
	if s.ErrorRate != 0 || s.AvgMs != 0 || s.P50Ms != 0 || s.P95Ms != 0 || s.P99Ms != 0 {
		t.Errorf("derived stats should all be zero for an empty bucket: %+v", s)
	}
}

func TestSnapshot_KnownPercentiles(t *testing.T) {
	r := NewRegistry()
	for _, v := range []float64{100, 200, 300, 400, 500} {
		r.Observe("retrieve", v, false)
	}

	s := r.Snapshot()["retrieve"]
	if s.P50Ms != 300 {
		t.Errorf("p50 = %v, want 300", s.P50Ms)
	}
	if s.P95Ms != 500 {
		t.Errorf("p95 = %v, want 500", s.P95Ms)
	}
	if s.P99Ms != 500 {
		t.Errorf("p99 = %v, want 500", s.P99Ms)
	}
	if s.AvgMs != 300 {
		t.Errorf("avg = %v, want 300", s.AvgMs)
	}
}

func TestObserve_ErrorRate(t *testing.T) {
	r := NewRegistry()
	r.Observe("chat", 10, false)
	r.Observe("chat", 20, true)
	r.Observe("chat", 30, true)
	r.Observe("chat", 40, false)

	s := r.Snapshot()["chat"]
	if s.Count != 4 || s.Errors != 2 {
		t.Fatalf("count/errors = %d/%d", s.Count, s.Errors)
	}
	if s.ErrorRate != 0.5 {
		t.Errorf("errorRate = %v, want 0.5", s.ErrorRate)
	}
}

func TestRing_BoundedToLastThousand(t *testing.T) {
	r := NewRegistry()
	// 1500 samples; only the last 1000 (values 500..1499) should remain.
	for i := 0; i < 1500; i++ {
		r.Observe("chat", float64(i), false)
	}

	s := r.Snapshot()["chat"]
	if s.Samples != 1000 {
		t.Fatalf("samples = %d, want 1000", s.Samples)
	}
	if s.Count != 1500 {
		t.Errorf("count = %d, want 1500", s.Count)
	}
	// Min of the retained window is 500, so p50 of 500..1499 is 999.
	if s.P50Ms != 999 {
		t.Errorf("p50 = %v, want 999", s.P50Ms)
	}
}

func TestBucket_HourlyReset(t *testing.T) {
	r := NewRegistry()
	base := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return base }

	r.Observe("chat", 100, true)

	// Just inside the period: nothing resets.
	r.now = func() time.Time { return base.Add(period) }
	if s := r.Snapshot()["chat"]; s.Count != 1 {
		t.Fatalf("bucket reset too early: %+v", s)
	}

	// Past the period: first access starts a fresh bucket.
	r.now = func() time.Time { return base.Add(period + time.Second) }
	s := r.Snapshot()["chat"]
	if s.Count != 0 || s.Errors != 0 || s.Samples != 0 {
		t.Errorf("bucket not reset: %+v", s)
	}
	if !s.PeriodStart.Equal(base.Add(period + time.Second)) {
		t.Errorf("periodStart = %v", s.PeriodStart)
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				r.Observe("chat", float64(i), i%7 == 0)
				r.RateLimitHit("retrieve")
			}
		}()
	}
	wg.Wait()

	snap := r.Snapshot()
	if snap["chat"].Count != 4000 {
		t.Errorf("chat count = %d, want 4000", snap["chat"].Count)
	}
	if snap["retrieve"].RateLimitHits != 4000 {
		t.Errorf("retrieve rateLimitHits = %d, want 4000", snap["retrieve"].RateLimitHits)
	}
}

func TestPercentile_SingleSample(t *testing.T) {
	r := NewRegistry()
	r.Observe("health", 42, false)

	s := r.Snapshot()["health"]
	if s.P50Ms != 42 || s.P95Ms != 42 || s.P99Ms != 42 || s.AvgMs != 42 {
		t.Errorf("single-sample percentiles wrong: %+v", s)
	}
}
