// Package metrics implements the in-memory, per-endpoint statistics exposed
// by the metrics endpoint: monotonic request/error counters, a rate-limit hit
// counter, and latency percentiles computed over a bounded ring of recent
// samples.
//
// The registry is deliberately small: it serves hourly rolling dashboards,
// not SLO accounting. Prometheus instrumentation for scrape-based monitoring
// lives in the HTTP middleware layer and is independent of this package.
package metrics

import (
	"math"
	"sort"
	"sync"
	"time"
)

const (
	// ringSize caps the number of latency samples retained per endpoint.
	ringSize = 1000
	// period is the wall-clock age after which a bucket is reset on access.
	period = time.Hour
)

// Stats is a consistent, read-only snapshot of one endpoint bucket.
// Percentiles and averages are in milliseconds. Empty buckets report zeros,
// never NaN.
type Stats struct {
	Count         uint64    `json:"count"`
	Errors        uint64    `json:"errors"`
	RateLimitHits uint64    `json:"rate_limit_hits"`
	ErrorRate     float64   `json:"error_rate"`
	AvgMs         float64   `json:"avg_ms"`
	P50Ms         float64   `json:"p50_ms"`
	P95Ms         float64   `json:"p95_ms"`
	P99Ms         float64   `json:"p99_ms"`
	Samples       int       `json:"samples"`
	PeriodStart   time.Time `json:"period_start"`
}

// bucket accumulates observations for a single endpoint.
type bucket struct {
	count         uint64
	errors        uint64
	rateLimitHits uint64

	// latencies is a ring of the last ringSize samples; next is the write
	// cursor and filled reports whether the ring has wrapped.
	latencies [ringSize]float64
	next      int
	filled    bool

	periodStart time.Time
}

// Registry holds one bucket per endpoint, guarded by a single mutex.
// Operations are O(ring size) at worst and short, so one lock suffices.
type Registry struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	// now is a test seam; defaults to time.Now.
	now func() time.Time
}

// NewRegistry returns an empty Registry ready for concurrent use.
func NewRegistry() *Registry {
	return &Registry{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// getLocked returns the bucket for endpoint, creating or resetting it as
// needed. Callers must hold r.mu.
func (r *Registry) getLocked(endpoint string) *bucket {
	now := r.now()
	b, ok := r.buckets[endpoint]
	if !ok {
		b = &bucket{periodStart: now}
		r.buckets[endpoint] = b
		return b
	}
	// Hourly rolling reset without background work: the first access after
	// the period expires starts a fresh bucket.
	if now.Sub(b.periodStart) > period {
		*b = bucket{periodStart: now}
	}
	return b
}

// Observe records one completed request for endpoint with its latency in
// milliseconds and whether it ended in an error response.
func (r *Registry) Observe(endpoint string, latencyMs float64, isError bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.getLocked(endpoint)
	b.count++
	if isError {
		b.errors++
	}
	b.latencies[b.next] = latencyMs
	b.next++
	if b.next == ringSize {
		b.next = 0
		b.filled = true
	}
}

// RateLimitHit records one rejected-by-rate-limit request for endpoint.
func (r *Registry) RateLimitHit(endpoint string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getLocked(endpoint).rateLimitHits++
}

// Snapshot returns derived statistics for every known endpoint. Each bucket
// is summarized atomically; buckets past their period are reset first.
func (r *Registry) Snapshot() map[string]Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]Stats, len(r.buckets))
	for endpoint := range r.buckets {
		b := r.getLocked(endpoint)
		out[endpoint] = summarize(b)
	}
	return out
}

// summarize derives Stats from a bucket. A single sorted copy serves all
// three percentiles.
func summarize(b *bucket) Stats {
	n := b.next
	if b.filled {
		n = ringSize
	}

	s := Stats{
		Count:         b.count,
		Errors:        b.errors,
		RateLimitHits: b.rateLimitHits,
		Samples:       n,
		PeriodStart:   b.periodStart,
	}
	if b.count > 0 {
		s.ErrorRate = float64(b.errors) / float64(b.count)
	}
	if n == 0 {
		return s
	}

	sorted := make([]float64, n)
	copy(sorted, b.latencies[:n])
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	s.AvgMs = sum / float64(n)
	s.P50Ms = percentile(sorted, 50)
	s.P95Ms = percentile(sorted, 95)
	s.P99Ms = percentile(sorted, 99)
	return s
}

// percentile picks sorted[ceil((p/100)*n)-1], clamped to the valid range.
// sorted must be non-empty and ascending.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	idx := int(math.Ceil(p/100*float64(n))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return sorted[idx]
}
