package uwapi

import (
	"sync"
	"time"
)

// DefaultRequestsPerMinute is the client-side admission quota applied when no
// explicit quota is configured.
const DefaultRequestsPerMinute = 120

// rateLimitWindow is the rolling window the quota applies to.
const rateLimitWindow = time.Minute

// Admission is the outcome of a rate limiter check. When a request is
// rejected, Wait estimates how long until the oldest retained admission
// leaves the window and frees a slot.
type Admission struct {
	Allowed bool
	Wait    time.Duration
}

// RateLimiter admits at most MaxRequests calls in any trailing window. The
// check-and-record sequence is atomic, so concurrent callers can never
// over-admit inside a single window.
type RateLimiter struct {
	// Clock overrides the time source, for tests.
	Clock func() time.Time

	mu          sync.Mutex
	maxRequests int
	window      time.Duration
	timestamps  []time.Time
}

// NewRateLimiter creates a limiter with the given per-minute quota. A
// non-positive quota falls back to DefaultRequestsPerMinute.
func NewRateLimiter(maxRequests int) *RateLimiter {
	if maxRequests <= 0 {
		maxRequests = DefaultRequestsPerMinute
	}
	return &RateLimiter{
		maxRequests: maxRequests,
		window:      rateLimitWindow,
	}
}

// TryAcquire checks the quota and records the admission when allowed.
// Rejected attempts are not recorded and do not consume quota.
func (r *RateLimiter) TryAcquire() Admission {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.prune(now)

	if len(r.timestamps) >= r.maxRequests {
		oldest := r.timestamps[0]
		return Admission{
			Allowed: false,
			Wait:    r.window - now.Sub(oldest),
		}
	}

	r.timestamps = append(r.timestamps, now)
	return Admission{Allowed: true}
}

// RateLimiterStatus is a read-only view of the limiter for status surfaces.
type RateLimiterStatus struct {
	InWindow    int           `json:"in_window"`
	MaxRequests int           `json:"max_requests"`
	Window      time.Duration `json:"window"`
}

// Snapshot reports current usage without consuming quota.
func (r *RateLimiter) Snapshot() RateLimiterStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prune(r.now())
	return RateLimiterStatus{
		InWindow:    len(r.timestamps),
		MaxRequests: r.maxRequests,
		Window:      r.window,
	}
}

// prune drops timestamps that have left the window. Caller must hold the lock.
func (r *RateLimiter) prune(now time.Time) {
	cutoff := now.Add(-r.window)
	idx := 0
	for idx < len(r.timestamps) && !r.timestamps[idx].After(cutoff) {
		idx++
	}
	if idx > 0 {
		r.timestamps = append(r.timestamps[:0], r.timestamps[idx:]...)
	}
}

func (r *RateLimiter) now() time.Time {
	if r.Clock != nil {
		return r.Clock()
	}
	return time.Now()
}
