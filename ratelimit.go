package kvfs

import (
	"context"
	"time"
)

// RateLimiter throttles per-item work ("chunks per second" or "directory
// entries per second") to a caller-chosen rate, as a discrete 1-second
// leaky bucket per spec §4.3: up to limit items pass per window with no
// delay; the (limit+1)-th item in a window blocks until the window's full
// second has elapsed, then the window rolls over. A zero limit means
// unbounded.
//
// This is deliberately not a continuous token-bucket refill (as
// golang.org/x/time/rate implements): a continuous bucket that drains N
// items at rate limit/sec finishes in (N-limit)/limit seconds, about a
// full second faster than spec §8's "a save of N chunks takes at least
// floor(N/limit) seconds" bound requires once N exceeds limit, because it
// refills one token at a time rather than waiting out the whole window.
type RateLimiter struct {
	limit       int
	windowStart time.Time
	count       int
}

// NewRateLimiter returns a limiter admitting limit items/second. limit <= 0
// means unbounded.
func NewRateLimiter(limit int) *RateLimiter {
	return &RateLimiter{limit: limit}
}

// Tick accounts for one item of work. It reports pulse=true on a window
// rollover or a throttled sleep, the two events spec §4.3 says should
// trigger a progress emit independent of per-chunk work.
func (r *RateLimiter) Tick(ctx context.Context) (pulse bool, err error) {
	if r == nil || r.limit <= 0 {
		return false, nil
	}

	now := time.Now()
	if r.windowStart.IsZero() {
		r.windowStart = now
	}

	elapsed := now.Sub(r.windowStart)
	if elapsed >= time.Second {
		r.windowStart = now
		r.count = 0
		return true, nil
	}

	r.count++
	if r.count <= r.limit {
		return false, nil
	}

	remaining := time.Second - elapsed
	t := time.NewTimer(remaining)
	defer t.Stop()
	select {
	case <-t.C:
		r.windowStart = time.Now()
		r.count = 0
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
