package kvfs_test

import (
	"context"
	"testing"
	"time"

	"github.com/hviana/kvfs"
)

func TestRateLimiterBound(t *testing.T) {
	const limit = 5
	const n = 12
	rl := kvfs.NewRateLimiter(limit)

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < n; i++ {
		if _, err := rl.Tick(ctx); err != nil {
			t.Fatalf("Tick: %v", err)
		}
	}
	elapsed := time.Since(start)

	// floor(N/limit) seconds is the minimum the spec's rate bound requires.
	want := time.Duration(n/limit) * time.Second
	if elapsed < want {
		t.Fatalf("rate limiter too fast: elapsed %v, want at least %v", elapsed, want)
	}
}

func TestRateLimiterUnbounded(t *testing.T) {
	rl := kvfs.NewRateLimiter(0)
	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 100000; i++ {
		if _, err := rl.Tick(ctx); err != nil {
			t.Fatalf("Tick: %v", err)
		}
	}
	if time.Since(start) > time.Second {
		t.Fatalf("unbounded limiter should never sleep")
	}
}
