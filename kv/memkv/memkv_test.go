package memkv_test

import (
	"context"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/hviana/kvfs/kv"
	"github.com/hviana/kvfs/kv/kvtest"
	"github.com/hviana/kvfs/kv/memkv"
)

func TestStoreConformance(t *testing.T) {
	kvtest.RunSuite(t, func() kv.Store { return memkv.New() })
}

// TestRetryAroundFlakySet applies the backoff-wrapped retry pattern the
// engine uses around substrate scans (KvPager, the recovery sweep) to a
// Set: a Set that fails transiently should eventually succeed without the
// caller seeing an error.
func TestRetryAroundFlakySet(t *testing.T) {
	store := kvtest.NewFlaky(memkv.New(), 1)
	store.FailSet = 0.6

	ctx := context.Background()
	key := kv.Key{}.String("files").String("a.txt")

	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 50)
	err := backoff.Retry(func() error {
		return store.Set(ctx, key, []byte("hello"))
	}, b)
	if err != nil {
		t.Fatalf("Retry gave up: %v", err)
	}

	got, err := store.Store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("Get: want %q, got %q", "hello", got)
	}
}
