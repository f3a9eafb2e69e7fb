// Package kvtest provides a conformance test suite that any kv.Store
// implementation should pass, plus a fault-injecting wrapper for exercising
// the engine's crash-recovery paths.
package kvtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/hviana/kvfs/kv"
)

// RunSuite runs the full conformance suite against a fresh store returned by
// newStore for each top-level subtest. Implementations of kv.Store should
// call this from their own package's tests, the way restic's backend
// implementations each embed test.Suite.
func RunSuite(t *testing.T, newStore func() kv.Store) {
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, newStore()) })
	t.Run("SetThenGet", func(t *testing.T) { testSetThenGet(t, newStore()) })
	t.Run("Overwrite", func(t *testing.T) { testOverwrite(t, newStore()) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newStore()) })
	t.Run("DeleteMissingIsNoop", func(t *testing.T) { testDeleteMissingIsNoop(t, newStore()) })
	t.Run("PrefixOrder", func(t *testing.T) { testPrefixOrder(t, newStore()) })
	t.Run("IntKeyOrder", func(t *testing.T) { testIntKeyOrder(t, newStore()) })
	t.Run("RangeBounds", func(t *testing.T) { testRangeBounds(t, newStore()) })
	t.Run("Pagination", func(t *testing.T) { testPagination(t, newStore()) })
	t.Run("MaxValueSize", func(t *testing.T) { testMaxValueSize(t, newStore()) })
}

func testGetMissing(t *testing.T, s kv.Store) {
	ctx := context.Background()
	_, err := s.Get(ctx, kv.Key{}.String("nope"))
	if err != kv.ErrNotFound {
		t.Fatalf("Get of missing key: want ErrNotFound, got %v", err)
	}
}

func testSetThenGet(t *testing.T, s kv.Store) {
	ctx := context.Background()
	key := kv.Key{}.String("files").String("a.txt")
	if err := s.Set(ctx, key, []byte("hello")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("Get: want %q, got %q", "hello", got)
	}
}

func testOverwrite(t *testing.T, s kv.Store) {
	ctx := context.Background()
	key := kv.Key{}.String("files").String("a.txt")
	if err := s.Set(ctx, key, []byte("v1")); err != nil {
		t.Fatalf("Set v1: %v", err)
	}
	if err := s.Set(ctx, key, []byte("v2")); err != nil {
		t.Fatalf("Set v2: %v", err)
	}
	got, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "v2" {
		t.Fatalf("Get after overwrite: want %q, got %q", "v2", got)
	}
}

func testDelete(t *testing.T, s kv.Store) {
	ctx := context.Background()
	key := kv.Key{}.String("files").String("a.txt")
	if err := s.Set(ctx, key, []byte("v1")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, key); err != kv.ErrNotFound {
		t.Fatalf("Get after Delete: want ErrNotFound, got %v", err)
	}
}

func testDeleteMissingIsNoop(t *testing.T, s kv.Store) {
	ctx := context.Background()
	if err := s.Delete(ctx, kv.Key{}.String("never-existed")); err != nil {
		t.Fatalf("Delete of missing key must not error, got %v", err)
	}
}

func testPrefixOrder(t *testing.T, s kv.Store) {
	ctx := context.Background()
	names := []string{"b", "a", "c"}
	for _, n := range names {
		key := kv.Key{}.String("files").String(n)
		if err := s.Set(ctx, key, []byte(n)); err != nil {
			t.Fatalf("Set %q: %v", n, err)
		}
	}

	entries, _, hasMore, err := s.List(ctx, kv.ListParams{Prefix: kv.Key{}.String("files")})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if hasMore {
		t.Fatalf("List: unexpected HasMore with only 3 entries")
	}
	if len(entries) != 3 {
		t.Fatalf("List: want 3 entries, got %d", len(entries))
	}
	want := []string{"a", "b", "c"}
	for i, e := range entries {
		got := e.Key[len(e.Key)-1].(string)
		if got != want[i] {
			t.Fatalf("List order: position %d want %q, got %q", i, want[i], got)
		}
	}
}

func testIntKeyOrder(t *testing.T, s kv.Store) {
	ctx := context.Background()
	// 9 before 10 numerically; a naive string sort would put "10" first.
	for _, i := range []int64{10, 2, 9, 1} {
		key := kv.Key{}.String("chunks").Int(i)
		if err := s.Set(ctx, key, []byte(fmt.Sprintf("chunk-%d", i))); err != nil {
			t.Fatalf("Set chunk %d: %v", i, err)
		}
	}

	entries, _, _, err := s.List(ctx, kv.ListParams{Prefix: kv.Key{}.String("chunks")})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []int64{1, 2, 9, 10}
	if len(entries) != len(want) {
		t.Fatalf("List: want %d entries, got %d", len(want), len(entries))
	}
	for i, e := range entries {
		got := e.Key[len(e.Key)-1]
		n, ok := got.(int64)
		if !ok {
			t.Fatalf("List: position %d key component is %T, want int64", i, got)
		}
		if n != want[i] {
			t.Fatalf("List order: position %d want %d, got %d", i, want[i], n)
		}
	}
}

func testRangeBounds(t *testing.T, s kv.Store) {
	ctx := context.Background()
	for _, i := range []int64{1, 2, 3, 4, 5} {
		key := kv.Key{}.String("chunks").Int(i)
		if err := s.Set(ctx, key, []byte{byte(i)}); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}

	entries, _, _, err := s.List(ctx, kv.ListParams{
		Start: kv.Key{}.String("chunks").Int(2),
		End:   kv.Key{}.String("chunks").Int(4),
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	// half-open [2, 4): indices 2 and 3.
	if len(entries) != 2 {
		t.Fatalf("List range: want 2 entries, got %d", len(entries))
	}
	if entries[0].Key[len(entries[0].Key)-1].(int64) != 2 || entries[1].Key[len(entries[1].Key)-1].(int64) != 3 {
		t.Fatalf("List range: unexpected entries %+v", entries)
	}
}

func testPagination(t *testing.T, s kv.Store) {
	ctx := context.Background()
	const total = 25
	for i := int64(0); i < total; i++ {
		key := kv.Key{}.String("chunks").Int(i)
		if err := s.Set(ctx, key, []byte{byte(i)}); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}

	var seen []int64
	params := kv.ListParams{Prefix: kv.Key{}.String("chunks"), Limit: 7}
	for {
		entries, next, hasMore, err := s.List(ctx, params)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		for _, e := range entries {
			seen = append(seen, e.Key[len(e.Key)-1].(int64))
		}
		if !hasMore {
			break
		}
		params.Cursor = next
	}

	if len(seen) != total {
		t.Fatalf("paginated scan: want %d entries, got %d", total, len(seen))
	}
	for i, n := range seen {
		if n != int64(i) {
			t.Fatalf("paginated scan order: position %d want %d, got %d", i, i, n)
		}
	}
}

func testMaxValueSize(t *testing.T, s kv.Store) {
	ctx := context.Background()
	max := s.MaxValueSize()
	if max <= 0 {
		t.Fatalf("MaxValueSize: want positive, got %d", max)
	}
	tooBig := make([]byte, max+1)
	if err := s.Set(ctx, kv.Key{}.String("too-big"), tooBig); err == nil {
		t.Fatalf("Set: want error for value exceeding MaxValueSize, got nil")
	}
}
