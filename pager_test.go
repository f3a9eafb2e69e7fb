package kvfs_test

import (
	"context"
	"testing"

	"github.com/hviana/kvfs"
	"github.com/hviana/kvfs/kv"
	"github.com/hviana/kvfs/kv/memkv"
)

func TestKvPagerWalksFullRange(t *testing.T) {
	store := memkv.New()
	ctx := context.Background()
	const n = 37
	for i := int64(0); i < n; i++ {
		key := kv.Key{}.String("chunks").Int(i)
		if err := store.Set(ctx, key, []byte{byte(i)}); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}

	pager := kvfs.NewKvPager(store, kv.ListParams{Prefix: kv.Key{}.String("chunks")}, 10)
	var got []int64
	for {
		entry, ok, err := pager.Next(ctx)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, entry.Key[len(entry.Key)-1].(int64))
	}

	if len(got) != n {
		t.Fatalf("walked %d entries, want %d", len(got), n)
	}
	for i, v := range got {
		if v != int64(i) {
			t.Fatalf("order broken at %d: got %d", i, v)
		}
	}
}

func TestKvPagerEmptyRange(t *testing.T) {
	store := memkv.New()
	pager := kvfs.NewKvPager(store, kv.ListParams{Prefix: kv.Key{}.String("nothing")}, 10)
	_, ok, err := pager.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if ok {
		t.Fatalf("expected no entries from an empty range")
	}
}
