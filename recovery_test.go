package kvfs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/hviana/kvfs/kv"
	"github.com/hviana/kvfs/kv/memkv"
)

// TestRecoverySweeperResolvesOrphanedMarker simulates a crash mid-save: a
// chunk and an unresolved marker exist but no file record does. A fresh
// Engine over the same store must sweep the marker away and delete the
// orphaned chunk, without anyone calling Delete directly.
func TestRecoverySweeperResolvesOrphanedMarker(t *testing.T) {
	ctx := context.Background()
	store := memkv.New()

	path := []string{"crashed.bin"}
	uri := EncodePath(path)

	raw, err := json.Marshal(unresolvedMarker{Path: path})
	if err != nil {
		t.Fatalf("marshal marker: %v", err)
	}
	if err := store.Set(ctx, unresolvedKey(uri), raw); err != nil {
		t.Fatalf("seed marker: %v", err)
	}
	if err := store.Set(ctx, chunkKey(uri, 1), []byte("orphan")); err != nil {
		t.Fatalf("seed chunk: %v", err)
	}

	New(store)

	deadline := time.Now().Add(2 * time.Second)
	for {
		_, markerErr := store.Get(ctx, unresolvedKey(uri))
		_, chunkErr := store.Get(ctx, chunkKey(uri, 1))
		if markerErr == kv.ErrNotFound && chunkErr == kv.ErrNotFound {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("sweep did not resolve marker/chunk in time: markerErr=%v chunkErr=%v", markerErr, chunkErr)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// failAfterN fails exactly the nth Set call, then resumes working normally,
// simulating a substrate that drops a single write mid-sequence rather than
// dying outright.
type failAfterN struct {
	kv.Store
	n     int
	count int
}

func (f *failAfterN) Set(ctx context.Context, key kv.Key, value []byte) error {
	f.count++
	if f.count == f.n {
		return errInducedWrite
	}
	return f.Store.Set(ctx, key, value)
}

type inducedWriteError struct{}

func (inducedWriteError) Error() string { return "failAfterN: induced write failure" }

var errInducedWrite error = inducedWriteError{}

// TestSaveFailureCompensatingDeleteClearsOrphanedChunk forces the second
// chunk write of a three-chunk save to fail, then asserts the resulting
// background compensating delete removes the one chunk that was already
// written and the unresolved marker, leaving no trace of the failed save.
func TestSaveFailureCompensatingDeleteClearsOrphanedChunk(t *testing.T) {
	ctx := context.Background()
	store := &failAfterN{Store: memkv.New(), n: 3} // 1: marker write, 2: chunk 1, 3: chunk 2 (fails)
	e := New(store)
	path := []string{"doomed.bin"}
	uri := EncodePath(path)

	content := make([]byte, 3*ChunkSize)
	_, status := e.Save(ctx, SaveOptions{Path: path, Content: BytesContent(content)})
	if status.Status != StatusError {
		t.Fatalf("Save: want error status, got %+v", status)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		entries, _, _, err := store.List(ctx, kv.ListParams{Prefix: chunksPrefixKey(uri)})
		if err != nil {
			t.Fatalf("List chunks: %v", err)
		}
		_, markerErr := store.Get(ctx, unresolvedKey(uri))
		if len(entries) == 0 && markerErr == kv.ErrNotFound {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("compensating delete left chunks=%d markerErr=%v", len(entries), markerErr)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
