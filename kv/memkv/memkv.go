// Package memkv is an in-memory reference implementation of kv.Store,
// backed by an ordered B-tree so prefix and range scans return entries in
// the lexicographic order the substrate contract promises.
package memkv

import (
	"context"
	"encoding/base64"
	"strings"
	"sync"

	"github.com/google/btree"

	"github.com/hviana/kvfs/internal/debug"
	"github.com/hviana/kvfs/internal/errors"
	"github.com/hviana/kvfs/kv"
)

// DefaultMaxValueSize matches spec.md §6: at least 64KiB + overhead for
// chunk values.
const DefaultMaxValueSize = 1 << 20 // 1 MiB, generous headroom over the 64KiB chunk size

type item struct {
	sortKey string
	key     kv.Key
	value   []byte
}

func less(a, b item) bool { return a.sortKey < b.sortKey }

// Store is a mutex-guarded, B-tree-ordered map. It should only be used for
// tests and the in-memory kvfscli demonstration CLI, the same role the
// teacher's mem.MemoryBackend plays for restic.
type Store struct {
	mu           sync.Mutex
	tree         *btree.BTreeG[item]
	maxValueSize int
}

var _ kv.Store = (*Store)(nil)

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		tree:         btree.NewG(32, less),
		maxValueSize: DefaultMaxValueSize,
	}
}

func (s *Store) Get(_ context.Context, key kv.Key) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.tree.Get(item{sortKey: key.SortKey()})
	if !ok {
		return nil, kv.ErrNotFound
	}
	out := make([]byte, len(it.value))
	copy(out, it.value)
	return out, nil
}

func (s *Store) Set(_ context.Context, key kv.Key, value []byte) error {
	if len(value) > s.maxValueSize {
		return errors.Errorf("memkv: value of %d bytes exceeds max value size %d", len(value), s.maxValueSize)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, len(value))
	copy(buf, value)
	s.tree.ReplaceOrInsert(item{sortKey: key.SortKey(), key: key.Clone(), value: buf})
	debug.Log("memkv: set %v (%d bytes)", key, len(value))
	return nil
}

func (s *Store) Delete(_ context.Context, key kv.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tree.Delete(item{sortKey: key.SortKey()})
	return nil
}

// cursorFor encodes the resumption point as the sort key of the next entry
// to scan, so a subsequent List({Cursor: c}) can seek straight to it.
func cursorFor(sortKey string) kv.Cursor {
	return kv.Cursor(base64.RawURLEncoding.EncodeToString([]byte(sortKey)))
}

func decodeCursor(c kv.Cursor) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(string(c))
	if err != nil {
		return "", errors.Wrap(err, "memkv: invalid cursor")
	}
	return string(b), nil
}

func (s *Store) List(_ context.Context, params kv.ListParams) ([]kv.Entry, kv.Cursor, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lowerSort := ""
	upperSort := ""
	hasUpper := false

	switch {
	case params.Prefix != nil:
		// keys under the prefix tuple continue with another component, whose
		// rendering starts with the NUL separator; this keeps a sibling such
		// as ("a","bc") out of a scan of ("a","b")
		lowerSort = params.Prefix.SortKey() + "\x00"
		upperSort = prefixUpperBound(lowerSort)
		hasUpper = true
	default:
		if params.Start != nil {
			lowerSort = params.Start.SortKey()
		}
		if params.End != nil {
			upperSort = params.End.SortKey()
			hasUpper = true
		}
	}

	if params.Cursor != nil {
		resume, err := decodeCursor(params.Cursor)
		if err != nil {
			return nil, nil, false, err
		}
		if resume > lowerSort {
			lowerSort = resume
		}
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 1000
	}

	var entries []kv.Entry
	var next kv.Cursor
	hasMore := false

	visit := func(it item) bool {
		if hasUpper && it.sortKey >= upperSort {
			return false
		}
		if len(entries) == limit {
			next = cursorFor(it.sortKey)
			hasMore = true
			return false
		}
		entries = append(entries, kv.Entry{Key: it.key.Clone(), Value: append([]byte(nil), it.value...)})
		return true
	}

	s.tree.AscendGreaterOrEqual(item{sortKey: lowerSort}, visit)

	return entries, next, hasMore, nil
}

func (s *Store) MaxValueSize() int { return s.maxValueSize }

// prefixUpperBound returns the smallest sort key that is NOT prefixed by p,
// by bumping the last byte. Works because sortKey renders components with
// a NUL separator and ASCII tags, so no valid sort key ends in 0xFF.
func prefixUpperBound(p string) string {
	b := []byte(p)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] != 0xFF {
			b[i]++
			return string(b[:i+1])
		}
	}
	return strings.Repeat(string(rune(0xFF)), len(b)+1)
}
