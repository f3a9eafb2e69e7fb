// Package kv describes the ordered key-value substrate that the kvfs
// storage engine is layered over. It is the external collaborator named in
// spec.md §1/§6: an atomic single-key put/get/delete store with
// prefix/range scans and an opaque resumption cursor. kvfs consumes Store;
// it does not implement a database.
package kv

import (
	"context"
	"fmt"
	"strings"

	"github.com/hviana/kvfs/internal/errors"
)

// Key is an ordered tuple of string or int components, lexicographically
// ordered component-by-component the way the substrate orders its keys.
// Use String and Int to build one.
type Key []any

// String appends a string component and returns the (mutated) key, for
// fluent construction: kv.Key{}.String("files").String("a").String("b").
func (k Key) String(s string) Key { return append(k, s) }

// Int appends an integer component.
func (k Key) Int(i int64) Key { return append(k, i) }

// Clone returns a copy of k, safe to mutate independently.
func (k Key) Clone() Key {
	out := make(Key, len(k))
	copy(out, k)
	return out
}

// sortKey renders a Key into a string whose byte-lexicographic order
// matches the tuple order the substrate contract requires: components
// compare in sequence; at a given depth an int component sorts before a
// string one (tag 'i' < 's'), which never matters in practice since kvfs
// never mixes types at a given tuple depth.
func (k Key) sortKey() string {
	var b strings.Builder
	for _, c := range k {
		b.WriteByte(0) // separator so no component can swallow part of the next
		switch v := c.(type) {
		case string:
			b.WriteByte('s')
			b.WriteString(v)
		case int64:
			b.WriteByte('i')
			b.WriteString(sortableInt(v))
		case int:
			b.WriteByte('i')
			b.WriteString(sortableInt(int64(v)))
		default:
			b.WriteByte('?')
		}
	}
	return b.String()
}

// sortableInt renders v as a fixed-width decimal string whose ordering
// matches int64 ordering: flipping the sign bit maps int64 onto uint64
// while preserving order, and a zero-padded 20-digit uint64 (its max width)
// then compares lexicographically the same way it compares numerically.
// Without this, chunk indices 9 and 10 would sort as "10" < "9".
func sortableInt(v int64) string {
	u := uint64(v) ^ (1 << 63)
	return fmt.Sprintf("%020d", u)
}

// SortKey exposes the byte-lexicographic rendering of k. Store
// implementations that delegate ordering to an external ordered structure
// (a B-tree, an LSM) use this as the comparable representation.
func (k Key) SortKey() string { return k.sortKey() }

// Entry is a single KV record returned from a scan or point read.
type Entry struct {
	Key   Key
	Value []byte
}

// Cursor is an opaque resumption token returned by List when a scan is cut
// short by Limit. A zero-value Cursor (nil) means "start of range" / "no
// more entries", the two cases List's caller distinguishes via the returned
// HasMore flag rather than by inspecting the cursor's contents.
type Cursor []byte

// ListParams selects a scan range: either Prefix (all keys beginning with
// Prefix) or an explicit [Start, End) half-open range. Exactly one of the
// two modes is used per call.
type ListParams struct {
	Prefix Key

	Start Key
	End   Key

	// Cursor resumes a previous List call that returned HasMore. When set,
	// it takes precedence over Start/Prefix for positioning, but End (or
	// the prefix bound) still applies.
	Cursor Cursor

	// Limit bounds how many entries a single List call returns. Zero means
	// the store's own default page size.
	Limit int
}

// ErrNotFound is returned by Get when no value exists for the key.
var ErrNotFound = errors.New("kv: key not found")

// Store is the substrate contract kvfs consumes. Implementations must
// provide atomic single-key operations and entries ordered
// component-by-component within Key tuples.
type Store interface {
	// Get returns the value at key, or ErrNotFound if absent.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Set writes value at key, replacing any existing value.
	Set(ctx context.Context, key Key, value []byte) error

	// Delete removes key. It does not fail if key is already absent.
	Delete(ctx context.Context, key Key) error

	// List returns entries in key order matching params, plus a cursor to
	// resume from and whether more entries remain beyond this page.
	List(ctx context.Context, params ListParams) (entries []Entry, next Cursor, hasMore bool, err error)

	// MaxValueSize is the hard per-value size ceiling the substrate
	// enforces (spec.md §6); Set must fail for larger values.
	MaxValueSize() int
}
