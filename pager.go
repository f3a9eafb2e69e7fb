package kvfs

import (
	"context"

	"github.com/cenkalti/backoff/v4"

	"github.com/hviana/kvfs/internal/debug"
	"github.com/hviana/kvfs/kv"
)

// DefaultPageSize is the scan batch size used throughout the engine
// (spec's "page size", §GLOSSARY).
const DefaultPageSize = 1000

// KvPager walks a prefix or range scan one entry at a time, transparently
// re-issuing List calls with the substrate's resumption cursor whenever a
// page comes back short of a full page without the range being exhausted.
// Each List call is retried with a backoff, the way the teacher's retry
// backend wraps individual substrate operations.
type KvPager struct {
	store    kv.Store
	base     kv.ListParams
	pageSize int

	buf    []kv.Entry
	bufPos int
	cursor kv.Cursor
	done   bool
}

// NewKvPager starts a pager over params (Prefix, or Start/End). pageSize <=
// 0 uses DefaultPageSize.
func NewKvPager(store kv.Store, params kv.ListParams, pageSize int) *KvPager {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	base := params
	base.Cursor = nil
	base.Limit = 0
	return &KvPager{store: store, base: base, pageSize: pageSize, cursor: params.Cursor}
}

// Next returns the next entry, or ok=false once the range is exhausted.
func (p *KvPager) Next(ctx context.Context) (entry kv.Entry, ok bool, err error) {
	for p.bufPos >= len(p.buf) {
		if p.done {
			return kv.Entry{}, false, nil
		}
		if err := p.fillPage(ctx); err != nil {
			return kv.Entry{}, false, err
		}
		if len(p.buf) == 0 && p.done {
			return kv.Entry{}, false, nil
		}
	}

	e := p.buf[p.bufPos]
	p.bufPos++
	return e, true, nil
}

// Cursor returns an opaque token for the substrate's current scan
// position, suitable for resuming a later pager at the same point (backs
// the external pagination Cursor in ReadDirOptions). Callers take this at
// page boundaries, where p.buf is fully drained and it points exactly
// after the last entry returned.
func (p *KvPager) Cursor() kv.Cursor {
	return p.cursor
}

// fillPage tops up p.buf by one full page, chaining continuation scans
// when an individual List call returns fewer than pageSize entries but
// reports more remain.
func (p *KvPager) fillPage(ctx context.Context) error {
	p.buf = p.buf[:0]
	p.bufPos = 0

	for len(p.buf) < p.pageSize {
		params := p.base
		params.Limit = p.pageSize - len(p.buf)
		params.Cursor = p.cursor

		entries, next, hasMore, err := p.listWithRetry(ctx, params)
		if err != nil {
			return err
		}

		p.buf = append(p.buf, entries...)
		p.cursor = next

		if !hasMore {
			p.done = true
			return nil
		}
		if len(entries) == 0 {
			// defensive: avoid spinning forever if a substrate reports
			// hasMore with an empty page and an unchanged cursor.
			p.done = true
			return nil
		}
	}
	return nil
}

func (p *KvPager) listWithRetry(ctx context.Context, params kv.ListParams) ([]kv.Entry, kv.Cursor, bool, error) {
	var entries []kv.Entry
	var next kv.Cursor
	var hasMore bool

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		var err error
		entries, next, hasMore, err = p.store.List(ctx, params)
		if err != nil {
			debug.Log("pager: List attempt %d failed: %v", attempt, err)
		}
		return err
	}, b)
	if err != nil {
		return nil, nil, false, err
	}
	return entries, next, hasMore, nil
}
