package kvfs

import (
	"context"
	"io"

	"github.com/hviana/kvfs/internal/errors"
	"github.com/hviana/kvfs/kv"
)

// ContentReader is the pull-driven byte stream Read attaches to a
// FileRecord: each Read call walks the next chunk(s) via a KvPager,
// rate-limited and accounted against the client's concurrency slot. The
// slot is released when the stream reaches its end or fails; a reader
// abandoned before then must be closed to release it.
type ContentReader struct {
	engine   *Engine
	uri      string
	clientID string
	maxConc  int

	pager   *KvPager
	rl      *RateLimiter
	pending []byte
	started bool
	closed  bool
	err     error
}

func (r *ContentReader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}

	if !r.started {
		r.started = true
		count := r.engine.inflight.IncrClient(r.clientID)
		if r.maxConc > 0 && count > r.maxConc {
			r.engine.inflight.DecrClient(r.clientID)
			r.err = errors.Errorf(concurrencyCapMsg(r.maxConc))
			return 0, r.err
		}
	}

	for len(r.pending) == 0 {
		entry, ok, err := r.pager.Next(context.Background())
		if err != nil {
			r.fail(err)
			return 0, r.err
		}
		if !ok {
			r.engine.inflight.DecrClient(r.clientID)
			r.err = io.EOF
			return 0, io.EOF
		}
		r.pending = entry.Value

		pulse, terr := r.rl.Tick(context.Background())
		if terr != nil {
			r.fail(terr)
			return 0, r.err
		}
		_ = pulse
	}

	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

// Close releases the reader's client concurrency slot if it still holds
// one; a stream that already reached its end or failed has released it.
// Safe to call more than once.
func (r *ContentReader) Close() error {
	if r.started && !r.closed && r.err == nil {
		r.engine.inflight.DecrClient(r.clientID)
	}
	r.closed = true
	return nil
}

func (r *ContentReader) fail(err error) {
	r.err = errors.Wrap(err, "read chunk")
	r.engine.inflight.DecrClient(r.clientID)
}

// Read returns the file record at opts.Path with a lazily-pulled content
// stream attached, or a FileStatus if the path is currently saving or
// deleting, or (nil, nil, FileStatus{}) if no such file exists.
func (e *Engine) Read(ctx context.Context, opts ReadOptions) (*FileRecord, *ContentReader, FileStatus) {
	uri := EncodePath(opts.Path)

	if progress, status, ok := e.inflight.Status(uri); ok {
		fs := FileStatus{URIComponent: uri, Path: opts.Path, Progress: progress, Status: status}
		e.emit(fs)
		return nil, nil, fs
	}

	if !validate(opts.Validate, opts.Path) {
		return nil, nil, e.errorStatus(uri, opts.Path, "Forbidden")
	}

	rec, ok, err := e.getRecord(ctx, opts.Path)
	if err != nil {
		return nil, nil, e.errorStatus(uri, opts.Path, err.Error())
	}
	if !ok {
		return nil, nil, FileStatus{}
	}

	reader := &ContentReader{
		engine:   e,
		uri:      uri,
		clientID: opts.ClientID,
		maxConc:  opts.MaxClientConcurrentReqs,
		pager:    NewKvPager(e.store, kv.ListParams{Prefix: chunksPrefixKey(uri)}, DefaultPageSize),
		rl:       NewRateLimiter(opts.ChunksPerSecond),
	}

	return &rec, reader, FileStatus{}
}
