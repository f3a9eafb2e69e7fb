package kvfs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/hviana/kvfs/internal/debug"
	"github.com/hviana/kvfs/internal/errors"
	"github.com/hviana/kvfs/kv"
)

// unresolvedMarker is the persisted value at ("unresolved", uri): enough of
// the originating options to resume a delete, with the stream and
// callback elided (spec §3).
type unresolvedMarker struct {
	Path            []string `json:"path"`
	ClientID        string   `json:"clientId"`
	ChunksPerSecond int      `json:"chunksPerSecond"`
}

func (e *Engine) writeUnresolvedMarker(ctx context.Context, uri string, m unresolvedMarker) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "encode unresolved marker")
	}
	return errors.Wrap(e.store.Set(ctx, unresolvedKey(uri), raw), "write unresolved marker")
}

func (e *Engine) deleteUnresolvedMarker(ctx context.Context, uri string) error {
	return errors.Wrap(e.store.Delete(ctx, unresolvedKey(uri)), "delete unresolved marker")
}

func decodeMarker(raw []byte, m *unresolvedMarker) error {
	return json.Unmarshal(raw, m)
}

// Save writes opts.Content to opts.Path as a sequence of fixed-size chunks
// and, on success, a file record. It never returns a Go error for expected
// failure modes (forbidden access, bad extension, oversized metadata,
// concurrency cap, substrate errors mid-write); those surface as the
// returned FileStatus with Status == StatusError. A zero-value FileStatus
// (Status == "") means rec is the successful result, per spec §7's "do
// not raise" propagation policy.
func (e *Engine) Save(ctx context.Context, opts SaveOptions) (FileRecord, FileStatus) {
	uri := EncodePath(opts.Path)

	if progress, status, ok := e.inflight.Status(uri); ok {
		fs := FileStatus{URIComponent: uri, Path: opts.Path, Progress: progress, Status: status}
		e.emit(fs)
		return FileRecord{}, fs
	}

	if err := checkMetadataSize(opts.Metadata); err != nil {
		return FileRecord{}, e.errorStatus(uri, opts.Path, "Metadata exceeds 60KB limit")
	}

	if !validate(opts.Validate, opts.Path) {
		return FileRecord{}, e.errorStatus(uri, opts.Path, "Forbidden")
	}

	if !extensionAllowed(opts.Path, opts.AllowedExtensions) {
		return FileRecord{}, e.errorStatus(uri, opts.Path, "Extension not allowed")
	}

	started, clientCount := e.inflight.StartSaving(uri, opts.ClientID)
	if !started {
		progress, status, _ := e.inflight.Status(uri)
		fs := FileStatus{URIComponent: uri, Path: opts.Path, Progress: progress, Status: status}
		e.emit(fs)
		return FileRecord{}, fs
	}
	if opts.MaxClientConcurrentReqs > 0 && clientCount > opts.MaxClientConcurrentReqs {
		e.inflight.EndSaving(uri, opts.ClientID)
		return FileRecord{}, e.errorStatus(uri, opts.Path, concurrencyCapMsg(opts.MaxClientConcurrentReqs))
	}

	if err := e.writeUnresolvedMarker(ctx, uri, unresolvedMarker{
		Path:            opts.Path,
		ClientID:        opts.ClientID,
		ChunksPerSecond: opts.ChunksPerSecond,
	}); err != nil {
		e.inflight.EndSaving(uri, opts.ClientID)
		return FileRecord{}, e.errorStatus(uri, opts.Path, err.Error())
	}

	size, flags, err := e.saveContent(ctx, uri, opts)
	if err != nil {
		e.inflight.EndSaving(uri, opts.ClientID)
		go e.compensatingDelete(opts)
		return FileRecord{}, e.errorStatus(uri, opts.Path, err.Error())
	}

	rec := FileRecord{
		Path:         opts.Path,
		Size:         size,
		Flags:        flags,
		Metadata:     opts.Metadata,
		URIComponent: uri,
	}
	if err := e.putRecord(ctx, rec); err != nil {
		e.inflight.EndSaving(uri, opts.ClientID)
		go e.compensatingDelete(opts)
		return FileRecord{}, e.errorStatus(uri, opts.Path, err.Error())
	}

	e.inflight.EndSaving(uri, opts.ClientID)
	if err := e.deleteUnresolvedMarker(ctx, uri); err != nil {
		debug.Log("save(%s): failed to clear unresolved marker: %v", uri, err)
	}

	if hasFlag(flags, FlagIncomplete) {
		e.emit(FileStatus{URIComponent: uri, Path: opts.Path, Progress: size, Status: StatusError, Msg: incompleteMsg(opts.MaxFileSizeBytes)})
	} else {
		e.emit(FileStatus{URIComponent: uri, Path: opts.Path, Progress: size, Status: StatusSaving})
	}

	return rec, FileStatus{}
}

// compensatingDelete cleans up a save's chunks after a mid-write failure.
// It leaves the unresolved marker in place if the delete itself fails, so
// the recovery sweeper retries it on the next process start (spec §7).
func (e *Engine) compensatingDelete(opts SaveOptions) {
	e.Delete(context.Background(), DeleteOptions{
		Path:            opts.Path,
		ClientID:        opts.ClientID,
		ChunksPerSecond: opts.ChunksPerSecond,
	})
}

func (e *Engine) errorStatus(uri string, path []string, msg string) FileStatus {
	fs := FileStatus{URIComponent: uri, Path: path, Status: StatusError, Msg: msg}
	e.emit(fs)
	return fs
}

func concurrencyCapMsg(max int) string {
	return fmt.Sprintf("You can only make a maximum of %d concurrent requests", max)
}

func incompleteMsg(maxSize int64) string {
	return fmt.Sprintf("file exceeded maxFileSizeBytes=%d and was truncated", maxSize)
}

// saveContent streams opts.Content through the chunker, writing each chunk
// and retracting any stale tail left by a previous, longer save at the
// same uri.
func (e *Engine) saveContent(ctx context.Context, uri string, opts SaveOptions) (size int64, flags []FileFlag, err error) {
	rl := NewRateLimiter(opts.ChunksPerSecond)
	reader := chunkReaderFromContent(opts.Content)
	cr := NewChunkReader(reader)

	var index int64 = 1
	var sizeBytes int64
	incomplete := false

	for {
		if opts.MaxFileSizeBytes > 0 && sizeBytes > opts.MaxFileSizeBytes {
			incomplete = true
			break
		}

		chunk, rerr := cr.Next()
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return 0, nil, errors.Wrap(rerr, "read content")
		}

		if err := e.store.Set(ctx, chunkKey(uri, index), append([]byte(nil), chunk...)); err != nil {
			return 0, nil, errors.Wrap(err, "write chunk")
		}

		sizeBytes += int64(len(chunk))
		index++
		e.inflight.SetSavingProgress(uri, sizeBytes)

		pulse, terr := rl.Tick(ctx)
		if terr != nil {
			return 0, nil, errors.Wrap(terr, "rate limit")
		}
		if pulse {
			e.emit(FileStatus{URIComponent: uri, Path: opts.Path, Progress: sizeBytes, Status: StatusSaving})
		}
	}

	if err := e.retract(ctx, uri, opts.Path, index, rl); err != nil {
		return 0, nil, err
	}

	var flagList []FileFlag
	if incomplete {
		flagList = append(flagList, FlagIncomplete)
	}
	return sizeBytes, flagList, nil
}

// retract deletes any chunk at index >= fromIndex left over from a
// previous, longer save at the same uri (spec §4.6, Invariant 2).
func (e *Engine) retract(ctx context.Context, uri string, path []string, fromIndex int64, rl *RateLimiter) error {
	start, end := chunksFromKey(uri, fromIndex)
	pager := NewKvPager(e.store, kv.ListParams{Start: start, End: end}, DefaultPageSize)

	var deleted int64
	for {
		entry, ok, err := pager.Next(ctx)
		if err != nil {
			return errors.Wrap(err, "scan stale chunks")
		}
		if !ok {
			break
		}
		if err := e.store.Delete(ctx, entry.Key); err != nil {
			return errors.Wrap(err, "delete stale chunk")
		}
		deleted += int64(len(entry.Value))

		pulse, terr := rl.Tick(ctx)
		if terr != nil {
			return errors.Wrap(terr, "rate limit")
		}
		if pulse {
			e.emit(FileStatus{URIComponent: uri, Path: path, Progress: deleted, Status: StatusSaving, Msg: "Deleting previous data, " + strconv.FormatInt(deleted, 10) + " bytes deleted."})
		}
	}
	return nil
}
