package kvfs

import (
	"context"

	"github.com/hviana/kvfs/internal/errors"
	"github.com/hviana/kvfs/kv"
)

// Delete removes opts.Path's file record and all of its chunks. It is
// idempotent: deleting an absent path succeeds with no progress reported
// beyond zero.
func (e *Engine) Delete(ctx context.Context, opts DeleteOptions) FileStatus {
	uri := EncodePath(opts.Path)

	if progress, status, ok := e.inflight.Status(uri); ok {
		fs := FileStatus{URIComponent: uri, Path: opts.Path, Progress: progress, Status: status}
		e.emit(fs)
		return fs
	}

	if !validate(opts.Validate, opts.Path) {
		return e.errorStatus(uri, opts.Path, "Forbidden")
	}

	started, clientCount := e.inflight.StartDeleting(uri, opts.ClientID)
	if !started {
		progress, status, _ := e.inflight.Status(uri)
		fs := FileStatus{URIComponent: uri, Path: opts.Path, Progress: progress, Status: status}
		e.emit(fs)
		return fs
	}
	if opts.MaxClientConcurrentReqs > 0 && clientCount > opts.MaxClientConcurrentReqs {
		e.inflight.EndDeleting(uri, opts.ClientID)
		return e.errorStatus(uri, opts.Path, concurrencyCapMsg(opts.MaxClientConcurrentReqs))
	}

	if err := e.writeUnresolvedMarker(ctx, uri, unresolvedMarker{
		Path:            opts.Path,
		ClientID:        opts.ClientID,
		ChunksPerSecond: opts.ChunksPerSecond,
	}); err != nil {
		e.inflight.EndDeleting(uri, opts.ClientID)
		return e.errorStatus(uri, opts.Path, err.Error())
	}

	if err := e.deleteRecord(ctx, opts.Path); err != nil {
		e.inflight.EndDeleting(uri, opts.ClientID)
		return e.errorStatus(uri, opts.Path, err.Error())
	}

	if err := e.deleteChunks(ctx, uri, opts); err != nil {
		e.inflight.EndDeleting(uri, opts.ClientID)
		return e.errorStatus(uri, opts.Path, err.Error())
	}

	e.inflight.EndDeleting(uri, opts.ClientID)
	if err := e.deleteUnresolvedMarker(ctx, uri); err != nil {
		return e.errorStatus(uri, opts.Path, err.Error())
	}

	return FileStatus{}
}

func (e *Engine) deleteChunks(ctx context.Context, uri string, opts DeleteOptions) error {
	rl := NewRateLimiter(opts.ChunksPerSecond)
	pager := NewKvPager(e.store, kv.ListParams{Prefix: chunksPrefixKey(uri)}, DefaultPageSize)

	var deleted int64
	for {
		entry, ok, err := pager.Next(ctx)
		if err != nil {
			return errors.Wrap(err, "scan chunks")
		}
		if !ok {
			break
		}
		if err := e.store.Delete(ctx, entry.Key); err != nil {
			return errors.Wrap(err, "delete chunk")
		}
		deleted += int64(len(entry.Value))
		e.inflight.SetDeletingProgress(uri, deleted)

		pulse, terr := rl.Tick(ctx)
		if terr != nil {
			return errors.Wrap(terr, "rate limit")
		}
		if pulse {
			e.emit(FileStatus{URIComponent: uri, Path: opts.Path, Progress: deleted, Status: StatusDeleting})
		}
	}
	return nil
}

// DeleteDir deletes every file under opts.Path's prefix, one Delete call
// per entry, respecting MaxDirEntriesPerSecond. It does not recurse into a
// separate tree structure; the flat key prefix already enumerates every
// descendant.
func (e *Engine) DeleteDir(ctx context.Context, opts DeleteDirOptions) []FileStatus {
	pager := NewKvPager(e.store, kv.ListParams{Prefix: filesPrefixKey(opts.Path)}, DefaultPageSize)
	rl := NewRateLimiter(opts.MaxDirEntriesPerSecond)

	var statuses []FileStatus
	for {
		entry, ok, err := pager.Next(ctx)
		if err != nil {
			statuses = append(statuses, e.errorStatus("", opts.Path, err.Error()))
			break
		}
		if !ok {
			break
		}

		rec, decodeErr := decodeFileRecord(entry.Value)
		if decodeErr != nil {
			continue
		}

		status := e.Delete(ctx, DeleteOptions{
			Path:                    rec.Path,
			ChunksPerSecond:         opts.ChunksPerSecond,
			ClientID:                opts.ClientID,
			Validate:                opts.Validate,
			MaxClientConcurrentReqs: opts.MaxClientConcurrentReqs,
		})
		statuses = append(statuses, status)

		if _, err := rl.Tick(ctx); err != nil {
			break
		}
	}
	return statuses
}

// DirEntry is one listed entry from ReadDir: either a file with a content
// stream attached, or the FileStatus of a file currently saving/deleting.
type DirEntry struct {
	Record *FileRecord
	Reader *ContentReader
	Status FileStatus
}

// DirList is ReadDir's result: the entries found on this page, the total
// size accounted for (saved sizes plus in-progress save progress, per
// spec §9 open question 4), and a resumption cursor when Pagination was
// requested and the page filled.
type DirList struct {
	Entries []DirEntry
	Size    int64
	Cursor  string
}

// ReadDir lists files under opts.Path, attaching a content stream to each
// settled file and a FileStatus to each in-flight one.
func (e *Engine) ReadDir(ctx context.Context, opts ReadDirOptions) (DirList, FileStatus) {
	if !validate(opts.Validate, opts.Path) {
		return DirList{}, e.errorStatus("", opts.Path, "Forbidden")
	}

	params := kv.ListParams{Prefix: filesPrefixKey(opts.Path)}
	if opts.Cursor != "" {
		params.Cursor = kv.Cursor(opts.Cursor)
	}
	pager := NewKvPager(e.store, params, DefaultPageSize)
	rl := NewRateLimiter(opts.MaxDirEntriesPerSecond)

	var out DirList
	count := 0
	for {
		entry, ok, err := pager.Next(ctx)
		if err != nil {
			return out, e.errorStatus("", opts.Path, err.Error())
		}
		if !ok {
			break
		}

		rec, decodeErr := decodeFileRecord(entry.Value)
		if decodeErr != nil {
			continue
		}

		uri := rec.URIComponent
		if progress, status, ok := e.inflight.Status(uri); ok {
			out.Entries = append(out.Entries, DirEntry{Status: FileStatus{
				URIComponent: uri, Path: rec.Path, Progress: progress, Status: status,
			}})
			if status == StatusSaving {
				out.Size += progress
			}
		} else {
			reader := &ContentReader{
				engine:   e,
				uri:      uri,
				clientID: opts.ClientID,
				maxConc:  opts.MaxClientConcurrentReqs,
				pager:    NewKvPager(e.store, kv.ListParams{Prefix: chunksPrefixKey(uri)}, DefaultPageSize),
				rl:       NewRateLimiter(opts.ChunksPerSecond),
			}
			recCopy := rec
			out.Entries = append(out.Entries, DirEntry{Record: &recCopy, Reader: reader})
			out.Size += rec.Size
		}

		count++
		if _, err := rl.Tick(ctx); err != nil {
			return out, e.errorStatus("", opts.Path, err.Error())
		}

		if opts.Pagination && count == DefaultPageSize {
			out.Cursor = string(pager.Cursor())
			break
		}
	}

	return out, FileStatus{}
}
