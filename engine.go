// Package kvfs implements a chunked file store layered over an ordered
// key-value substrate (kv.Store): paths are mapped to URI components,
// content is split into fixed-size chunks and written as independent KV
// entries, and directory listing or deletion is a prefix scan over that
// flat namespace. See Engine for the externally visible operations.
package kvfs

import (
	"context"
	"encoding/json"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hviana/kvfs/internal/debug"
	"github.com/hviana/kvfs/internal/errors"
	"github.com/hviana/kvfs/kv"
)

// recordCacheSize bounds the engine's in-memory file-record cache. Chunk
// content is never cached; only the small record (path, size, flags,
// metadata) is, since repeated reads and metadata lookups of the same file
// otherwise re-fetch it from the substrate on every call. ReadDir does not
// use it: it decodes records straight from its scan.
const recordCacheSize = 4096

// Engine orchestrates save/read/delete/readDir/deleteDir over a kv.Store,
// plus metadata access and progress reporting. The zero value is not
// usable; construct with New.
type Engine struct {
	store    kv.Store
	inflight *InFlightRegistry
	cache    *lru.Cache[string, FileRecord]

	// OnFileProgress, if set, receives a FileStatus snapshot on every
	// rate-limit pulse of a save, delete or retraction, on a save's
	// completion, on every error status, and whenever an operation
	// short-circuits on an in-flight URI. Read streams and directory scans
	// emit nothing on their pulses, and a successful Delete emits nothing.
	OnFileProgress ProgressSink
}

// New constructs an Engine over store and immediately starts a
// RecoverySweeper to clean up any unresolved operations left by a prior
// crash. The sweeper runs in the background; New does not wait for it.
func New(store kv.Store) *Engine {
	cache, err := lru.New[string, FileRecord](recordCacheSize)
	if err != nil {
		// only fails for a non-positive size, which recordCacheSize never is
		panic(err)
	}

	e := &Engine{
		store:    store,
		inflight: NewInFlightRegistry(),
		cache:    cache,
	}

	NewRecoverySweeper(e).Start()

	return e
}

// PathToURIComponent exposes the codec's encode direction.
func (e *Engine) PathToURIComponent(path []string) string { return EncodePath(path) }

// URIComponentToPath exposes the codec's decode direction.
func (e *Engine) URIComponentToPath(uri string) ([]string, error) { return DecodePath(uri) }

// GetClientReqs returns the number of in-flight saves, deletes, and active
// read streams currently holding a slot for clientID.
func (e *Engine) GetClientReqs(clientID string) int {
	return e.inflight.ClientReqs(clientID)
}

// GetAllFilesStatuses returns a snapshot of every URI currently saving or
// deleting.
func (e *Engine) GetAllFilesStatuses() map[string]FileStatus {
	return e.inflight.AllStatuses()
}

func (e *Engine) emit(status FileStatus) {
	e.OnFileProgress.emit(status)
}

func (e *Engine) getRecord(ctx context.Context, path []string) (FileRecord, bool, error) {
	uri := EncodePath(path)
	if rec, ok := e.cache.Get(uri); ok {
		return rec, true, nil
	}

	raw, err := e.store.Get(ctx, filesKey(path))
	if err == kv.ErrNotFound {
		return FileRecord{}, false, nil
	}
	if err != nil {
		return FileRecord{}, false, errors.Wrap(err, "get file record")
	}

	var rec FileRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return FileRecord{}, false, errors.Wrap(err, "decode file record")
	}
	e.cache.Add(uri, rec)
	return rec, true, nil
}

func (e *Engine) putRecord(ctx context.Context, rec FileRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "encode file record")
	}
	if err := e.store.Set(ctx, filesKey(rec.Path), raw); err != nil {
		return errors.Wrap(err, "put file record")
	}
	e.cache.Add(rec.URIComponent, rec)
	return nil
}

func (e *Engine) deleteRecord(ctx context.Context, path []string) error {
	uri := EncodePath(path)
	if err := e.store.Delete(ctx, filesKey(path)); err != nil {
		return errors.Wrap(err, "delete file record")
	}
	e.cache.Remove(uri)
	return nil
}

// GetMetadata returns record.Metadata for path, or nil if no record exists.
func (e *Engine) GetMetadata(ctx context.Context, path []string) (map[string]any, error) {
	rec, ok, err := e.getRecord(ctx, path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return rec.Metadata, nil
}

// SetMetadata replaces path's stored metadata. Unlike Save, it raises
// (rather than returning an error FileStatus) when meta serializes to more
// than MaxMetadataSize, per spec §4.6. It is a no-op if no record exists
// for path.
func (e *Engine) SetMetadata(ctx context.Context, path []string, meta map[string]any) error {
	if err := checkMetadataSize(meta); err != nil {
		return err
	}

	rec, ok, err := e.getRecord(ctx, path)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	rec.Metadata = meta
	debug.Log("SetMetadata(%v)", path)
	return e.putRecord(ctx, rec)
}

func checkMetadataSize(meta map[string]any) error {
	if meta == nil {
		return nil
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return errors.Wrap(err, "encode metadata")
	}
	if len(raw) > MaxMetadataSize {
		return errors.New("Metadata exceeds 60KB limit")
	}
	return nil
}
