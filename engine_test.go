package kvfs_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/hviana/kvfs"
	"github.com/hviana/kvfs/kv/memkv"
)

func newTestEngine() *kvfs.Engine {
	return kvfs.New(memkv.New())
}

func TestSaveAndReadRoundTrip(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	path := []string{"a", "b.txt"}

	rec, status := e.Save(ctx, kvfs.SaveOptions{Path: path, Content: kvfs.StringContent("hello")})
	if status.Status != "" {
		t.Fatalf("Save: unexpected status %+v", status)
	}
	if rec.Size != 5 {
		t.Fatalf("Save: want size 5, got %d", rec.Size)
	}
	if len(rec.Flags) != 0 {
		t.Fatalf("Save: want no flags, got %v", rec.Flags)
	}

	_, reader, readStatus := e.Read(ctx, kvfs.ReadOptions{Path: path})
	if readStatus.Status != "" {
		t.Fatalf("Read: unexpected status %+v", readStatus)
	}
	defer reader.Close()

	got, err := kvfs.ReadStream(reader)
	if err != nil {
		t.Fatalf("ReadStream: %v", err)
	}
	if !bytes.Equal(got, []byte("hello")) {
		t.Fatalf("ReadStream: want %q, got %q", "hello", got)
	}
}

func TestSaveChunkBoundary(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	path := []string{"big.bin"}

	content := make([]byte, 2*kvfs.ChunkSize)
	rec, status := e.Save(ctx, kvfs.SaveOptions{Path: path, Content: kvfs.BytesContent(content)})
	if status.Status != "" {
		t.Fatalf("Save: unexpected status %+v", status)
	}
	if rec.Size != int64(len(content)) {
		t.Fatalf("Save: want size %d, got %d", len(content), rec.Size)
	}

	_, reader, _ := e.Read(ctx, kvfs.ReadOptions{Path: path})
	defer reader.Close()
	got, err := kvfs.ReadStream(reader)
	if err != nil {
		t.Fatalf("ReadStream: %v", err)
	}
	if len(got) != len(content) {
		t.Fatalf("ReadStream: want %d bytes, got %d", len(content), len(got))
	}
}

func TestSaveTruncation(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	path := []string{"capped.bin"}

	content := make([]byte, 200000)
	rec, status := e.Save(ctx, kvfs.SaveOptions{
		Path:             path,
		Content:          kvfs.BytesContent(content),
		MaxFileSizeBytes: 100000,
	})
	if status.Status != "" {
		t.Fatalf("Save: unexpected status %+v", status)
	}
	found := false
	for _, f := range rec.Flags {
		if f == kvfs.FlagIncomplete {
			found = true
		}
	}
	if !found {
		t.Fatalf("Save: want incomplete flag, got %v", rec.Flags)
	}
	if rec.Size < 100000 || rec.Size > 100000+kvfs.ChunkSize {
		t.Fatalf("Save: truncated size %d out of expected bounds", rec.Size)
	}
}

func TestSaveShortenRetraction(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	path := []string{"shrink.bin"}

	long := make([]byte, 200000)
	if _, status := e.Save(ctx, kvfs.SaveOptions{Path: path, Content: kvfs.BytesContent(long)}); status.Status != "" {
		t.Fatalf("first Save: unexpected status %+v", status)
	}

	short := []byte("hi")
	rec, status := e.Save(ctx, kvfs.SaveOptions{Path: path, Content: kvfs.BytesContent(short)})
	if status.Status != "" {
		t.Fatalf("second Save: unexpected status %+v", status)
	}
	if rec.Size != int64(len(short)) {
		t.Fatalf("second Save: want size %d, got %d", len(short), rec.Size)
	}

	_, reader, _ := e.Read(ctx, kvfs.ReadOptions{Path: path})
	defer reader.Close()
	got, err := kvfs.ReadStream(reader)
	if err != nil {
		t.Fatalf("ReadStream: %v", err)
	}
	if !bytes.Equal(got, short) {
		t.Fatalf("ReadStream: want %q, got %q", short, got)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	path := []string{"gone.txt"}

	e.Save(ctx, kvfs.SaveOptions{Path: path, Content: kvfs.StringContent("x")})

	if status := e.Delete(ctx, kvfs.DeleteOptions{Path: path}); status.Status != "" {
		t.Fatalf("first Delete: unexpected status %+v", status)
	}
	if status := e.Delete(ctx, kvfs.DeleteOptions{Path: path}); status.Status != "" {
		t.Fatalf("second Delete: unexpected status %+v", status)
	}

	rec, _, _ := e.Read(ctx, kvfs.ReadOptions{Path: path})
	if rec != nil {
		t.Fatalf("Read after delete: want nil record, got %+v", rec)
	}
}

func TestForbiddenAccess(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	path := []string{"secret.txt"}

	_, status := e.Save(ctx, kvfs.SaveOptions{
		Path:     path,
		Content:  kvfs.StringContent("x"),
		Validate: func([]string) bool { return false },
	})
	if status.Status != kvfs.StatusError || status.Msg != "Forbidden" {
		t.Fatalf("Save: want Forbidden error status, got %+v", status)
	}
}

func TestExtensionFilter(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	path := []string{"photo.png"}

	_, status := e.Save(ctx, kvfs.SaveOptions{
		Path:              path,
		Content:           kvfs.StringContent("x"),
		AllowedExtensions: []string{"jpg"},
	})
	if status.Status != kvfs.StatusError {
		t.Fatalf("Save: want extension error status, got %+v", status)
	}
}

func TestMutualExclusionDuringSave(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	path := []string{"locked.bin"}

	blocked := make(chan struct{})
	release := make(chan struct{})
	go e.Save(ctx, kvfs.SaveOptions{
		Path: path,
		Content: kvfs.StreamContent{Reader: &blockingReader{
			started: blocked,
			release: release,
		}},
	})
	<-blocked

	_, readStatus := e.Read(ctx, kvfs.ReadOptions{Path: path})
	if readStatus.Status != kvfs.StatusSaving {
		t.Fatalf("Read during save: want saving status, got %+v", readStatus)
	}

	_, saveStatus := e.Save(ctx, kvfs.SaveOptions{Path: path, Content: kvfs.StringContent("x")})
	if saveStatus.Status != kvfs.StatusSaving {
		t.Fatalf("Save during save: want saving status, got %+v", saveStatus)
	}

	deleteStatus := e.Delete(ctx, kvfs.DeleteOptions{Path: path})
	if deleteStatus.Status != kvfs.StatusSaving {
		t.Fatalf("Delete during save: want saving status, got %+v", deleteStatus)
	}

	close(release)
}

func TestConcurrencyCapExceeded(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	blocked := make(chan struct{})
	release := make(chan struct{})
	go e.Save(ctx, kvfs.SaveOptions{
		Path:                    []string{"held.bin"},
		ClientID:                "client-a",
		MaxClientConcurrentReqs: 1,
		Content: kvfs.StreamContent{Reader: &blockingReader{
			started: blocked,
			release: release,
		}},
	})
	<-blocked

	_, status := e.Save(ctx, kvfs.SaveOptions{
		Path:                    []string{"second.bin"},
		ClientID:                "client-a",
		MaxClientConcurrentReqs: 1,
		Content:                 kvfs.StringContent("x"),
	})
	if status.Status != kvfs.StatusError {
		t.Fatalf("Save over cap: want error status, got %+v", status)
	}

	close(release)
}

// blockingReader signals started, blocks on release, then yields one
// chunk's worth of data and returns EOF on the following call, giving a
// test a window in which a save is reliably still in flight.
type blockingReader struct {
	started chan struct{}
	release chan struct{}
	sent    bool
}

func (r *blockingReader) Read(p []byte) (int, error) {
	if !r.sent {
		r.sent = true
		close(r.started)
		<-r.release
		n := copy(p, bytes.Repeat([]byte{1}, len(p)))
		return n, nil
	}
	return 0, io.EOF
}
