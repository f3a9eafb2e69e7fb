package kvfs_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/hviana/kvfs"
)

func TestReadDirPagination(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	const total = 2500
	for i := 0; i < total; i++ {
		path := []string{"d", fmt.Sprintf("file-%04d.txt", i)}
		if _, status := e.Save(ctx, kvfs.SaveOptions{Path: path, Content: kvfs.StringContent("x")}); status.Status != "" {
			t.Fatalf("Save %v: unexpected status %+v", path, status)
		}
	}

	var all []kvfs.DirEntry
	cursor := ""
	for i := 0; i < 3; i++ {
		list, status := e.ReadDir(ctx, kvfs.ReadDirOptions{Path: []string{"d"}, Pagination: true, Cursor: cursor})
		if status.Status != "" {
			t.Fatalf("ReadDir page %d: unexpected status %+v", i, status)
		}
		all = append(all, list.Entries...)
		if i < 2 && list.Cursor == "" {
			t.Fatalf("ReadDir page %d: expected a cursor, got none", i)
		}
		if i == 2 && list.Cursor != "" {
			t.Fatalf("ReadDir page %d: expected no cursor on last page, got one", i)
		}
		cursor = list.Cursor
		if cursor == "" {
			break
		}
	}

	if len(all) != total {
		t.Fatalf("ReadDir paginated: want %d entries total, got %d", total, len(all))
	}
}

func TestDeleteDirRemovesAllFiles(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		path := []string{"d2", fmt.Sprintf("f%d.txt", i)}
		e.Save(ctx, kvfs.SaveOptions{Path: path, Content: kvfs.StringContent("x")})
	}

	statuses := e.DeleteDir(ctx, kvfs.DeleteDirOptions{Path: []string{"d2"}})
	if len(statuses) != 5 {
		t.Fatalf("DeleteDir: want 5 statuses, got %d", len(statuses))
	}
	for _, s := range statuses {
		if s.Status != "" {
			t.Fatalf("DeleteDir: unexpected status %+v", s)
		}
	}

	list, _ := e.ReadDir(ctx, kvfs.ReadDirOptions{Path: []string{"d2"}})
	if len(list.Entries) != 0 {
		t.Fatalf("ReadDir after DeleteDir: want 0 entries, got %d", len(list.Entries))
	}
}
