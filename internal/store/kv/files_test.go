package kv

import (
	"testing"
	"time"

	"github.com/albri/mdplane/internal/config"
	"github.com/albri/mdplane/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(config.KVConfig{Path: t.TempDir(), InMemory: true})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateFile_DuplicatePathConflicts(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreateFile("ws_1", "/notes.md", []byte("v1")); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := s.CreateFile("ws_1", "/notes.md", []byte("v2"))
	derr, ok := models.AsDomainError(err)
	if !ok || derr.Code != models.CodeConflict {
		t.Fatalf("got %v, want CONFLICT", err)
	}
}

func TestCreateFile_AllowsReuseOfSoftDeletedPath(t *testing.T) {
	s := newTestStore(t)
	f, err := s.CreateFile("ws_1", "/notes.md", []byte("v1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.SoftDeleteFile("ws_1", f.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	f2, err := s.CreateFile("ws_1", "/notes.md", []byte("v2"))
	if err != nil {
		t.Fatalf("recreate after soft delete: %v", err)
	}
	if f2.ID == f.ID {
		t.Error("recreated file should mint a new id, not reuse the old one")
	}
}

func TestUpdateFile_IfMatchConflict(t *testing.T) {
	s := newTestStore(t)
	f, err := s.CreateFile("ws_1", "/notes.md", []byte("v1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = s.UpdateFile("ws_1", f.ID, []byte("v2"), "wrongetag0000000")
	derr, ok := models.AsDomainError(err)
	if !ok || derr.Code != models.CodeConflict {
		t.Fatalf("got %v, want CONFLICT", err)
	}
	if derr.Details["currentEtag"] != ComputeETag([]byte("v1")) {
		t.Errorf("details = %+v, want currentEtag = %q", derr.Details, ComputeETag([]byte("v1")))
	}
}

func TestUpdateFile_IfMatchSucceedsOnMatchingEtag(t *testing.T) {
	s := newTestStore(t)
	f, err := s.CreateFile("ws_1", "/notes.md", []byte("v1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	etag, _ := s.ETag("ws_1", f.ID)
	updated, err := s.UpdateFile("ws_1", f.ID, []byte("v2"), etag)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if string(updated.Content) != "v2" {
		t.Errorf("content = %q, want v2", updated.Content)
	}
}

func TestUpdateFile_UnconditionalWriteWithEmptyIfMatch(t *testing.T) {
	s := newTestStore(t)
	f, err := s.CreateFile("ws_1", "/notes.md", []byte("v1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.UpdateFile("ws_1", f.ID, []byte("v2"), ""); err != nil {
		t.Fatalf("unconditional update should succeed: %v", err)
	}
}

func TestSoftDeleteFile_RemovesPathIndexButKeepsRecord(t *testing.T) {
	s := newTestStore(t)
	f, err := s.CreateFile("ws_1", "/notes.md", []byte("v1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.SoftDeleteFile("ws_1", f.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if _, err := s.GetFileByPath("ws_1", "/notes.md"); err == nil {
		t.Error("soft-deleted file should no longer resolve by path")
	}
	got, err := s.GetFile("ws_1", f.ID)
	if err != nil {
		t.Fatalf("get by id should still succeed: %v", err)
	}
	if !got.IsDeleted() {
		t.Error("file should report IsDeleted() true")
	}
}

func TestPurgeDeletedFiles_OnlyPurgesPastCutoff(t *testing.T) {
	s := newTestStore(t)
	f, err := s.CreateFile("ws_1", "/old.md", []byte("v1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.SoftDeleteFile("ws_1", f.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	n, err := s.PurgeDeletedFiles("ws_1", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 0 {
		t.Errorf("purged = %d, want 0 (cutoff is before the delete)", n)
	}

	n, err = s.PurgeDeletedFiles("ws_1", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 1 {
		t.Errorf("purged = %d, want 1", n)
	}
	if _, err := s.GetFile("ws_1", f.ID); err == nil {
		t.Error("purged file should no longer be retrievable by id")
	}
}

func TestListFilesByPrefix_ExcludesOtherWorkspaces(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreateFile("ws_1", "/docs/a.md", []byte("a")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateFile("ws_2", "/docs/b.md", []byte("b")); err != nil {
		t.Fatalf("create: %v", err)
	}
	files, err := s.ListFilesByPrefix("ws_1", "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 1 || files[0].Path != "/docs/a.md" {
		t.Errorf("files = %+v, want only ws_1's file", files)
	}
}
