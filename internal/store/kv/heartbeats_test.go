package kv

import (
	"testing"

	"github.com/albri/mdplane/internal/models"
)

func TestUpsertHeartbeat_LastWriteWinsPerAuthor(t *testing.T) {
	s := newTestStore(t)
	if err := s.UpsertHeartbeat(&models.Heartbeat{WorkspaceID: "ws_1", Author: "alice", Status: "alive", LastSeen: 1}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.UpsertHeartbeat(&models.Heartbeat{WorkspaceID: "ws_1", Author: "alice", Status: "idle", LastSeen: 2}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	hb, err := s.GetHeartbeat("ws_1", "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if hb.Status != "idle" || hb.LastSeen != 2 {
		t.Errorf("heartbeat = %+v, want the most recent upsert", hb)
	}

	all, err := s.ListHeartbeats("ws_1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("heartbeats = %+v, want exactly one (upsert, not append)", all)
	}
}

func TestGetHeartbeat_UnknownAuthorNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetHeartbeat("ws_1", "ghost"); err == nil {
		t.Error("expected an error for an author with no recorded heartbeat")
	}
}

func TestListHeartbeats_ScopedToWorkspace(t *testing.T) {
	s := newTestStore(t)
	if err := s.UpsertHeartbeat(&models.Heartbeat{WorkspaceID: "ws_1", Author: "alice", Status: "alive", LastSeen: 1}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.UpsertHeartbeat(&models.Heartbeat{WorkspaceID: "ws_2", Author: "bob", Status: "alive", LastSeen: 1}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	all, err := s.ListHeartbeats("ws_1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("heartbeats = %+v, want only ws_1's", all)
	}
	if _, ok := all["alice"]; !ok {
		t.Errorf("heartbeats = %+v, want alice present", all)
	}
}
