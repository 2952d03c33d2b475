package sql

import (
	"context"
	"testing"

	"github.com/albri/mdplane/internal/models"
)

func TestRecordAudit_AssignsIDAndListsNewestFirst(t *testing.T) {
	s := newTestSQLStore(t)
	ctx := context.Background()

	first := &models.AuditLogEntry{WorkspaceID: "ws_1", ActorType: models.ActorSession, Actor: "alice", Action: "file.put"}
	if err := s.RecordAudit(ctx, first); err != nil {
		t.Fatalf("record first: %v", err)
	}
	if first.ID == "" {
		t.Fatal("expected a generated audit entry id")
	}
	second := &models.AuditLogEntry{WorkspaceID: "ws_1", ActorType: models.ActorSession, Actor: "alice", Action: "file.delete"}
	if err := s.RecordAudit(ctx, second); err != nil {
		t.Fatalf("record second: %v", err)
	}

	entries, err := s.ListAudit(ctx, "ws_1", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %+v, want 2", entries)
	}
	if entries[0].Action != "file.delete" {
		t.Errorf("entries[0].Action = %q, want file.delete (newest first)", entries[0].Action)
	}
}

func TestListAudit_ScopedToWorkspace(t *testing.T) {
	s := newTestSQLStore(t)
	ctx := context.Background()
	if err := s.RecordAudit(ctx, &models.AuditLogEntry{WorkspaceID: "ws_1", ActorType: models.ActorSession, Actor: "alice", Action: "file.put"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := s.RecordAudit(ctx, &models.AuditLogEntry{WorkspaceID: "ws_2", ActorType: models.ActorSession, Actor: "bob", Action: "file.put"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	entries, err := s.ListAudit(ctx, "ws_1", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 || entries[0].Actor != "alice" {
		t.Errorf("entries = %+v, want only ws_1's entry", entries)
	}
}

func TestListAudit_ClampsOutOfRangeLimit(t *testing.T) {
	s := newTestSQLStore(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := s.RecordAudit(ctx, &models.AuditLogEntry{WorkspaceID: "ws_1", ActorType: models.ActorSession, Actor: "alice", Action: "file.put"}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	entries, err := s.ListAudit(ctx, "ws_1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("entries = %+v, want 3 with the default limit applied", entries)
	}
}

func TestCreateExportJob_DefaultsToPending(t *testing.T) {
	s := newTestSQLStore(t)
	ctx := context.Background()
	job, err := s.CreateExportJob(ctx, &models.ExportJob{WorkspaceID: "ws_1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if job.Status != models.ExportJobPending {
		t.Errorf("status = %q, want pending", job.Status)
	}

	got, err := s.GetExportJob(ctx, "ws_1", job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != job.ID {
		t.Errorf("id = %q, want %q", got.ID, job.ID)
	}
}

func TestUpdateExportJobStatus_SetsResultAndError(t *testing.T) {
	s := newTestSQLStore(t)
	ctx := context.Background()
	job, err := s.CreateExportJob(ctx, &models.ExportJob{WorkspaceID: "ws_1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.UpdateExportJobStatus(ctx, job.ID, models.ExportJobCompleted, "https://example.com/export.zip", ""); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := s.GetExportJob(ctx, "ws_1", job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.ExportJobCompleted || got.ResultURL != "https://example.com/export.zip" {
		t.Errorf("job = %+v, want completed with result url set", got)
	}
}

func TestGetExportJob_NotFoundWhenWorkspaceMismatched(t *testing.T) {
	s := newTestSQLStore(t)
	ctx := context.Background()
	job, err := s.CreateExportJob(ctx, &models.ExportJob{WorkspaceID: "ws_1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.GetExportJob(ctx, "ws_other", job.ID); err == nil {
		t.Error("expected a not-found error when the workspace doesn't match")
	}
}
