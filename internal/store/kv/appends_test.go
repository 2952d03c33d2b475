package kv

import (
	"testing"
	"time"

	"github.com/albri/mdplane/internal/models"
)

func TestAppendEvent_TaskThenClaim(t *testing.T) {
	s := newTestStore(t)
	f, err := s.CreateFile("ws_1", "/tasks.md", []byte("# tasks"))
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	now := time.Now()

	task, err := s.AppendEvent("ws_1", f.ID, f.Path, &models.Append{
		Type: models.AppendTask, Author: "alice", Content: "ship it",
	}, now)
	if err != nil {
		t.Fatalf("append task: %v", err)
	}
	if task.AppendID != "a1" {
		t.Errorf("appendId = %q, want a1", task.AppendID)
	}

	claim, err := s.AppendEvent("ws_1", f.ID, f.Path, &models.Append{
		Type: models.AppendClaim, Author: "bob", Ref: task.AppendID,
	}, now)
	if err != nil {
		t.Fatalf("append claim: %v", err)
	}
	if claim.AppendID != "a2" {
		t.Errorf("appendId = %q, want a2", claim.AppendID)
	}
}

func TestAppendEvent_ClaimOnAlreadyClaimedTaskConflicts(t *testing.T) {
	s := newTestStore(t)
	f, err := s.CreateFile("ws_1", "/tasks.md", []byte("# tasks"))
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	now := time.Now()
	task, err := s.AppendEvent("ws_1", f.ID, f.Path, &models.Append{
		Type: models.AppendTask, Author: "alice", Content: "ship it",
	}, now)
	if err != nil {
		t.Fatalf("append task: %v", err)
	}
	if _, err := s.AppendEvent("ws_1", f.ID, f.Path, &models.Append{
		Type: models.AppendClaim, Author: "bob", Ref: task.AppendID,
	}, now); err != nil {
		t.Fatalf("first claim: %v", err)
	}

	_, err = s.AppendEvent("ws_1", f.ID, f.Path, &models.Append{
		Type: models.AppendClaim, Author: "carol", Ref: task.AppendID,
	}, now)
	derr, ok := models.AsDomainError(err)
	if !ok || derr.Code != models.CodeAlreadyClaimed {
		t.Fatalf("got %v, want ALREADY_CLAIMED", err)
	}
}

func TestAppendEvent_ClaimRace_ExactlyOneWins(t *testing.T) {
	s := newTestStore(t)
	f, err := s.CreateFile("ws_1", "/tasks.md", []byte("# tasks"))
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	now := time.Now()
	task, err := s.AppendEvent("ws_1", f.ID, f.Path, &models.Append{
		Type: models.AppendTask, Author: "alice", Content: "ship it",
	}, now)
	if err != nil {
		t.Fatalf("append task: %v", err)
	}

	const n = 8
	authors := []string{"bob", "carol", "dave", "erin", "frank", "grace", "heidi", "ivan"}
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		author := authors[i]
		go func(author string) {
			_, err := s.AppendEvent("ws_1", f.ID, f.Path, &models.Append{
				Type: models.AppendClaim, Author: author, Ref: task.AppendID,
			}, now)
			errs <- err
		}(author)
	}
	successes, conflicts := 0, 0
	for i := 0; i < n; i++ {
		err := <-errs
		if err == nil {
			successes++
			continue
		}
		if derr, ok := models.AsDomainError(err); ok && derr.Code == models.CodeAlreadyClaimed {
			conflicts++
			continue
		}
		t.Fatalf("unexpected error: %v", err)
	}
	if successes != 1 {
		t.Errorf("successes = %d, want exactly 1", successes)
	}
	if conflicts != n-1 {
		t.Errorf("conflicts = %d, want %d", conflicts, n-1)
	}
}

func TestAppendEvent_RenewByNonClaimingAuthorMismatches(t *testing.T) {
	s := newTestStore(t)
	f, err := s.CreateFile("ws_1", "/tasks.md", []byte("# tasks"))
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	now := time.Now()
	task, err := s.AppendEvent("ws_1", f.ID, f.Path, &models.Append{
		Type: models.AppendTask, Author: "alice", Content: "ship it",
	}, now)
	if err != nil {
		t.Fatalf("append task: %v", err)
	}
	claim, err := s.AppendEvent("ws_1", f.ID, f.Path, &models.Append{
		Type: models.AppendClaim, Author: "bob", Ref: task.AppendID,
	}, now)
	if err != nil {
		t.Fatalf("append claim: %v", err)
	}

	_, err = s.AppendEvent("ws_1", f.ID, f.Path, &models.Append{
		Type: models.AppendRenew, Author: "carol", Ref: claim.AppendID,
	}, now)
	derr, ok := models.AsDomainError(err)
	if !ok || derr.Code != models.CodeAuthorMismatch {
		t.Fatalf("got %v, want AUTHOR_MISMATCH", err)
	}
}

func TestAppendEvent_ClaimOnUnknownTaskNotFound(t *testing.T) {
	s := newTestStore(t)
	f, err := s.CreateFile("ws_1", "/tasks.md", []byte("# tasks"))
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	_, err = s.AppendEvent("ws_1", f.ID, f.Path, &models.Append{
		Type: models.AppendClaim, Author: "bob", Ref: "a999",
	}, time.Now())
	derr, ok := models.AsDomainError(err)
	if !ok || derr.Code != models.CodeNotFound {
		t.Fatalf("got %v, want NOT_FOUND", err)
	}
}

func TestListWorkspaceAppends_SpansMultipleFiles(t *testing.T) {
	s := newTestStore(t)
	f1, _ := s.CreateFile("ws_1", "/a.md", []byte("a"))
	f2, _ := s.CreateFile("ws_1", "/b.md", []byte("b"))
	now := time.Now()
	if _, err := s.AppendEvent("ws_1", f1.ID, f1.Path, &models.Append{Type: models.AppendTask, Author: "alice", Content: "x"}, now); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := s.AppendEvent("ws_1", f2.ID, f2.Path, &models.Append{Type: models.AppendTask, Author: "alice", Content: "y"}, now); err != nil {
		t.Fatalf("append: %v", err)
	}
	all, err := s.ListWorkspaceAppends("ws_1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("appends = %+v, want 2", all)
	}
}
