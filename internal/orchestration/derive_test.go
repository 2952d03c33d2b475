package orchestration

import (
	"testing"
	"time"

	"github.com/albri/mdplane/internal/models"
)

func mkAppend(fileID, appendID string, typ models.AppendType, author, ref string, createdAt time.Time) models.Append {
	return models.Append{
		ID:        fileID + "_" + appendID,
		AppendID:  appendID,
		FileID:    fileID,
		Author:    author,
		Type:      typ,
		Ref:       ref,
		CreatedAt: createdAt,
	}
}

func TestDerive_TaskStartsPending(t *testing.T) {
	now := time.Now()
	appends := []models.Append{
		mkAppend("f1", "a1", models.AppendTask, "alice", "", now),
	}
	d := Derive(appends, now)
	if len(d.Tasks) != 1 || d.Tasks[0].Status != TaskPending {
		t.Fatalf("got %+v, want one pending task", d.Tasks)
	}
}

func TestDerive_ClaimMovesTaskToClaimed(t *testing.T) {
	now := time.Now()
	appends := []models.Append{
		mkAppend("f1", "a1", models.AppendTask, "alice", "", now),
		mkAppend("f1", "a2", models.AppendClaim, "bob", "a1", now),
	}
	d := Derive(appends, now)
	if d.Tasks[0].Status != TaskClaimed {
		t.Fatalf("status = %s, want claimed", d.Tasks[0].Status)
	}
	if d.Tasks[0].ActiveClaim == nil {
		t.Fatal("expected ActiveClaim to be populated for a claimed task")
	}
	if d.Tasks[0].ActiveClaim.Author != "bob" {
		t.Errorf("active claim author = %q, want bob", d.Tasks[0].ActiveClaim.Author)
	}
}

// A claimed task whose lease has expired without renewal must surface as
// stalled at query time (§4.3), even though the stored claim append itself
// still carries status=active.
func TestDerive_ExpiredClaimSurfacesAsStalled(t *testing.T) {
	created := time.Now().Add(-10 * time.Minute)
	expiry := created.Add(1 * time.Minute) // already passed relative to "now" below
	appends := []models.Append{
		mkAppend("f1", "a1", models.AppendTask, "alice", "", created),
		{
			ID: "f1_a2", AppendID: "a2", FileID: "f1", Author: "bob",
			Type: models.AppendClaim, Ref: "a1", CreatedAt: created, ExpiresAt: &expiry,
		},
	}
	now := time.Now()
	d := Derive(appends, now)
	if d.Tasks[0].Status != TaskStalled {
		t.Fatalf("status = %s, want stalled for an expired, un-renewed claim", d.Tasks[0].Status)
	}
	if d.Tasks[0].ActiveClaim == nil {
		t.Fatal("expected ActiveClaim to still be populated for a stalled task")
	}
}

func TestDerive_RenewExtendsExpiryAndKeepsClaimed(t *testing.T) {
	created := time.Now().Add(-10 * time.Minute)
	shortExpiry := created.Add(1 * time.Minute)
	longExpiry := time.Now().Add(10 * time.Minute)
	appends := []models.Append{
		mkAppend("f1", "a1", models.AppendTask, "alice", "", created),
		{ID: "f1_a2", AppendID: "a2", FileID: "f1", Author: "bob", Type: models.AppendClaim, Ref: "a1", CreatedAt: created, ExpiresAt: &shortExpiry},
		{ID: "f1_a3", AppendID: "a3", FileID: "f1", Author: "bob", Type: models.AppendRenew, Ref: "a2", CreatedAt: time.Now(), ExpiresAt: &longExpiry},
	}
	d := Derive(appends, time.Now())
	if d.Tasks[0].Status != TaskClaimed {
		t.Fatalf("status = %s, want claimed after renew", d.Tasks[0].Status)
	}
}

func TestDerive_BlockedClaimSurfacesTaskAsStalled(t *testing.T) {
	now := time.Now()
	appends := []models.Append{
		mkAppend("f1", "a1", models.AppendTask, "alice", "", now),
		mkAppend("f1", "a2", models.AppendClaim, "bob", "a1", now),
		mkAppend("f1", "a3", models.AppendBlocked, "bob", "a2", now),
	}
	d := Derive(appends, now)
	if d.Tasks[0].Status != TaskStalled {
		t.Fatalf("status = %s, want stalled while blocked", d.Tasks[0].Status)
	}
}

func TestDerive_CompleteTargetingClaimCompletesTask(t *testing.T) {
	now := time.Now()
	appends := []models.Append{
		mkAppend("f1", "a1", models.AppendTask, "alice", "", now),
		mkAppend("f1", "a2", models.AppendClaim, "bob", "a1", now),
		mkAppend("f1", "a3", models.AppendComplete, "bob", "a2", now),
	}
	d := Derive(appends, now)
	if d.Tasks[0].Status != TaskCompleted {
		t.Fatalf("status = %s, want completed", d.Tasks[0].Status)
	}
	if d.Claims[0].Status != models.ClaimCompleted {
		t.Fatalf("claim status = %s, want completed", d.Claims[0].Status)
	}
}

// Open Question (a), first branch: cancel targeting a claim's appendId
// returns the task to pending, leaving it reclaimable.
func TestDerive_CancelOfClaimReturnsTaskToPending(t *testing.T) {
	now := time.Now()
	appends := []models.Append{
		mkAppend("f1", "a1", models.AppendTask, "alice", "", now),
		mkAppend("f1", "a2", models.AppendClaim, "bob", "a1", now),
		mkAppend("f1", "a3", models.AppendCancel, "bob", "a2", now),
	}
	d := Derive(appends, now)
	if d.Tasks[0].Status != TaskPending {
		t.Fatalf("status = %s, want pending after cancel-of-claim", d.Tasks[0].Status)
	}
	if d.Tasks[0].ActiveClaim != nil {
		t.Fatal("expected no active claim after cancel-of-claim")
	}
	if d.Claims[0].Status != models.ClaimCancelled {
		t.Fatalf("claim status = %s, want cancelled", d.Claims[0].Status)
	}

	// The task is reclaimable: a fresh claim against the same task succeeds.
	appends = append(appends, mkAppend("f1", "a4", models.AppendClaim, "carol", "a1", now))
	d = Derive(appends, now)
	if d.Tasks[0].Status != TaskClaimed {
		t.Fatalf("status = %s, want claimed after reclaiming a cancelled-claim task", d.Tasks[0].Status)
	}
	if d.Tasks[0].ActiveClaim.Author != "carol" {
		t.Errorf("active claim author = %q, want carol", d.Tasks[0].ActiveClaim.Author)
	}
}

// Open Question (a), second branch: cancel targeting the task directly
// (no claim exists with that appendId) is terminal.
func TestDerive_CancelOfTaskIsTerminal(t *testing.T) {
	now := time.Now()
	appends := []models.Append{
		mkAppend("f1", "a1", models.AppendTask, "alice", "", now),
		mkAppend("f1", "a2", models.AppendCancel, "alice", "a1", now),
	}
	d := Derive(appends, now)
	if d.Tasks[0].Status != TaskCancelled {
		t.Fatalf("status = %s, want cancelled", d.Tasks[0].Status)
	}
}

// Folding appends from more than one file must not let identical short
// append ids ("a1" minted independently per file) collide.
func TestDerive_CrossFileAppendIDsDoNotCollide(t *testing.T) {
	now := time.Now()
	appends := []models.Append{
		mkAppend("f1", "a1", models.AppendTask, "alice", "", now),
		mkAppend("f2", "a1", models.AppendTask, "dave", "", now),
		mkAppend("f2", "a2", models.AppendClaim, "erin", "a1", now),
	}
	d := Derive(appends, now)
	if len(d.Tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(d.Tasks))
	}
	var f1Task, f2Task *Task
	for _, tk := range d.Tasks {
		if tk.FileID == "f1" {
			f1Task = tk
		} else {
			f2Task = tk
		}
	}
	if f1Task.Status != TaskPending {
		t.Errorf("f1 task status = %s, want pending (unaffected by f2's claim)", f1Task.Status)
	}
	if f2Task.Status != TaskClaimed {
		t.Errorf("f2 task status = %s, want claimed", f2Task.Status)
	}
}

func TestSummarize(t *testing.T) {
	tasks := []*Task{
		{Status: TaskPending},
		{Status: TaskPending},
		{Status: TaskClaimed},
		{Status: TaskStalled},
		{Status: TaskCompleted},
		{Status: TaskCancelled},
	}
	s := Summarize(tasks)
	if s.Pending != 2 || s.Claimed != 1 || s.Stalled != 1 || s.Completed != 1 || s.Cancelled != 1 {
		t.Fatalf("got %+v", s)
	}
}

func TestAgentWorkloads_MergesClaimsAndHeartbeats(t *testing.T) {
	d := Derived{
		Claims: []*Claim{
			{Author: "bob", Status: models.ClaimActive},
			{Author: "bob", Status: models.ClaimCompleted},
			{Author: "carol", Status: models.ClaimBlocked},
		},
	}
	heartbeats := map[string]models.Heartbeat{
		"bob": {Author: "bob", Status: "busy", LastSeen: 100},
	}
	agents := AgentWorkloads(d, heartbeats)
	if len(agents) != 2 {
		t.Fatalf("got %d agents, want 2", len(agents))
	}
	// Sorted alphabetically: bob before carol.
	if agents[0].Author != "bob" || agents[0].ActiveClaims != 1 || agents[0].Completed != 1 {
		t.Errorf("bob's workload = %+v", agents[0])
	}
	if agents[0].Status != "busy" || agents[0].LastSeen != 100 {
		t.Errorf("bob's heartbeat fields missing: %+v", agents[0])
	}
	if agents[1].Author != "carol" || agents[1].ActiveClaims != 1 {
		t.Errorf("carol's workload = %+v", agents[1])
	}
}
