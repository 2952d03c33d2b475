package orchestration

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/albri/mdplane/internal/models"
)

// appendSeq extracts the numeric ordinal from a short append id ("a12" ->
// 12) so ids sort numerically rather than lexically ("a10" before "a2").
// Malformed ids sort last.
func appendSeq(id string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(id, "a"))
	if err != nil {
		return 1<<31 - 1
	}
	return n
}

// fk builds the fold-internal map key for an append-id local to a given
// file. A short id like "a1" is only unique within its own file's
// counter (nextAppendID is keyed per (workspace, file)), so folding
// appends from more than one file — as the workspace-wide orchestration
// view does — must not key tasks/claims by the bare short id alone, or
// unrelated files' "a1" task would collide. A ref always targets an
// event in the same file (§3), so every lookup below combines the
// append's own FileID with the target id.
func fk(fileID, id string) string { return fileID + ":" + id }

// claimFold is the mutable per-claim accumulator used while folding.
type claimFold struct {
	claim  *Claim
	status models.ClaimStatus
}

// taskFold is the mutable per-task accumulator used while folding.
type taskFold struct {
	task       *Task
	terminal   bool // true once a direct task-level cancel/complete has landed
	activeClaim string
}

// Derive folds an ordered slice of appends (oldest first, as returned by
// the kv store's per-file or per-workspace log scan) into task and claim
// views as of now. Appends must already be sorted by AppendID ascending;
// Derive does not re-sort across files, only guards against out-of-order
// input within the same slice.
func Derive(appends []models.Append, now time.Time) Derived {
	sorted := make([]models.Append, len(appends))
	copy(sorted, appends)
	sort.SliceStable(sorted, func(i, j int) bool { return appendSeq(sorted[i].AppendID) < appendSeq(sorted[j].AppendID) })

	tasks := map[string]*taskFold{}
	claims := map[string]*claimFold{}

	for _, a := range sorted {
		switch a.Type {
		case models.AppendTask:
			tasks[fk(a.FileID, a.AppendID)] = &taskFold{task: &Task{
				ID:        a.AppendID,
				FileID:    a.FileID,
				FilePath:  a.FilePath,
				Author:    a.Author,
				Priority:  a.Priority,
				Status:    TaskPending,
				Content:   a.Content,
				Labels:    a.Labels,
				CreatedAt: a.CreatedAt,
			}}

		case models.AppendClaim:
			tf, ok := tasks[fk(a.FileID, a.Ref)]
			if !ok || tf.terminal {
				continue
			}
			expires := a.CreatedAt.Add(5 * time.Minute)
			if a.ExpiresAt != nil {
				expires = *a.ExpiresAt
			}
			cl := &Claim{
				ID:        a.AppendID,
				TaskID:    a.Ref,
				FileID:    a.FileID,
				FilePath:  a.FilePath,
				Author:    a.Author,
				Status:    models.ClaimActive,
				ExpiresAt: expires,
				CreatedAt: a.CreatedAt,
			}
			claims[fk(a.FileID, a.AppendID)] = &claimFold{claim: cl, status: models.ClaimActive}
			tf.activeClaim = fk(a.FileID, a.AppendID)
			tf.task.Status = TaskClaimed

		case models.AppendRenew:
			cf, ok := claims[fk(a.FileID, a.Ref)]
			if !ok || cf.status != models.ClaimActive {
				continue
			}
			if a.ExpiresAt != nil {
				cf.claim.ExpiresAt = *a.ExpiresAt
			} else {
				cf.claim.ExpiresAt = a.CreatedAt.Add(5 * time.Minute)
			}

		case models.AppendBlocked:
			cf, ok := claims[fk(a.FileID, a.Ref)]
			if !ok || cf.status != models.ClaimActive {
				continue
			}
			cf.status = models.ClaimBlocked
			cf.claim.Status = models.ClaimBlocked

		case models.AppendComplete, models.AppendResponse, models.AppendAnswer:
			if cf, ok := claims[fk(a.FileID, a.Ref)]; ok {
				cf.status = models.ClaimCompleted
				cf.claim.Status = models.ClaimCompleted
				if tf, ok := tasks[fk(a.FileID, cf.claim.TaskID)]; ok {
					tf.task.Status = TaskCompleted
					tf.terminal = true
				}
				continue
			}
			if tf, ok := tasks[fk(a.FileID, a.Ref)]; ok {
				tf.task.Status = TaskCompleted
				tf.terminal = true
			}

		case models.AppendCancel:
			if cf, ok := claims[fk(a.FileID, a.Ref)]; ok {
				cf.status = models.ClaimCancelled
				cf.claim.Status = models.ClaimCancelled
				if tf, ok := tasks[fk(a.FileID, cf.claim.TaskID)]; ok && !tf.terminal {
					tf.task.Status = TaskPending
					tf.activeClaim = ""
				}
				continue
			}
			if tf, ok := tasks[fk(a.FileID, a.Ref)]; ok {
				tf.task.Status = TaskCancelled
				tf.terminal = true
			}

		case models.AppendComment, models.AppendVote, models.AppendHeartbeat:
			// No effect on task/claim state machine.
		}
	}

	out := Derived{}
	for _, tf := range tasks {
		t := tf.task
		if tf.activeClaim != "" {
			if cf, ok := claims[tf.activeClaim]; ok {
				claimView := *cf.claim
				t.ActiveClaim = &claimView
				switch cf.status {
				case models.ClaimBlocked:
					t.Status = TaskStalled
				case models.ClaimActive:
					if claimView.IsExpired(now) {
						t.Status = TaskStalled
					} else {
						t.Status = TaskClaimed
					}
				}
			}
		}
		out.Tasks = append(out.Tasks, t)
	}
	for _, cf := range claims {
		out.Claims = append(out.Claims, cf.claim)
	}

	sort.Slice(out.Tasks, func(i, j int) bool { return appendSeq(out.Tasks[i].ID) < appendSeq(out.Tasks[j].ID) })
	sort.Slice(out.Claims, func(i, j int) bool { return appendSeq(out.Claims[i].ID) < appendSeq(out.Claims[j].ID) })
	return out
}

// Summarize counts tasks by derived status.
func Summarize(tasks []*Task) Summary {
	var s Summary
	for _, t := range tasks {
		switch t.Status {
		case TaskPending:
			s.Pending++
		case TaskClaimed:
			s.Claimed++
		case TaskStalled:
			s.Stalled++
		case TaskCompleted:
			s.Completed++
		case TaskCancelled:
			s.Cancelled++
		}
	}
	return s
}

// AgentWorkloads groups claims and completions by author into per-agent
// workload summaries (§4.2 GET /agents).
func AgentWorkloads(d Derived, heartbeats map[string]models.Heartbeat) []*Agent {
	byAuthor := map[string]*Agent{}
	get := func(author string) *Agent {
		a, ok := byAuthor[author]
		if !ok {
			a = &Agent{Author: author}
			byAuthor[author] = a
		}
		return a
	}
	for _, c := range d.Claims {
		a := get(c.Author)
		switch c.Status {
		case models.ClaimActive, models.ClaimBlocked:
			a.ActiveClaims++
		case models.ClaimCompleted:
			a.Completed++
		}
	}
	for author, hb := range heartbeats {
		a := get(author)
		a.Status = hb.Status
		a.CurrentTask = hb.CurrentTask
		a.LastSeen = hb.LastSeen
	}
	agents := make([]*Agent, 0, len(byAuthor))
	for _, a := range byAuthor {
		agents = append(agents, a)
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].Author < agents[j].Author })
	return agents
}
