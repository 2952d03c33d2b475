// Package orchestration derives task, claim, and agent workload state from
// a file's (or workspace's) append log by folding the ordered event stream
// through a small per-task state machine (spec.md §4.2, §9).
package orchestration

import (
	"time"

	"github.com/albri/mdplane/internal/models"
)

// TaskStatus is the externally visible status of a task, after folding the
// append log and, for "claimed" tasks, comparing the active claim's
// expiry against the query time.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskClaimed   TaskStatus = "claimed"
	TaskStalled   TaskStatus = "stalled"
	TaskCompleted TaskStatus = "completed"
	TaskCancelled TaskStatus = "cancelled"
)

// Task is the derived view of a single task append plus whatever claim
// history applies to it.
type Task struct {
	ID          string        `json:"id"`
	FileID      string        `json:"fileId"`
	FilePath    string        `json:"filePath"`
	Author      string        `json:"author"`
	Priority    models.Priority `json:"priority"`
	Status      TaskStatus    `json:"status"`
	Content     string        `json:"content,omitempty"`
	Labels      []string      `json:"labels,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	ActiveClaim *Claim        `json:"activeClaim,omitempty"`
}

// Claim is the derived view of a single claim append, folded against any
// renew/complete/cancel/block appends that target it.
type Claim struct {
	ID        string            `json:"id"`
	TaskID    string            `json:"taskId"`
	FileID    string            `json:"fileId"`
	FilePath  string            `json:"filePath"`
	Author    string            `json:"author"`
	Status    models.ClaimStatus `json:"status"`
	ExpiresAt time.Time         `json:"expiresAt"`
	CreatedAt time.Time         `json:"createdAt"`
}

// IsExpired reports whether the claim's lease has lapsed as of now.
func (c *Claim) IsExpired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

// Agent is the derived per-author workload summary.
type Agent struct {
	Author       string `json:"author"`
	ActiveClaims int    `json:"activeClaims"`
	Completed    int    `json:"completed"`
	Status       string `json:"status,omitempty"`
	CurrentTask  string `json:"currentTask,omitempty"`
	LastSeen     int64  `json:"lastSeen,omitempty"`
}

// Summary is the aggregate counts block returned alongside task/claim/
// agent listings.
type Summary struct {
	Pending   int `json:"pending"`
	Claimed   int `json:"claimed"`
	Stalled   int `json:"stalled"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
}

// Stats is the response shape for the stats(scope) query (§4.2).
type Stats struct {
	Files            int       `json:"files"`
	Appends          int       `json:"appends"`
	Tasks            int       `json:"tasks"`
	Claims           int       `json:"claims"`
	Agents           int       `json:"agents"`
	LastAppendAt     *time.Time `json:"lastAppendAt,omitempty"`
	AppendsToday     int       `json:"appendsToday"`
	AppendsThisWeek  int       `json:"appendsThisWeek"`
}

// Derived is the full output of folding an append log: every task and
// claim view plus the internal claim-to-task index needed for queries.
type Derived struct {
	Tasks  []*Task
	Claims []*Claim
}
