package models

import (
	"regexp"
	"time"
)

// AppendType enumerates the structured event kinds that may be appended
// to a file's log (§3 Append).
type AppendType string

const (
	AppendTask     AppendType = "task"
	AppendClaim    AppendType = "claim"
	AppendResponse AppendType = "response"
	AppendBlocked  AppendType = "blocked"
	AppendAnswer   AppendType = "answer"
	AppendRenew    AppendType = "renew"
	AppendCancel   AppendType = "cancel"
	AppendComplete AppendType = "complete"
	AppendComment  AppendType = "comment"
	AppendVote     AppendType = "vote"
	AppendHeartbeat AppendType = "heartbeat"
)

// Priority is a task's urgency, used for orchestration ordering.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Rank orders priorities so that critical > high > medium > low.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// ClaimStatus is the logical status of a claim append, derived by folding
// later renew/complete/cancel/block appends over it (§4.2, §4.3).
type ClaimStatus string

const (
	ClaimActive    ClaimStatus = "active"
	ClaimCompleted ClaimStatus = "completed"
	ClaimCancelled ClaimStatus = "cancelled"
	ClaimBlocked   ClaimStatus = "blocked"
	ClaimStalled   ClaimStatus = "stalled"
)

// authorPattern is the whitelist from §4.2: 1-64 chars, alphanumeric plus
// underscore/hyphen.
var authorPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidAuthor reports whether author satisfies the whitelist and isn't
// the reserved literal "system".
func ValidAuthor(author string) bool {
	if author == "system" {
		return false
	}
	return authorPattern.MatchString(author)
}

// Append is a single immutable event in a file's activity log. AppendID is
// the short, per-file sequential id ("a1", "a2", ...) shown to clients as
// appendId; ID is the globally addressable "fileId_appendId" composite used
// when an append must be referenced outside the context of its file (audit
// log, workspace-wide orchestration views).
type Append struct {
	ID              string     `json:"id"`
	AppendID        string     `json:"appendId"`
	FileID          string     `json:"fileId"`
	Author          string     `json:"author"`
	Type            AppendType `json:"type"`
	Status          string     `json:"status,omitempty"`
	Priority        Priority   `json:"priority,omitempty"`
	Ref             string     `json:"ref,omitempty"`
	Labels          []string   `json:"labels,omitempty"`
	Value           string     `json:"value,omitempty"`
	ContentPreview  string     `json:"contentPreview,omitempty"`
	Content         string     `json:"content,omitempty"`
	ExpiresAt       *time.Time `json:"expiresAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`

	// WorkspaceID and FilePath are denormalized onto the append for
	// workspace-wide queries (orchestration, search) without a join back
	// to the owning file on every read.
	WorkspaceID string `json:"-"`
	FilePath    string `json:"filePath,omitempty"`
}

// Heartbeat is the latest liveness report for an author within a
// workspace. Primary key is (WorkspaceID, Author); writes are upserts.
type Heartbeat struct {
	WorkspaceID string         `json:"-"`
	Author      string         `json:"author"`
	Status      string         `json:"status"`
	CurrentTask string         `json:"currentTask,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	LastSeen    int64          `json:"lastSeen"`
}

// MaxHeartbeatMetadataBytes bounds the JSON-encoded metadata size.
const MaxHeartbeatMetadataBytes = 4096
