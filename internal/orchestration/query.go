package orchestration

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/albri/mdplane/internal/models"
)

// SortField selects the ordering applied before pagination.
type SortField string

const (
	SortPriority  SortField = "priority"
	SortCreatedAt SortField = "createdAt"
)

// Filter narrows a task listing (§4.2 GET /tasks query params). Status and
// Priority are subsets (comma-separated in the wire query param); File and
// Folder implement the spec's distinct substring/prefix semantics. Limit is
// a pointer so an explicit, out-of-range value ("limit=0", "limit=1001")
// can be told apart from "not supplied" and rejected rather than clamped.
type Filter struct {
	Statuses   []TaskStatus
	Priorities []models.Priority
	Agent      string
	File       string // substring match against FilePath
	Folder     string // prefix match against FilePath's directory
	Since      *time.Time
	Label      string
	Sort       SortField
	Cursor     string
	Limit      *int
}

const defaultLimit = 50
const maxLimit = 1000

var validStatuses = map[TaskStatus]bool{
	TaskPending: true, TaskClaimed: true, TaskStalled: true,
	TaskCompleted: true, TaskCancelled: true,
}

var validPriorities = map[models.Priority]bool{
	models.PriorityLow: true, models.PriorityMedium: true,
	models.PriorityHigh: true, models.PriorityCritical: true,
}

// ParseStatuses splits and validates a comma-separated status subset,
// rejecting unknown values (§4.2, §8: "unknown values -> 400 INVALID_REQUEST").
func ParseStatuses(raw string) ([]TaskStatus, error) {
	if raw == "" {
		return nil, nil
	}
	var out []TaskStatus
	for _, part := range strings.Split(raw, ",") {
		s := TaskStatus(strings.TrimSpace(part))
		if s == "" {
			continue
		}
		if !validStatuses[s] {
			return nil, fmt.Errorf("unknown status %q", s)
		}
		out = append(out, s)
	}
	return out, nil
}

// ParsePriorities splits and validates a comma-separated priority subset.
func ParsePriorities(raw string) ([]models.Priority, error) {
	if raw == "" {
		return nil, nil
	}
	var out []models.Priority
	for _, part := range strings.Split(raw, ",") {
		p := models.Priority(strings.TrimSpace(part))
		if p == "" {
			continue
		}
		if !validPriorities[p] {
			return nil, fmt.Errorf("unknown priority %q", p)
		}
		out = append(out, p)
	}
	return out, nil
}

func matchesAnyStatus(want []TaskStatus, got TaskStatus) bool {
	if len(want) == 0 {
		return true
	}
	for _, s := range want {
		if s == got {
			return true
		}
	}
	return false
}

func matchesAnyPriority(want []models.Priority, got models.Priority) bool {
	if len(want) == 0 {
		return true
	}
	for _, p := range want {
		if p == got {
			return true
		}
	}
	return false
}

// Query applies status/priority/agent/file/folder/label/since filters,
// sorts, and paginates a derived task set, returning the page plus the
// cursor for the next one ("" once exhausted). An explicit limit outside
// [1, maxLimit] or a malformed cursor is an error, not silently clamped or
// reset (§8 boundary behavior).
func Query(tasks []*Task, f Filter) (page []*Task, nextCursor string, err error) {
	limit := defaultLimit
	if f.Limit != nil {
		if *f.Limit < 1 || *f.Limit > maxLimit {
			return nil, "", models.NewError(models.CodeInvalidRequest,
				fmt.Sprintf("limit must be between 1 and %d", maxLimit))
		}
		limit = *f.Limit
	}

	filtered := make([]*Task, 0, len(tasks))
	for _, t := range tasks {
		if !matchesAnyStatus(f.Statuses, t.Status) {
			continue
		}
		if !matchesAnyPriority(f.Priorities, t.Priority) {
			continue
		}
		if f.Agent != "" && t.Author != f.Agent && (t.ActiveClaim == nil || t.ActiveClaim.Author != f.Agent) {
			continue
		}
		if f.File != "" && !strings.Contains(strings.ToLower(t.FilePath), strings.ToLower(f.File)) {
			continue
		}
		if f.Folder != "" && !strings.HasPrefix(t.FilePath, f.Folder) {
			continue
		}
		if f.Since != nil && t.CreatedAt.Before(*f.Since) {
			continue
		}
		if f.Label != "" && !hasLabel(t.Labels, f.Label) {
			continue
		}
		filtered = append(filtered, t)
	}

	switch f.Sort {
	case SortPriority:
		sort.SliceStable(filtered, func(i, j int) bool {
			if filtered[i].Priority.Rank() != filtered[j].Priority.Rank() {
				return filtered[i].Priority.Rank() > filtered[j].Priority.Rank()
			}
			return appendSeq(filtered[i].ID) < appendSeq(filtered[j].ID)
		})
	default:
		sort.SliceStable(filtered, func(i, j int) bool {
			if !filtered[i].CreatedAt.Equal(filtered[j].CreatedAt) {
				return filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
			}
			return appendSeq(filtered[i].ID) < appendSeq(filtered[j].ID)
		})
	}

	start := 0
	if f.Cursor != "" {
		_, afterID, derr := DecodeCursor(f.Cursor)
		if derr != nil {
			return nil, "", models.NewError(models.CodeInvalidRequest, "invalid pagination cursor")
		}
		if afterID != "" {
			found := false
			for i, t := range filtered {
				if t.ID == afterID {
					start = i + 1
					found = true
					break
				}
			}
			// A cursor referencing a task no longer in the filtered set
			// (e.g. it completed since the prior page) yields an empty
			// rather than a fabricated page.
			if !found {
				start = len(filtered)
			}
		}
	}
	if start > len(filtered) {
		start = len(filtered)
	}

	end := start + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	page = filtered[start:end]
	if end < len(filtered) {
		last := page[len(page)-1]
		nextCursor = EncodeCursor(string(f.Sort), last.ID)
	}
	return page, nextCursor, nil
}

func hasLabel(labels []string, want string) bool {
	for _, l := range labels {
		if strings.EqualFold(l, want) {
			return true
		}
	}
	return false
}
