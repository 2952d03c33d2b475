// Package quota enforces the per-workspace storage byte budget (spec.md
// §4.7): the sum of non-deleted file content across a workspace must never
// exceed the workspace's configured quota.
package quota

import (
	"github.com/albri/mdplane/internal/models"
)

// FileLister is the subset of the kv store quota needs to compute current
// usage: every non-deleted file under a workspace.
type FileLister interface {
	ListFilesByPrefix(workspaceID, prefix string) ([]*models.File, error)
}

// Enforcer checks a workspace's storage usage against its configured
// quota before a write is allowed to proceed.
type Enforcer struct {
	files        FileLister
	defaultBytes int64
}

// NewEnforcer constructs an Enforcer. defaultBytes is used for any
// workspace whose StorageQuotaBytes is unset (zero).
func NewEnforcer(files FileLister, defaultBytes int64) *Enforcer {
	return &Enforcer{files: files, defaultBytes: defaultBytes}
}

// Usage returns the sum of content bytes across every non-deleted file in
// the workspace.
func (e *Enforcer) Usage(workspaceID string) (int64, error) {
	files, err := e.files.ListFilesByPrefix(workspaceID, "")
	if err != nil {
		return 0, err
	}
	var total int64
	for _, f := range files {
		if f.IsDeleted() {
			continue
		}
		total += int64(f.Size())
	}
	return total, nil
}

// LimitFor returns the effective quota for a workspace, falling back to
// the process default when the workspace carries none of its own.
func (e *Enforcer) LimitFor(ws *models.Workspace) int64 {
	if ws.StorageQuotaBytes > 0 {
		return ws.StorageQuotaBytes
	}
	return e.defaultBytes
}

// CheckWrite enforces §4.7's "current_sum - existing_file_size +
// new_content_size" rule for a PUT that replaces existingSize bytes with
// newSize bytes (existingSize is 0 for a brand-new file).
func (e *Enforcer) CheckWrite(ws *models.Workspace, existingSize, newSize int64) error {
	usage, err := e.Usage(ws.ID)
	if err != nil {
		return err
	}
	limit := e.LimitFor(ws)
	projected := usage - existingSize + newSize
	if projected > limit {
		return models.NewErrorWithDetails(models.CodeQuotaExceeded,
			"writing this file would exceed the workspace storage quota",
			map[string]any{
				"usageBytes":     usage,
				"limitBytes":     limit,
				"projectedBytes": projected,
			})
	}
	return nil
}
