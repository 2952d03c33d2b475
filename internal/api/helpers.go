package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/albri/mdplane/internal/credential"
	"github.com/albri/mdplane/internal/logger"
	"github.com/albri/mdplane/internal/models"
)

// formatTimestamp renders a time.Time the way every JSON response in
// this API does: RFC3339 with nanosecond precision, UTC.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// farFuture is used as the cutoff for an immediate hard-purge: every
// soft-deleted file qualifies regardless of when it was deleted.
func farFuture() time.Time {
	return time.Now().AddDate(100, 0, 0)
}

// workspaceOrServerError loads the workspace row a quota check needs,
// writing a 500 and reporting failure if it can't be found — a missing
// workspace row for a resolved credential indicates control-plane/KV
// drift, not a client error.
func (a *API) workspaceOrServerError(ctx context.Context, w http.ResponseWriter, workspaceID string) (*models.Workspace, bool) {
	ws, err := a.deps.SQL.GetWorkspace(ctx, workspaceID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, models.CodeServerError, "failed to load workspace", nil)
		return nil, true
	}
	return ws, false
}

// recordAudit writes a best-effort audit log entry for a mutating
// request (§4.8). Failures are logged, never surfaced to the caller,
// since audit logging must not block the mutation it's recording.
func (a *API) recordAudit(r *http.Request, res *credential.Resolved, action, resourceID string, details map[string]any) {
	var detailsJSON string
	if details != nil {
		if b, err := json.Marshal(details); err == nil {
			detailsJSON = string(b)
		}
	}
	entry := &models.AuditLogEntry{
		WorkspaceID: res.WorkspaceID,
		ActorType:   res.ActorType,
		Actor:       res.Actor,
		Action:      action,
		ResourceID:  resourceID,
		Details:     detailsJSON,
	}
	if err := a.deps.SQL.RecordAudit(r.Context(), entry); err != nil {
		logger.WithContext(r.Context()).Error("record audit failed", "action", action, "error", err)
	}
}
