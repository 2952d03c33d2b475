package api

import (
	"net/http"
	"time"

	"github.com/albri/mdplane/internal/credential"
	"github.com/albri/mdplane/internal/models"
	"github.com/albri/mdplane/internal/orchestration"
)

type appendRequest struct {
	Type      models.AppendType `json:"type" validate:"required"`
	Author    string            `json:"author" validate:"required"`
	Priority  models.Priority   `json:"priority"`
	Ref       string            `json:"ref"`
	Labels    []string          `json:"labels"`
	Value     string            `json:"value"`
	Content   string            `json:"content"`
	ExpiresIn *int              `json:"expiresInSeconds"`
}

// handleAppendCreate implements POST .../append under /a and /w (§4.2,
// §4.3). Every protocol rule — claim races, author binding, WIP limits —
// is enforced here rather than in the kv store, which only knows how to
// validate a single append against the file's derived state.
func (a *API) handleAppendCreate(w http.ResponseWriter, r *http.Request, res *credential.Resolved, segments []string) {
	if len(segments) == 0 {
		writeError(w, http.StatusNotFound, models.CodeFileNotFound, "file not found", nil)
		return
	}
	var req appendRequest
	if derr := decodeAndValidate(r, &req); derr != nil {
		writeDomainError(w, http.StatusBadRequest, derr)
		return
	}
	if derr := credential.CheckBoundAuthor(res, req.Author); derr != nil {
		writeDomainError(w, http.StatusBadRequest, derr)
		return
	}
	if !models.ValidAuthor(req.Author) {
		writeError(w, http.StatusBadRequest, models.CodeInvalidAuthor, "author does not satisfy the naming rules", nil)
		return
	}

	filePath := segmentsToPath(segments)
	f, err := a.deps.KV.GetFileByPath(res.WorkspaceID, filePath)
	if err != nil {
		writeBusinessError(w, err)
		return
	}
	if f.IsDeleted() {
		writeError(w, http.StatusGone, models.CodeGone, "file has been deleted", nil)
		return
	}

	if req.Type == models.AppendClaim {
		if derr := a.checkWIPLimit(res, req.Author); derr != nil {
			writeDomainError(w, http.StatusTooManyRequests, derr)
			return
		}
	}

	now := time.Now()
	ap := &models.Append{
		Author:         req.Author,
		Type:           req.Type,
		Priority:       req.Priority,
		Ref:            req.Ref,
		Labels:         req.Labels,
		Value:          req.Value,
		Content:        req.Content,
		ContentPreview: previewOf(req.Content),
	}
	if req.ExpiresIn != nil {
		exp := now.Add(time.Duration(*req.ExpiresIn) * time.Second)
		ap.ExpiresAt = &exp
	}

	created, err := a.deps.KV.AppendEvent(res.WorkspaceID, f.ID, filePath, ap, now)
	if err != nil {
		if derr, ok := models.AsDomainError(err); ok && req.Type == models.AppendClaim && derr.Code == models.CodeAlreadyClaimed {
			// A second concurrent claim on the same task is a 409
			// CONFLICT, distinct from the 400 ALREADY_CLAIMED reserved
			// for a workspace-ownership claim race (§4.3).
			writeError(w, http.StatusConflict, models.CodeConflict, "task already has an active claim", nil)
			return
		}
		writeBusinessError(w, err)
		return
	}

	a.recordAudit(r, res, "append."+string(req.Type), created.ID, map[string]any{"path": filePath})
	a.notifyEvent(r.Context(), res.WorkspaceID, filePath, "append."+string(req.Type),
		map[string]any{"append": created})
	writeOK(w, http.StatusCreated, created)
}

// checkWIPLimit enforces a capability key's per-author work-in-progress
// cap by counting the author's active claims across the whole workspace,
// since WIP is a cross-file limit (§4.3, §5).
func (a *API) checkWIPLimit(res *credential.Resolved, author string) *models.DomainError {
	if res.WipLimit == nil {
		return nil
	}
	appends, err := a.deps.KV.ListWorkspaceAppends(res.WorkspaceID)
	if err != nil {
		return models.NewError(models.CodeServerError, "failed to evaluate WIP limit")
	}
	derived := orchestration.Derive(appends, time.Now())
	active := 0
	for _, c := range derived.Claims {
		if c.Author == author && c.Status == models.ClaimActive {
			active++
		}
	}
	if active >= *res.WipLimit {
		return models.NewErrorWithDetails(models.CodeWIPExceeded,
			"author has reached their work-in-progress limit",
			map[string]any{"limit": *res.WipLimit, "active": active})
	}
	return nil
}

func previewOf(content string) string {
	const max = 200
	if len(content) <= max {
		return content
	}
	return content[:max]
}

type heartbeatRequest struct {
	Status      string         `json:"status" validate:"required"`
	CurrentTask string         `json:"currentTask"`
	Metadata    map[string]any `json:"metadata"`
}

// handleHeartbeat implements POST .../heartbeat under /a and /w (§4.9).
// segments is empty here since heartbeats are workspace-scoped, not
// attached to a particular file.
func (a *API) handleHeartbeat(w http.ResponseWriter, r *http.Request, res *credential.Resolved, segments []string) {
	var req heartbeatRequest
	if derr := decodeAndValidate(r, &req); derr != nil {
		writeDomainError(w, http.StatusBadRequest, derr)
		return
	}
	author := res.BoundAuthor
	if author == "" {
		writeError(w, http.StatusBadRequest, models.CodeInvalidAuthor,
			"this capability key has no bound author for heartbeats", nil)
		return
	}

	metaBytes := 0
	if req.Metadata != nil {
		for k, v := range req.Metadata {
			metaBytes += len(k)
			if s, ok := v.(string); ok {
				metaBytes += len(s)
			}
		}
	}
	if metaBytes > models.MaxHeartbeatMetadataBytes {
		writeError(w, http.StatusBadRequest, models.CodeInvalidRequest, "heartbeat metadata exceeds the size limit", nil)
		return
	}

	hb := &models.Heartbeat{
		WorkspaceID: res.WorkspaceID,
		Author:      author,
		Status:      req.Status,
		CurrentTask: req.CurrentTask,
		Metadata:    req.Metadata,
		LastSeen:    time.Now().Unix(),
	}
	if err := a.deps.KV.UpsertHeartbeat(hb); err != nil {
		writeBusinessError(w, err)
		return
	}
	writeOK(w, http.StatusOK, hb)
}

// handleCapabilityLiveness serves GET .../agents/liveness under a
// capability key: the real per-workspace agent/heartbeat view, distinct
// from the bare process probe mounted at /api/v1/agents/liveness.
func (a *API) handleCapabilityLiveness(w http.ResponseWriter, r *http.Request, res *credential.Resolved, segments []string) {
	heartbeats, err := a.deps.KV.ListHeartbeats(res.WorkspaceID)
	if err != nil {
		writeBusinessError(w, err)
		return
	}
	now := time.Now()
	type agentLiveness struct {
		Author      string `json:"author"`
		Status      string `json:"status"`
		CurrentTask string `json:"currentTask,omitempty"`
		LastSeen    int64  `json:"lastSeen"`
		Stale       bool   `json:"stale"`
	}
	staleAfter := a.deps.Config.Orchestration.StaleAfter
	out := make([]agentLiveness, 0, len(heartbeats))
	for _, hb := range heartbeats {
		stale := now.Sub(time.Unix(hb.LastSeen, 0)) > staleAfter
		out = append(out, agentLiveness{
			Author:      hb.Author,
			Status:      hb.Status,
			CurrentTask: hb.CurrentTask,
			LastSeen:    hb.LastSeen,
			Stale:       stale,
		})
	}
	writeOK(w, http.StatusOK, map[string]any{"agents": out})
}
