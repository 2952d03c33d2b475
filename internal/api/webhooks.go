package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/albri/mdplane/internal/credential"
	"github.com/albri/mdplane/internal/idgen"
	"github.com/albri/mdplane/internal/models"
)

type webhookResponse struct {
	ID        string              `json:"id"`
	ScopeType models.ScopeType    `json:"scopeType"`
	ScopePath string              `json:"scopePath"`
	Recursive bool                `json:"recursive"`
	URL       string              `json:"url"`
	Events    []string            `json:"events"`
	Status    models.WebhookStatus `json:"status"`
	CreatedAt string              `json:"createdAt"`
}

func toWebhookResponse(wh *models.Webhook) webhookResponse {
	return webhookResponse{
		ID:        wh.ID,
		ScopeType: wh.ScopeType,
		ScopePath: wh.ScopePath,
		Recursive: wh.Recursive,
		URL:       wh.URL,
		Events:    []string(wh.Events),
		Status:    wh.Status,
		CreatedAt: formatTimestamp(wh.CreatedAt),
	}
}

// handleListWebhooks implements GET /workspaces/{ws}/webhooks.
func (a *API) handleListWebhooks(w http.ResponseWriter, r *http.Request, res *credential.Resolved) {
	hooks, err := a.deps.SQL.ListWebhooks(r.Context(), res.WorkspaceID)
	if err != nil {
		writeBusinessError(w, err)
		return
	}
	out := make([]webhookResponse, 0, len(hooks))
	for _, wh := range hooks {
		out = append(out, toWebhookResponse(wh))
	}
	writeOK(w, http.StatusOK, map[string]any{"webhooks": out})
}

type createWebhookRequest struct {
	ScopeType models.ScopeType `json:"scopeType" validate:"required,oneof=workspace folder file"`
	ScopePath string           `json:"scopePath"`
	Recursive bool             `json:"recursive"`
	URL       string           `json:"url" validate:"required,url"`
	Events    []string         `json:"events" validate:"required,min=1"`
}

// handleCreateWebhook implements POST /workspaces/{ws}/webhooks: the
// URL is validated against the SSRF policy and the active-hook limit is
// enforced before the row is inserted (§4.6).
func (a *API) handleCreateWebhook(w http.ResponseWriter, r *http.Request, res *credential.Resolved) {
	var req createWebhookRequest
	if derr := decodeAndValidate(r, &req); derr != nil {
		writeDomainError(w, http.StatusBadRequest, derr)
		return
	}
	if derr := a.deps.WebhookPolicy.Validate(req.URL); derr != nil {
		writeDomainError(w, http.StatusBadRequest, derr)
		return
	}

	scopePath := req.ScopePath
	switch req.ScopeType {
	case models.ScopeWorkspace:
		scopePath = "/"
	case models.ScopeFolder:
		if scopePath == "" {
			scopePath = "/"
		}
	case models.ScopeFile:
		if scopePath == "" {
			writeError(w, http.StatusBadRequest, models.CodeInvalidRequest, "scopePath is required for a file-scoped webhook", nil)
			return
		}
	}

	count, err := a.deps.SQL.CountActiveWebhooks(r.Context(), res.WorkspaceID)
	if err != nil {
		writeBusinessError(w, err)
		return
	}
	limit := a.deps.Config.Webhooks.MaxPerWorkspace
	if limit <= 0 {
		limit = 10
	}
	if int(count) >= limit {
		writeError(w, http.StatusTooManyRequests, models.CodeWebhookLimit, "workspace has reached its active webhook limit",
			map[string]any{"limit": limit})
		return
	}

	wh := &models.Webhook{
		ID:          idgen.New("wh_"),
		WorkspaceID: res.WorkspaceID,
		ScopeType:   req.ScopeType,
		ScopePath:   scopePath,
		Recursive:   req.Recursive,
		URL:         req.URL,
		Secret:      idgen.WebhookSecret(),
		Events:      models.StringList(req.Events),
		Status:      models.WebhookStatusActive,
	}
	created, err := a.deps.SQL.CreateWebhook(r.Context(), wh)
	if err != nil {
		writeBusinessError(w, err)
		return
	}
	a.recordAudit(r, res, "webhook.create", created.ID, map[string]any{"url": created.URL})
	writeOK(w, http.StatusCreated, toWebhookResponse(created))
}

type updateWebhookRequest struct {
	Status *models.WebhookStatus `json:"status" validate:"omitempty,oneof=active paused"`
}

// handleUpdateWebhook implements PATCH /workspaces/{ws}/webhooks/{id}:
// currently the only mutable field is status (pause/resume).
func (a *API) handleUpdateWebhook(w http.ResponseWriter, r *http.Request, res *credential.Resolved) {
	id := chi.URLParam(r, "id")
	var req updateWebhookRequest
	if derr := decodeAndValidate(r, &req); derr != nil {
		writeDomainError(w, http.StatusBadRequest, derr)
		return
	}
	if req.Status == nil {
		writeError(w, http.StatusBadRequest, models.CodeInvalidRequest, "status is required", nil)
		return
	}
	if err := a.deps.SQL.UpdateWebhookStatus(r.Context(), res.WorkspaceID, id, *req.Status); err != nil {
		writeBusinessError(w, err)
		return
	}
	wh, err := a.deps.SQL.GetWebhook(r.Context(), res.WorkspaceID, id)
	if err != nil {
		writeBusinessError(w, err)
		return
	}
	a.recordAudit(r, res, "webhook.update", id, map[string]any{"status": *req.Status})
	writeOK(w, http.StatusOK, toWebhookResponse(wh))
}

// handleDeleteWebhook implements DELETE /workspaces/{ws}/webhooks/{id}.
func (a *API) handleDeleteWebhook(w http.ResponseWriter, r *http.Request, res *credential.Resolved) {
	id := chi.URLParam(r, "id")
	if err := a.deps.SQL.DeleteWebhook(r.Context(), res.WorkspaceID, id, time.Now()); err != nil {
		writeBusinessError(w, err)
		return
	}
	a.recordAudit(r, res, "webhook.delete", id, nil)
	writeOK(w, http.StatusOK, map[string]bool{"deleted": true})
}
