package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/microcosm-cc/bluemonday"

	"github.com/albri/mdplane/internal/credential"
	"github.com/albri/mdplane/internal/idgen"
	"github.com/albri/mdplane/internal/models"
)

// htmlStripper strips every tag, leaving only text content, for the
// ApiKey.Name HTML-stripping invariant (§3).
var htmlStripper = bluemonday.StrictPolicy()

type apiKeyResponse struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	KeyPrefix  string              `json:"keyPrefix"`
	Mode       models.ApiKeyMode   `json:"mode"`
	Scopes     []models.ApiKeyScope `json:"scopes"`
	CreatedAt  string              `json:"createdAt"`
	ExpiresAt  string              `json:"expiresAt,omitempty"`
	LastUsedAt string              `json:"lastUsedAt,omitempty"`
	RevokedAt  string              `json:"revokedAt,omitempty"`
}

func toAPIKeyResponse(k *models.ApiKey) apiKeyResponse {
	resp := apiKeyResponse{
		ID:        k.ID,
		Name:      k.Name,
		KeyPrefix: k.KeyPrefix,
		Mode:      k.Mode,
		Scopes:    []models.ApiKeyScope(k.Scopes),
		CreatedAt: formatTimestamp(k.CreatedAt),
	}
	if k.ExpiresAt != nil {
		resp.ExpiresAt = formatTimestamp(*k.ExpiresAt)
	}
	if k.LastUsedAt != nil {
		resp.LastUsedAt = formatTimestamp(*k.LastUsedAt)
	}
	if k.RevokedAt != nil {
		resp.RevokedAt = formatTimestamp(*k.RevokedAt)
	}
	return resp
}

// handleListAPIKeys implements GET /workspaces/{ws}/api-keys.
func (a *API) handleListAPIKeys(w http.ResponseWriter, r *http.Request, res *credential.Resolved) {
	keys, err := a.deps.SQL.ListAPIKeys(r.Context(), res.WorkspaceID)
	if err != nil {
		writeBusinessError(w, err)
		return
	}
	out := make([]apiKeyResponse, 0, len(keys))
	for _, k := range keys {
		out = append(out, toAPIKeyResponse(k))
	}
	writeOK(w, http.StatusOK, map[string]any{"apiKeys": out})
}

type createAPIKeyRequest struct {
	Name            string              `json:"name" validate:"required,max=64"`
	Mode            models.ApiKeyMode   `json:"mode" validate:"required,oneof=live test"`
	Scopes          []models.ApiKeyScope `json:"scopes" validate:"required,min=1,dive,oneof=read append write export"`
	ExpiresInSeconds *int               `json:"expiresInSeconds"`
}

type createAPIKeyResponse struct {
	apiKeyResponse
	Key string `json:"key"`
}

// handleCreateAPIKey implements POST /workspaces/{ws}/api-keys,
// rate-limited 10/minute per workspace (§4.1, §4.7). The plaintext is
// returned exactly once and never persisted.
func (a *API) handleCreateAPIKey(w http.ResponseWriter, r *http.Request, res *credential.Resolved) {
	var req createAPIKeyRequest
	if derr := decodeAndValidate(r, &req); derr != nil {
		writeDomainError(w, http.StatusBadRequest, derr)
		return
	}

	plaintext := idgen.APIKeyPlaintext(string(req.Mode))
	now := time.Now()
	key := &models.ApiKey{
		ID:          idgen.New("key_"),
		WorkspaceID: res.WorkspaceID,
		Name:        htmlStripper.Sanitize(req.Name),
		KeyHash:     credential.HashKey(plaintext),
		KeyPrefix:   plaintext[:12] + "...",
		Mode:        req.Mode,
		Scopes:      models.ScopeList(req.Scopes).Dedup(),
		CreatedAt:   now,
	}
	if req.ExpiresInSeconds != nil {
		exp := now.Add(time.Duration(*req.ExpiresInSeconds) * time.Second)
		key.ExpiresAt = &exp
	}

	created, err := a.deps.SQL.CreateAPIKey(r.Context(), key)
	if err != nil {
		writeBusinessError(w, err)
		return
	}

	a.recordAudit(r, res, "apikey.create", created.ID, map[string]any{"name": created.Name, "mode": created.Mode})
	writeOK(w, http.StatusCreated, createAPIKeyResponse{apiKeyResponse: toAPIKeyResponse(created), Key: plaintext})
}

// handleRevokeAPIKey implements DELETE /workspaces/{ws}/api-keys/{id}.
func (a *API) handleRevokeAPIKey(w http.ResponseWriter, r *http.Request, res *credential.Resolved) {
	id := chi.URLParam(r, "id")
	if err := a.deps.SQL.RevokeAPIKey(r.Context(), res.WorkspaceID, id, time.Now()); err != nil {
		writeBusinessError(w, err)
		return
	}
	a.recordAudit(r, res, "apikey.revoke", id, nil)
	writeOK(w, http.StatusOK, map[string]bool{"revoked": true})
}
