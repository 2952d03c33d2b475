package api

import (
	"net/http"

	"github.com/albri/mdplane/internal/credential"
	"github.com/albri/mdplane/internal/idgen"
	"github.com/albri/mdplane/internal/models"
)

type bootstrapRequest struct {
	Name string `json:"name"`
}

type bootstrapResponse struct {
	WorkspaceID string `json:"workspaceId"`
	Name        string `json:"name"`
	ReadKey     string `json:"readKey"`
	AppendKey   string `json:"appendKey"`
	WriteKey    string `json:"writeKey"`
}

// handleBootstrap implements POST /bootstrap: it creates a fresh,
// unclaimed workspace and mints its three root, workspace-scoped
// capability keys, returning the plaintexts exactly once (§4.1, §6).
// Nothing else in the system can ever recover these values again.
func (a *API) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	var req bootstrapRequest
	// The body is optional; an absent or empty name falls back to a
	// default rather than failing the request.
	if r.ContentLength != 0 {
		if derr := decodeAndValidate(r, &req); derr != nil {
			writeDomainError(w, http.StatusBadRequest, derr)
			return
		}
	}
	if req.Name == "" {
		req.Name = "Untitled workspace"
	}

	ws := &models.Workspace{Name: req.Name}
	ws, err := a.deps.SQL.CreateWorkspace(r.Context(), ws)
	if err != nil {
		writeBusinessError(w, err)
		return
	}

	readKey, err := a.mintCapabilityKey(r, ws.ID, models.PermissionRead)
	if err != nil {
		writeBusinessError(w, err)
		return
	}
	appendKey, err := a.mintCapabilityKey(r, ws.ID, models.PermissionAppend)
	if err != nil {
		writeBusinessError(w, err)
		return
	}
	writeKey, err := a.mintCapabilityKey(r, ws.ID, models.PermissionWrite)
	if err != nil {
		writeBusinessError(w, err)
		return
	}

	actor := credentialSystemActor(ws.ID)
	a.recordAudit(r, &actor, "workspace.bootstrap", ws.ID, map[string]any{"name": ws.Name})
	writeOK(w, http.StatusCreated, bootstrapResponse{
		WorkspaceID: ws.ID,
		Name:        ws.Name,
		ReadKey:     readKey,
		AppendKey:   appendKey,
		WriteKey:    writeKey,
	})
}

// mintCapabilityKey generates and persists a new workspace-scoped
// capability key of the given permission, returning its plaintext.
func (a *API) mintCapabilityKey(r *http.Request, workspaceID string, perm models.Permission) (string, error) {
	plaintext := idgen.CapabilityKeyPlaintext()
	key := &models.CapabilityKey{
		ID:          idgen.New("cap_"),
		WorkspaceID: workspaceID,
		Prefix:      plaintext[:4],
		KeyHash:     credential.HashKey(plaintext),
		Permission:  perm,
		ScopeType:   models.ScopeWorkspace,
		ScopePath:   "/",
	}
	if _, err := a.deps.SQL.CreateCapabilityKey(r.Context(), key); err != nil {
		return "", err
	}
	return plaintext, nil
}

// credentialSystemActor builds the audit-log actor context for
// workspace-level actions that happen before any credential has
// resolved (bootstrap), attributing them to the system rather than a
// caller identity.
func credentialSystemActor(workspaceID string) credential.Resolved {
	return credential.Resolved{
		WorkspaceID: workspaceID,
		ActorType:   models.ActorSystem,
		Actor:       "system",
	}
}
