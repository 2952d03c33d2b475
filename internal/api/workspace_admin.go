package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/albri/mdplane/internal/credential"
	"github.com/albri/mdplane/internal/models"
	"github.com/albri/mdplane/internal/orchestration"
)

// handleClaimWorkspace implements POST /w/{key}/claim: the plaintext
// capability key names the workspace, and an OAuth session identifies
// the claiming user. Unlike every other /w route, this handler isn't
// wrapped by withCapability because it needs both credential families
// at once; a credential failure on either side is reported in that
// credential's own idiom (404 for the capability key, 401 for the
// session) rather than one masking the other.
func (a *API) handleClaimWorkspace(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	res, derr := a.deps.Resolver.ResolveCapability(r.Context(), key, models.PermissionWrite, "/", time.Now())
	if derr != nil {
		writeCapabilityCredentialError(w, derr)
		return
	}

	cookie, err := r.Cookie("better-auth.session_token")
	if err != nil {
		writeError(w, http.StatusUnauthorized, models.CodeUnauthorized, "no session cookie", nil)
		return
	}
	claims, err := a.deps.Sessions.ValidateSession(cookie.Value)
	if err != nil {
		writeError(w, http.StatusUnauthorized, models.CodeUnauthorized, "invalid or expired session", nil)
		return
	}

	ws, failed := a.workspaceOrServerError(r.Context(), w, res.WorkspaceID)
	if failed {
		return
	}
	if ws.IsClaimed() {
		writeError(w, http.StatusBadRequest, models.CodeAlreadyClaimed, "workspace already claimed", nil)
		return
	}

	if err := a.deps.SQL.ClaimWorkspace(r.Context(), ws.ID, claims.UserID, claims.Email, time.Now()); err != nil {
		writeBusinessError(w, err)
		return
	}
	a.recordAudit(r, res, "workspace.claim", ws.ID, map[string]any{"email": claims.Email})
	writeOK(w, http.StatusOK, map[string]any{"workspaceId": ws.ID, "claimedByEmail": claims.Email})
}

type renameWorkspaceRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// handleRenameWorkspaceSession implements PATCH /workspaces/{ws}/name.
func (a *API) handleRenameWorkspaceSession(w http.ResponseWriter, r *http.Request, res *credential.Resolved) {
	var req renameWorkspaceRequest
	if derr := decodeAndValidate(r, &req); derr != nil {
		writeDomainError(w, http.StatusBadRequest, derr)
		return
	}
	if err := a.deps.SQL.RenameWorkspace(r.Context(), res.WorkspaceID, req.Name); err != nil {
		writeBusinessError(w, err)
		return
	}
	a.recordAudit(r, res, "workspace.rename", res.WorkspaceID, map[string]any{"name": req.Name})
	writeOK(w, http.StatusOK, map[string]string{"name": req.Name})
}

// handleRenameWorkspaceCapability implements POST /w/{key}/workspace,
// the capability-URL equivalent of the session rename endpoint.
func (a *API) handleRenameWorkspaceCapability(w http.ResponseWriter, r *http.Request, res *credential.Resolved, segments []string) {
	var req renameWorkspaceRequest
	if derr := decodeAndValidate(r, &req); derr != nil {
		writeDomainError(w, http.StatusBadRequest, derr)
		return
	}
	if err := a.deps.SQL.RenameWorkspace(r.Context(), res.WorkspaceID, req.Name); err != nil {
		writeBusinessError(w, err)
		return
	}
	a.recordAudit(r, res, "workspace.rename", res.WorkspaceID, map[string]any{"name": req.Name})
	writeOK(w, http.StatusOK, map[string]string{"name": req.Name})
}

// handleRotateAll implements POST /workspaces/{ws}/rotate-all: every
// existing capability key is revoked and a fresh read/append/write set
// is minted in its place, mirroring bootstrap's key-issuance shape.
func (a *API) handleRotateAll(w http.ResponseWriter, r *http.Request, res *credential.Resolved) {
	now := time.Now()
	keys, err := a.deps.SQL.ListCapabilityKeys(r.Context(), res.WorkspaceID)
	if err != nil {
		writeBusinessError(w, err)
		return
	}
	for _, k := range keys {
		if k.RevokedAt != nil {
			continue
		}
		if err := a.deps.SQL.RevokeCapabilityKey(r.Context(), res.WorkspaceID, k.ID, now); err != nil {
			writeBusinessError(w, err)
			return
		}
	}

	readKey, err := a.mintCapabilityKey(r, res.WorkspaceID, models.PermissionRead)
	if err != nil {
		writeBusinessError(w, err)
		return
	}
	appendKey, err := a.mintCapabilityKey(r, res.WorkspaceID, models.PermissionAppend)
	if err != nil {
		writeBusinessError(w, err)
		return
	}
	writeKey, err := a.mintCapabilityKey(r, res.WorkspaceID, models.PermissionWrite)
	if err != nil {
		writeBusinessError(w, err)
		return
	}

	a.recordAudit(r, res, "workspace.rotate-all", res.WorkspaceID, map[string]any{"revoked": len(keys)})
	writeOK(w, http.StatusOK, bootstrapResponse{
		WorkspaceID: res.WorkspaceID,
		ReadKey:     readKey,
		AppendKey:   appendKey,
		WriteKey:    writeKey,
	})
}

// handleDeleteWorkspace implements DELETE /workspaces/{ws}.
func (a *API) handleDeleteWorkspace(w http.ResponseWriter, r *http.Request, res *credential.Resolved) {
	if err := a.deps.SQL.SoftDeleteWorkspace(r.Context(), res.WorkspaceID, time.Now()); err != nil {
		writeBusinessError(w, err)
		return
	}
	a.recordAudit(r, res, "workspace.delete", res.WorkspaceID, nil)
	writeOK(w, http.StatusOK, map[string]bool{"deleted": true})
}

type claimTransitionRequest struct {
	ExpiresInSeconds *int `json:"expiresInSeconds"`
}

// handleSessionClaimTransition builds the session-authenticated
// equivalent of the capability-URL claim transitions (renew/complete/
// cancel/block): the workspace owner acts on a claim identified by its
// globally addressable id, on behalf of the claim's own author, since
// the owner is the one party every claim in the workspace is
// accountable to (§4.3).
func (a *API) handleSessionClaimTransition(appendType models.AppendType) sessionHandler {
	return func(w http.ResponseWriter, r *http.Request, res *credential.Resolved) {
		cid := chi.URLParam(r, "cid")

		var req claimTransitionRequest
		if r.ContentLength != 0 {
			if derr := decodeAndValidate(r, &req); derr != nil {
				writeDomainError(w, http.StatusBadRequest, derr)
				return
			}
		}

		now := time.Now()
		derived, err := a.deps.KV.DeriveWorkspace(res.WorkspaceID, now)
		if err != nil {
			writeBusinessError(w, err)
			return
		}

		var claim *orchestration.Claim
		for _, c := range derived.Claims {
			if c.FileID+"_"+c.ID == cid {
				claim = c
				break
			}
		}
		if claim == nil {
			writeError(w, http.StatusNotFound, models.CodeNotFound, "claim not found", nil)
			return
		}

		ap := &models.Append{
			Author: claim.Author,
			Type:   appendType,
			Ref:    claim.ID,
		}
		if appendType == models.AppendRenew && req.ExpiresInSeconds != nil {
			exp := now.Add(time.Duration(*req.ExpiresInSeconds) * time.Second)
			ap.ExpiresAt = &exp
		}

		created, err := a.deps.KV.AppendEvent(res.WorkspaceID, claim.FileID, claim.FilePath, ap, now)
		if err != nil {
			writeBusinessError(w, err)
			return
		}

		a.recordAudit(r, res, "claim."+string(appendType), created.ID, map[string]any{"claimId": cid})
		a.notifyEvent(r.Context(), res.WorkspaceID, claim.FilePath, "append."+string(appendType), map[string]any{"append": created})
		writeOK(w, http.StatusOK, created)
	}
}
