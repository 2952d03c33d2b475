package api

import (
	"net/http"
	"time"

	"github.com/albri/mdplane/internal/models"
)

type authMeResponse struct {
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	WorkspaceID string `json:"workspaceId,omitempty"`
}

// handleAuthMe implements GET /auth/me: it validates the session cookie
// and reports the authenticated user plus the workspace they own, if
// any. Unlike withSession, there's no {ws} path param here to check
// ownership against, so this only validates the token itself.
func (a *API) handleAuthMe(w http.ResponseWriter, r *http.Request) {
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

	resp := authMeResponse{UserID: claims.UserID, Email: claims.Email}
	if ws, err := a.deps.SQL.WorkspaceForUser(r.Context(), claims.UserID); err == nil {
		resp.WorkspaceID = ws.ID
	}
	writeOK(w, http.StatusOK, resp)
}

// handleAuthLogout implements POST /auth/logout. Session tokens are
// stateless JWTs with no server-side store to revoke against, so
// logout is expressed entirely by expiring the cookie on the client.
func (a *API) handleAuthLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "better-auth.session_token",
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeOK(w, http.StatusOK, map[string]bool{"loggedOut": true})
}
