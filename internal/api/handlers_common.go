package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/albri/mdplane/internal/credential"
	"github.com/albri/mdplane/internal/models"
)

// capabilityHandler is the signature every capability-URL endpoint is
// written against once the key has resolved: res carries the
// workspace/permission/scope context and segments is the decoded,
// percent-decoded wildcard path below the key.
type capabilityHandler func(w http.ResponseWriter, r *http.Request, res *credential.Resolved, segments []string)

// withCapability resolves the {key} URL param against minPerm and the
// decoded wildcard suffix, then calls h. Every failure — malformed
// encoding, path traversal, or any credential-resolution outcome — is
// surfaced as the capability-URL's uniform 404, per §4.1's
// information-leakage rule; decode failures use their own 400 codes
// since they're rejected before a key is even looked up.
func (a *API) withCapability(minPerm models.Permission, h capabilityHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		wildcard := chi.URLParam(r, "*")

		segments, derr := credential.DecodePath(wildcard)
		if derr != nil {
			writeDomainError(w, statusForCode(derr.Code), derr)
			return
		}

		resourcePath := "/" + strings.Join(segments, "/")
		res, derr := a.deps.Resolver.ResolveCapability(r.Context(), key, minPerm, resourcePath, time.Now())
		if derr != nil {
			writeCapabilityCredentialError(w, derr)
			return
		}
		h(w, r, res, segments)
	}
}

// dispatchCapabilityPost routes a POST under /a or /w to the append or
// heartbeat handler based on the wildcard's trailing segment, since both
// share the "/{prefix}/{key}/*" mount point with file writes.
func (a *API) dispatchCapabilityPost(w http.ResponseWriter, r *http.Request, res *credential.Resolved, segments []string) {
	if len(segments) >= 1 {
		switch segments[len(segments)-1] {
		case "append":
			a.handleAppendCreate(w, r, res, segments[:len(segments)-1])
			return
		case "heartbeat":
			a.handleHeartbeat(w, r, res, segments[:len(segments)-1])
			return
		}
	}
	writeError(w, http.StatusNotFound, models.CodeNotFound, "unknown capability endpoint", nil)
}

// segmentsToPath joins decoded path segments back into the absolute,
// slash-separated file/folder path used by the kv store.
func segmentsToPath(segments []string) string {
	return "/" + strings.Join(segments, "/")
}

// sessionHandler is the signature for session-authenticated
// /workspaces/{ws}/... endpoints, called once the cookie has resolved
// to an owning user.
type sessionHandler func(w http.ResponseWriter, r *http.Request, res *credential.Resolved)

// withSession resolves the `better-auth.session_token` cookie against
// the {ws} URL param, per §4.1's session path.
func (a *API) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws := chi.URLParam(r, "ws")
		cookie, err := r.Cookie("better-auth.session_token")
		if err != nil {
			writeError(w, http.StatusUnauthorized, models.CodeUnauthorized, "no session cookie", nil)
			return
		}
		res, derr := a.deps.Resolver.ResolveSession(r.Context(), cookie.Value, ws)
		if derr != nil {
			writeDomainError(w, statusForCode(derr.Code), derr)
			return
		}
		h(w, r, res)
	}
}
