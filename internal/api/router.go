package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/albri/mdplane/internal/models"
)

// Router builds the full HTTP surface named in spec.md §6: three
// permission-gated capability-URL trees (/r, /a, /w), the API-key/
// OAuth-session management surface, and the admin/liveness endpoints.
// Middleware ordering follows the teacher's router.go exactly:
// RequestID, RealIP, requestLogger, Recoverer, Timeout.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeOK(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Bare liveness probe for the process itself, distinct from the
	// per-workspace agent liveness view exposed under a capability key
	// (handleCapabilityLiveness).
	r.Get("/api/v1/agents/liveness", func(w http.ResponseWriter, r *http.Request) {
		writeOK(w, http.StatusOK, map[string]string{"status": "alive"})
	})
	r.Get("/api/v1/admin/metrics", a.handleAdminMetrics)

	r.Post("/bootstrap", rateLimited(a.deps.RateLimits.Bootstrap, clientIP, "bootstrap", a.deps.Metrics, a.handleBootstrap))
	r.Get("/auth/me", a.handleAuthMe)
	r.Post("/auth/logout", a.handleAuthLogout)

	r.Route("/workspaces/{ws}", func(r chi.Router) {
		r.Get("/api-keys", a.withSession(a.handleListAPIKeys))
		r.With(apiKeyCreateLimit(a)).Post("/api-keys", a.withSession(a.handleCreateAPIKey))
		r.Delete("/api-keys/{id}", a.withSession(a.handleRevokeAPIKey))

		r.Get("/webhooks", a.withSession(a.handleListWebhooks))
		r.Post("/webhooks", a.withSession(a.handleCreateWebhook))
		r.Patch("/webhooks/{id}", a.withSession(a.handleUpdateWebhook))
		r.Delete("/webhooks/{id}", a.withSession(a.handleDeleteWebhook))

		r.Post("/export", a.withSession(a.handleCreateExportJob))
		r.Get("/export/{id}", a.withSession(a.handleGetExportJob))

		r.Get("/orchestration", a.withSession(a.handleSessionOrchestration))
		r.Post("/claims/{cid}/renew", a.withSession(a.handleSessionClaimTransition(models.AppendRenew)))
		r.Post("/claims/{cid}/complete", a.withSession(a.handleSessionClaimTransition(models.AppendComplete)))
		r.Post("/claims/{cid}/cancel", a.withSession(a.handleSessionClaimTransition(models.AppendCancel)))
		r.Post("/claims/{cid}/block", a.withSession(a.handleSessionClaimTransition(models.AppendBlocked)))

		r.Patch("/name", a.withSession(a.handleRenameWorkspaceSession))
		r.Post("/rotate-all", a.withSession(a.handleRotateAll))
		r.Delete("/", a.withSession(a.handleDeleteWorkspace))
	})

	a.mountCapabilityRoutes(r, "r", models.PermissionRead)
	a.mountCapabilityRoutes(r, "a", models.PermissionAppend)
	a.mountCapabilityRoutes(r, "w", models.PermissionWrite)

	return r
}

func apiKeyCreateLimit(a *API) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return rateLimited(a.deps.RateLimits.APIKeyCreate, workspaceKeyFromPath, "apikey-create", a.deps.Metrics, next.ServeHTTP)
	}
}

// mountCapabilityRoutes wires the capability-URL tree for one of the
// three {r,a,w} prefixes. Which sub-routes exist under a given prefix is
// itself part of the permission gate described in §4.1: append/
// heartbeat only exist under /a and /w, file mutation and workspace
// administration only under /w. A read-only key can never reach a write
// route because the route simply isn't mounted under /r, independent of
// the resolver's own permission check against the key's granted
// permission.
func (a *API) mountCapabilityRoutes(r chi.Router, prefix string, minPerm models.Permission) {
	r.Route("/"+prefix+"/{key}", func(r chi.Router) {
		rl := func(h http.HandlerFunc) http.HandlerFunc {
			return rateLimited(a.deps.RateLimits.CapabilityRead, capabilityKeyFromPath, "capability-read", a.deps.Metrics, h)
		}

		r.Get("/folders", rl(a.withCapability(minPerm, a.handleFolderList)))
		r.Get("/folders/*", rl(a.withCapability(minPerm, a.handleFolderList)))
		r.Get("/orchestration", rl(a.withCapability(minPerm, a.handleCapabilityOrchestration)))
		r.Get("/search", rl(a.withCapability(minPerm, a.handleCapabilitySearch)))
		r.Get("/agents/liveness", rl(a.withCapability(minPerm, a.handleCapabilityLiveness)))

		if prefix == "a" || prefix == "w" {
			r.Post("/*", a.withCapability(minPerm, a.dispatchCapabilityPost))
		}

		r.Get("/*", rl(a.withCapability(minPerm, a.handleFileGet)))

		if prefix == "w" {
			r.Put("/*", a.withCapability(minPerm, a.handleFileOrFolderPut))
			r.Delete("/*", a.withCapability(minPerm, a.handleFileOrFolderDelete))
			r.Post("/claim", a.handleClaimWorkspace)
			r.Post("/workspace", a.withCapability(minPerm, a.handleRenameWorkspaceCapability))
		}
	})
}

func capabilityKeyFromPath(r *http.Request) string {
	return chi.URLParam(r, "key")
}

func workspaceKeyFromPath(r *http.Request) string {
	return chi.URLParam(r, "ws")
}
