package api

import (
	"github.com/albri/mdplane/internal/auth"
	"github.com/albri/mdplane/internal/config"
	"github.com/albri/mdplane/internal/content"
	"github.com/albri/mdplane/internal/credential"
	"github.com/albri/mdplane/internal/metrics"
	"github.com/albri/mdplane/internal/quota"
	"github.com/albri/mdplane/internal/ratelimit"
	"github.com/albri/mdplane/internal/store/kv"
	"github.com/albri/mdplane/internal/store/sql"
	"github.com/albri/mdplane/internal/webhook"
)

// Deps bundles every collaborator the HTTP handlers need. It is assembled
// once at process startup (cmd/mdplaned) and threaded through unchanged
// for the life of the server.
type Deps struct {
	KV            *kv.Store
	SQL           *sql.Store
	Resolver      *credential.Resolver
	Sessions      *auth.SessionService
	RateLimits    *ratelimit.Registry
	Quota         *quota.Enforcer
	WebhookPolicy webhook.Policy
	Content       content.Store
	Metrics       *metrics.Metrics
	Config        *config.Config
}

// API holds the assembled dependency set and exposes the http.Handler the
// server mounts. Handler methods hang off this type the way the teacher's
// Handler structs hang off a store reference.
type API struct {
	deps Deps
}

// New constructs an API from its dependencies.
func New(deps Deps) *API {
	return &API{deps: deps}
}
