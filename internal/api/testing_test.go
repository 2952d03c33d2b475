package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/albri/mdplane/internal/auth"
	"github.com/albri/mdplane/internal/config"
	"github.com/albri/mdplane/internal/content"
	"github.com/albri/mdplane/internal/credential"
	"github.com/albri/mdplane/internal/quota"
	"github.com/albri/mdplane/internal/ratelimit"
	"github.com/albri/mdplane/internal/store/kv"
	"github.com/albri/mdplane/internal/store/sql"
	"github.com/albri/mdplane/internal/webhook"
)

// newTestAPI builds an *API wired to a fresh in-memory sqlite + in-memory
// badger pair, the same dependency graph cmd/mdplaned assembles, so
// handler tests exercise real store logic instead of mocks.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "mdplane-test.db")
	sqlStore, err := sql.Open(config.DatabaseConfig{Driver: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { sqlStore.Close() })

	kvStore, err := kv.Open(config.KVConfig{Path: t.TempDir(), InMemory: true})
	if err != nil {
		t.Fatalf("open kv: %v", err)
	}
	t.Cleanup(func() { kvStore.Close() })

	contentStore := content.NewInlineStore(kvStore.DB())

	sessions, err := auth.NewSessionService(auth.SessionConfig{
		Secret: "test-signing-key-at-least-32-bytes-long",
	})
	if err != nil {
		t.Fatalf("new session service: %v", err)
	}

	resolver := credential.NewResolver(sqlStore, sqlStore, sessions)

	cfg := config.GetDefaultConfig()
	cfg.Admin.Secret = "admin-secret"

	return New(Deps{
		KV:            kvStore,
		SQL:           sqlStore,
		Resolver:      resolver,
		Sessions:      sessions,
		RateLimits:    ratelimit.NewRegistry(),
		Quota:         quota.NewEnforcer(kvStore, cfg.Quota.DefaultBytes),
		WebhookPolicy: webhook.NewPolicy("webhook.test"),
		Content:       contentStore,
		Metrics:       nil,
		Config:        cfg,
	})
}

// rawEnvelope mirrors envelope but keeps Data undecoded, so tests can
// unmarshal it into whatever response shape the endpoint under test uses.
type rawEnvelope struct {
	OK         bool            `json:"ok"`
	Data       json.RawMessage `json:"data"`
	Pagination *pageInfo       `json:"pagination"`
	Error      *envelopeError  `json:"error"`
}

// decodeEnvelope decodes a recorded response body's envelope and, when
// data is non-nil, unmarshals its data field into it.
func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, data any) rawEnvelope {
	t.Helper()
	var env rawEnvelope
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("decode envelope data: %v", err)
		}
	}
	return env
}

// claimedWorkspace bootstraps a fresh workspace and claims it with an
// OAuth session, returning the capability keys and a session cookie
// ready for the /workspaces/{ws}/... session-authenticated surface.
func claimedWorkspace(t *testing.T, a *API) (bootstrapResponse, *http.Cookie) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/bootstrap", bytes.NewBufferString(`{"name":"Claim Test"}`))
	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("bootstrap status = %d, body = %s", w.Code, w.Body.String())
	}
	var boot bootstrapResponse
	decodeEnvelope(t, w, &boot)

	token, _, err := a.deps.Sessions.IssueSession("usr_claim_test", "owner@example.com", "")
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	cookie := &http.Cookie{Name: "better-auth.session_token", Value: token}

	claimReq := httptest.NewRequest(http.MethodPost, "/w/"+boot.WriteKey+"/claim", nil)
	claimReq.AddCookie(cookie)
	claimW := httptest.NewRecorder()
	a.Router().ServeHTTP(claimW, claimReq)
	if claimW.Code != http.StatusOK {
		t.Fatalf("claim status = %d, body = %s", claimW.Code, claimW.Body.String())
	}

	return boot, cookie
}
