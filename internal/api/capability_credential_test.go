package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/albri/mdplane/internal/credential"
	"github.com/albri/mdplane/internal/models"
)

// TestCapabilityCredentialFailures_AllReturn404WithDistinctCodes covers
// spec.md §4.1's information-leakage rule: regardless of why a
// capability-URL credential failed, the HTTP status is always 404 — only
// the envelope's error.code distinguishes an unknown key from a revoked
// one from an expired one.
func TestCapabilityCredentialFailures_AllReturn404WithDistinctCodes(t *testing.T) {
	a := newTestAPI(t)
	boot, _ := claimedWorkspace(t, a)

	revokedPlaintext := "revokedCapabilityKey0001"
	revokedAt := time.Now().Add(-time.Hour)
	revokedKey := &models.CapabilityKey{
		ID: "cap_revoked", WorkspaceID: boot.WorkspaceID, Prefix: revokedPlaintext[:4],
		KeyHash: credential.HashKey(revokedPlaintext), Permission: models.PermissionRead,
		ScopeType: models.ScopeWorkspace, ScopePath: "/", RevokedAt: &revokedAt,
	}
	if _, err := a.deps.SQL.CreateCapabilityKey(context.Background(), revokedKey); err != nil {
		t.Fatalf("create revoked key: %v", err)
	}

	expiredPlaintext := "expiredCapabilityKey0001"
	expiredAt := time.Now().Add(-time.Minute)
	expiredKey := &models.CapabilityKey{
		ID: "cap_expired", WorkspaceID: boot.WorkspaceID, Prefix: expiredPlaintext[:4],
		KeyHash: credential.HashKey(expiredPlaintext), Permission: models.PermissionRead,
		ScopeType: models.ScopeWorkspace, ScopePath: "/", ExpiresAt: &expiredAt,
	}
	if _, err := a.deps.SQL.CreateCapabilityKey(context.Background(), expiredKey); err != nil {
		t.Fatalf("create expired key: %v", err)
	}

	cases := []struct {
		name     string
		prefix   string
		key      string
		wantCode models.Code
	}{
		{"unknown key", "/r/", "nonexistent1234567890123", models.CodeInvalidKey},
		{"revoked key", "/r/", revokedPlaintext, models.CodeKeyRevoked},
		{"expired key", "/r/", expiredPlaintext, models.CodeKeyExpired},
		{"insufficient permission", "/w/", boot.ReadKey, models.CodePermissionDenied},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.prefix+tc.key+"/file.md", nil)
			w := httptest.NewRecorder()
			a.Router().ServeHTTP(w, req)
			if w.Code != http.StatusNotFound {
				t.Fatalf("status = %d, want 404 regardless of failure reason, body = %s", w.Code, w.Body.String())
			}
			var env rawEnvelope
			if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if env.Error == nil {
				t.Fatal("expected an error envelope")
			}
			if env.Error.Code != tc.wantCode {
				t.Errorf("error.code = %q, want %q", env.Error.Code, tc.wantCode)
			}
		})
	}
}

func TestCapabilityScope_FolderKeyCannotEscapeItsScope(t *testing.T) {
	a := newTestAPI(t)
	boot, _ := claimedWorkspace(t, a)
	putFile(t, a, boot.WriteKey, "/docs/guide.md", "in scope", "")
	putFile(t, a, boot.WriteKey, "/other/secret.md", "out of scope", "")

	folderKeyPlaintext := "folderScopedReadKey00001"
	folderKey := &models.CapabilityKey{
		ID: "cap_folder_scoped", WorkspaceID: boot.WorkspaceID, Prefix: folderKeyPlaintext[:4],
		KeyHash: credential.HashKey(folderKeyPlaintext), Permission: models.PermissionRead,
		ScopeType: models.ScopeFolder, ScopePath: "docs",
	}
	if _, err := a.deps.SQL.CreateCapabilityKey(context.Background(), folderKey); err != nil {
		t.Fatalf("create folder-scoped key: %v", err)
	}

	inScope := httptest.NewRequest(http.MethodGet, "/r/"+folderKeyPlaintext+"/docs/guide.md", nil)
	inScopeW := httptest.NewRecorder()
	a.Router().ServeHTTP(inScopeW, inScope)
	if inScopeW.Code != http.StatusOK {
		t.Fatalf("in-scope GET status = %d, want 200, body = %s", inScopeW.Code, inScopeW.Body.String())
	}

	outOfScope := httptest.NewRequest(http.MethodGet, "/r/"+folderKeyPlaintext+"/other/secret.md", nil)
	outOfScopeW := httptest.NewRecorder()
	a.Router().ServeHTTP(outOfScopeW, outOfScope)
	if outOfScopeW.Code != http.StatusNotFound {
		t.Fatalf("out-of-scope GET status = %d, want 404, body = %s", outOfScopeW.Code, outOfScopeW.Body.String())
	}
}
