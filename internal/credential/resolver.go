package credential

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"regexp"
	"time"

	"github.com/albri/mdplane/internal/auth"
	"github.com/albri/mdplane/internal/models"
)

// Kind distinguishes which of the three credential families resolved
// the request.
type Kind string

const (
	KindCapability Kind = "capability"
	KindAPIKey     Kind = "api-key"
	KindSession    Kind = "session"
)

// Resolved is the authorization context a handler needs once a
// credential has cleared the §4.1 pipeline: which workspace, what the
// caller may do, and (for capability keys) any author binding.
type Resolved struct {
	Kind        Kind
	WorkspaceID string
	Permission  models.Permission
	ScopeType   string
	ScopePath   string
	BoundAuthor string
	WipLimit    *int
	APIKeyScopes []models.ApiKeyScope
	UserID      string

	ActorType models.ActorType
	Actor     string // audit-log actor identity: key prefix, user email, or "system"

	keyID string // capability key or API key row ID, for the lastUsedAt touch
}

var (
	capabilityKeyPattern = regexp.MustCompile(`^[A-Za-z0-9]{22,32}$`)
	apiKeyPattern        = regexp.MustCompile(`^sk_(live|test)_[A-Za-z0-9]{20,}$`)
)

// KeyStore is the subset of the control-plane store the resolver needs.
type KeyStore interface {
	GetCapabilityKeyByHash(ctx context.Context, hash string) (*models.CapabilityKey, error)
	TouchCapabilityKeyLastUsed(ctx context.Context, id string, at time.Time) error
	GetAPIKeyByHash(ctx context.Context, hash string) (*models.ApiKey, error)
	TouchAPIKeyLastUsed(ctx context.Context, id string, at time.Time) error
}

// OwnershipStore is the subset of the control-plane store needed to
// resolve an OAuth session into an owned workspace.
type OwnershipStore interface {
	WorkspaceForUser(ctx context.Context, userID string) (*models.Workspace, error)
}

// Resolver implements the §4.1 credential validation pipeline for all
// three credential families. Each Resolve* method returns a *Resolved
// context on success or a *models.DomainError carrying the specific
// failure code; translating that code to an HTTP status (404 for
// capability URLs, 401/403 for API keys and sessions) is left to the
// api/handlers layer, since only the handler knows which credential
// family the request arrived on.
type Resolver struct {
	keys      KeyStore
	ownership OwnershipStore
	sessions  *auth.SessionService
}

// NewResolver constructs a Resolver.
func NewResolver(keys KeyStore, ownership OwnershipStore, sessions *auth.SessionService) *Resolver {
	return &Resolver{keys: keys, ownership: ownership, sessions: sessions}
}

func hashKey(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// HashKey exposes the resolver's hashing convention to callers that mint
// new credentials (bootstrap, api-key creation, rotate-all) so the hash
// stored at creation time matches what ResolveCapability/ResolveAPIKey
// recompute on lookup.
func HashKey(plaintext string) string {
	return hashKey(plaintext)
}

// hashesEqual compares two hex-encoded SHA-256 digests in constant
// time, independent of whatever equality check the store's lookup
// already performed.
func hashesEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// ResolveCapability runs the §4.1 pipeline for a capability URL of the
// form /{r|a|w}/{key}/{resourcePath}. requiredPermission is derived from
// the URL prefix by the router before calling in. Every failure here
// must be surfaced by the caller as HTTP 404 regardless of code, per
// the capability-URL security model.
func (r *Resolver) ResolveCapability(ctx context.Context, plaintext string, requiredPermission models.Permission, resourcePath string, now time.Time) (*Resolved, *models.DomainError) {
	if !capabilityKeyPattern.MatchString(plaintext) {
		return nil, models.NewError(models.CodeInvalidKey, "malformed capability key")
	}

	hash := hashKey(plaintext)
	key, err := r.keys.GetCapabilityKeyByHash(ctx, hash)
	if err != nil {
		return nil, models.NewError(models.CodeInvalidKey, "capability key not found")
	}
	if !hashesEqual(hash, key.KeyHash) {
		return nil, models.NewError(models.CodeInvalidKey, "capability key not found")
	}

	if key.RevokedAt != nil {
		return nil, models.NewError(models.CodeKeyRevoked, "capability key revoked")
	}
	if key.ExpiresAt != nil && !key.ExpiresAt.After(now) {
		return nil, models.NewError(models.CodeKeyExpired, "capability key expired")
	}

	if !key.Permission.Satisfies(requiredPermission) {
		return nil, models.NewError(models.CodePermissionDenied, "capability key does not grant the requested permission")
	}

	if !ScopeAllows(string(key.ScopeType), key.ScopePath, resourcePath) {
		return nil, models.NewError(models.CodePermissionDenied, "capability key scope does not cover this resource")
	}

	go func() {
		_ = r.keys.TouchCapabilityKeyLastUsed(context.Background(), key.ID, now)
	}()

	return &Resolved{
		Kind:        KindCapability,
		WorkspaceID: key.WorkspaceID,
		Permission:  key.Permission,
		ScopeType:   string(key.ScopeType),
		ScopePath:   key.ScopePath,
		BoundAuthor: key.BoundAuthor,
		WipLimit:    key.WipLimit,
		ActorType:   models.ActorCapability,
		Actor:       key.Prefix,
		keyID:       key.ID,
	}, nil
}

// CheckBoundAuthor implements the §4.1 step 6 gate: an append/write
// body carrying an author must match a capability key's bound author,
// if one is set.
func CheckBoundAuthor(res *Resolved, bodyAuthor string) *models.DomainError {
	if res.BoundAuthor == "" || bodyAuthor == "" || res.BoundAuthor == bodyAuthor {
		return nil
	}
	return models.NewErrorWithDetails(models.CodeAuthorMismatch,
		"author does not match the bound author for this capability key",
		map[string]any{"expected": res.BoundAuthor, "received": bodyAuthor})
}

// ResolveAPIKey runs the §4.1 pipeline for an `Authorization: Bearer
// sk_...` API key. Failures here are 401 (invalid/expired/revoked) or
// 403 (insufficient scope), never 404 — API keys don't hide their own
// existence the way capability URLs do.
func (r *Resolver) ResolveAPIKey(ctx context.Context, plaintext string, requiredScope models.ApiKeyScope, now time.Time) (*Resolved, *models.DomainError) {
	if !apiKeyPattern.MatchString(plaintext) {
		return nil, models.NewError(models.CodeInvalidKey, "malformed API key")
	}

	hash := hashKey(plaintext)
	key, err := r.keys.GetAPIKeyByHash(ctx, hash)
	if err != nil {
		return nil, models.NewError(models.CodeInvalidKey, "API key not found")
	}
	if !hashesEqual(hash, key.KeyHash) {
		return nil, models.NewError(models.CodeInvalidKey, "API key not found")
	}

	if key.RevokedAt != nil {
		return nil, models.NewError(models.CodeKeyRevoked, "API key revoked")
	}
	if key.ExpiresAt != nil && !key.ExpiresAt.After(now) {
		return nil, models.NewError(models.CodeKeyExpired, "API key expired")
	}

	if !key.HasScope(requiredScope) {
		return nil, models.NewError(models.CodeForbidden, "API key does not grant the requested scope")
	}

	go func() {
		_ = r.keys.TouchAPIKeyLastUsed(context.Background(), key.ID, now)
	}()

	return &Resolved{
		Kind:         KindAPIKey,
		WorkspaceID:  key.WorkspaceID,
		APIKeyScopes: key.Scopes,
		ActorType:    models.ActorAPIKey,
		Actor:        key.KeyPrefix,
		keyID:        key.ID,
	}, nil
}

// ResolveSession validates a `better-auth.session_token` cookie and
// confirms the bearer owns the workspace named in the URL. Per §4.1, a
// missing/invalid session is 401; a valid session for a user who
// doesn't own this workspace is 404, never 403, so the resolver itself
// can't distinguish "workspace exists but isn't yours" from "workspace
// doesn't exist" to a prober.
func (r *Resolver) ResolveSession(ctx context.Context, token, workspaceID string) (*Resolved, *models.DomainError) {
	claims, err := r.sessions.ValidateSession(token)
	if err != nil {
		return nil, models.NewError(models.CodeUnauthorized, "invalid or expired session")
	}

	ws, werr := r.ownership.WorkspaceForUser(ctx, claims.UserID)
	if werr != nil || ws.ID != workspaceID {
		return nil, models.NewError(models.CodeNotFound, "workspace not found")
	}

	return &Resolved{
		Kind:        KindSession,
		WorkspaceID: ws.ID,
		Permission:  models.PermissionWrite,
		UserID:      claims.UserID,
		ActorType:   models.ActorSession,
		Actor:       claims.Email,
	}, nil
}

// PermissionForPrefix maps a capability URL's {r|a|w} path prefix to
// its minimum required permission.
func PermissionForPrefix(prefix string) (models.Permission, bool) {
	switch prefix {
	case "r":
		return models.PermissionRead, true
	case "a":
		return models.PermissionAppend, true
	case "w":
		return models.PermissionWrite, true
	default:
		return "", false
	}
}
