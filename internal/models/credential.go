package models

import "time"

// Permission is the capability granted by a credential. Values are
// ordered: write satisfies append and read requirements, append satisfies
// read, read satisfies only read.
type Permission string

const (
	PermissionRead   Permission = "read"
	PermissionAppend Permission = "append"
	PermissionWrite  Permission = "write"
)

// Satisfies reports whether this permission is sufficient for a request
// that requires need.
func (p Permission) Satisfies(need Permission) bool {
	return p.rank() >= need.rank()
}

func (p Permission) rank() int {
	switch p {
	case PermissionRead:
		return 1
	case PermissionAppend:
		return 2
	case PermissionWrite:
		return 3
	default:
		return 0
	}
}

// ScopeType is the shape of resource a credential may address.
type ScopeType string

const (
	ScopeWorkspace ScopeType = "workspace"
	ScopeFolder    ScopeType = "folder"
	ScopeFile      ScopeType = "file"
)

// CapabilityKey is a URL-embedded opaque credential binding a permission
// and a scope within a single workspace.
type CapabilityKey struct {
	ID          string     `gorm:"primaryKey;size:64" json:"id"`
	WorkspaceID string     `gorm:"index;size:64;not null" json:"workspaceId"`
	Prefix      string     `gorm:"size:8;not null" json:"prefix"`
	KeyHash     string     `gorm:"uniqueIndex;size:64;not null" json:"-"`
	Permission  Permission `gorm:"size:16;not null" json:"permission"`
	ScopeType   ScopeType  `gorm:"size:16;not null" json:"scopeType"`
	ScopePath   string     `gorm:"size:1024;not null" json:"scopePath"`
	BoundAuthor string     `gorm:"size:64" json:"boundAuthor,omitempty"`
	WipLimit    *int       `json:"wipLimit,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	RevokedAt   *time.Time `json:"revokedAt,omitempty"`
	LastUsedAt  *time.Time `json:"lastUsedAt,omitempty"`
}

// TableName returns the table name for CapabilityKey.
func (CapabilityKey) TableName() string { return "capability_keys" }

// IsActive reports whether the key may currently be used: not revoked and
// not expired.
func (k *CapabilityKey) IsActive(now time.Time) bool {
	if k.RevokedAt != nil {
		return false
	}
	if k.ExpiresAt != nil && !k.ExpiresAt.After(now) {
		return false
	}
	return true
}

// ApiKeyMode distinguishes live credentials from disposable test ones.
type ApiKeyMode string

const (
	ApiKeyModeLive ApiKeyMode = "live"
	ApiKeyModeTest ApiKeyMode = "test"
)

// ApiKeyScope is a single capability an ApiKey may hold, independent of
// the URL-embedded capability permission ladder.
type ApiKeyScope string

const (
	ApiKeyScopeRead   ApiKeyScope = "read"
	ApiKeyScopeAppend ApiKeyScope = "append"
	ApiKeyScopeWrite  ApiKeyScope = "write"
	ApiKeyScopeExport ApiKeyScope = "export"
)

// ApiKey is a bearer token owned by a workspace owner, used for
// programmatic access to the owner-only management surface.
type ApiKey struct {
	ID          string       `gorm:"primaryKey;size:64" json:"id"`
	WorkspaceID string       `gorm:"index;size:64;not null" json:"workspaceId"`
	Name        string       `gorm:"size:64;not null" json:"name"`
	KeyHash     string       `gorm:"uniqueIndex;size:64;not null" json:"-"`
	KeyPrefix   string       `gorm:"size:16;not null" json:"keyPrefix"`
	Mode        ApiKeyMode   `gorm:"size:8;not null" json:"mode"`
	Scopes      ScopeList    `gorm:"size:128" json:"scopes"`
	CreatedAt   time.Time    `gorm:"autoCreateTime" json:"createdAt"`
	ExpiresAt   *time.Time   `json:"expiresAt,omitempty"`
	LastUsedAt  *time.Time   `json:"lastUsedAt,omitempty"`
	RevokedAt   *time.Time   `json:"revokedAt,omitempty"`
}

// TableName returns the table name for ApiKey.
func (ApiKey) TableName() string { return "api_keys" }

// IsActive reports whether the API key may currently be used.
func (k *ApiKey) IsActive(now time.Time) bool {
	if k.RevokedAt != nil {
		return false
	}
	if k.ExpiresAt != nil && !k.ExpiresAt.After(now) {
		return false
	}
	return true
}

// HasScope reports whether the key was granted s.
func (k *ApiKey) HasScope(s ApiKeyScope) bool {
	for _, have := range k.Scopes {
		if have == s {
			return true
		}
	}
	return false
}
