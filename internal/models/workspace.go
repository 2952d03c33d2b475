package models

import "time"

// Workspace is the tenancy root. Every credential, file, append, webhook,
// and audit entry belongs to exactly one workspace.
type Workspace struct {
	ID              string     `gorm:"primaryKey;size:64" json:"id"`
	Name            string     `gorm:"size:255;not null" json:"name"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	LastActivityAt  time.Time  `json:"lastActivityAt"`
	ClaimedAt       *time.Time `json:"claimedAt,omitempty"`
	ClaimedByEmail  string     `gorm:"size:255" json:"claimedByEmail,omitempty"`
	DeletedAt       *time.Time `json:"deletedAt,omitempty"`
	StorageQuotaBytes int64    `json:"storageQuotaBytes"`
}

// TableName returns the table name for Workspace.
func (Workspace) TableName() string { return "workspaces" }

// IsClaimed reports whether the workspace has been claimed by an OAuth user.
func (w *Workspace) IsClaimed() bool { return w.ClaimedAt != nil }

// IsDeleted reports whether the workspace has been soft-deleted.
func (w *Workspace) IsDeleted() bool { return w.DeletedAt != nil }

// User is an OAuth-authenticated principal who may own workspaces. The
// core only needs enough of a user record to resolve ownership; identity
// provider details (OAuth flow, password storage) are an external
// collaborator's concern.
type User struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Email     string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName returns the table name for User.
func (User) TableName() string { return "users" }

// UserWorkspace links a user to the single workspace they own.
type UserWorkspace struct {
	UserID      string    `gorm:"primaryKey;size:64" json:"userId"`
	WorkspaceID string    `gorm:"primaryKey;size:64;uniqueIndex" json:"workspaceId"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName returns the table name for UserWorkspace.
func (UserWorkspace) TableName() string { return "user_workspaces" }
