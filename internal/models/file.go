package models

import "time"

// MaxFileContentBytes is the per-file content size limit (§4.4).
const MaxFileContentBytes = 1 << 20 // 1 MiB

// File is a workspace-scoped Markdown (or opaque) document addressed by
// an absolute path. Content and metadata live in the KV store; this type
// is the shared wire/domain shape used by both the kv store package and
// the HTTP handlers.
type File struct {
	ID          string     `json:"id"`
	WorkspaceID string     `json:"workspaceId"`
	Path        string     `json:"path"`
	Content     []byte     `json:"-"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}

// IsDeleted reports whether the file has been soft-deleted.
func (f *File) IsDeleted() bool { return f.DeletedAt != nil }

// Size returns the content length in bytes.
func (f *File) Size() int { return len(f.Content) }

// Folder is a virtual (or explicitly materialized) grouping of files
// sharing a path prefix.
type Folder struct {
	ID          string    `json:"id,omitempty"`
	WorkspaceID string    `json:"workspaceId"`
	Path        string    `json:"path"`
	Name        string    `json:"name"`
	Explicit    bool      `json:"-"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// FolderEntry is a single row in a folder listing response (§4.5).
type FolderEntry struct {
	Name       string    `json:"name"`
	Type       string    `json:"type"` // "folder" | "file"
	UpdatedAt  time.Time `json:"updatedAt"`
	Size       *int      `json:"size,omitempty"`
	ChildCount *int      `json:"childCount,omitempty"`
	URL        string    `json:"url,omitempty"`
}
