package models

import "time"

// ActorType identifies the kind of principal that performed an audited
// action.
type ActorType string

const (
	ActorSession    ActorType = "session"
	ActorAPIKey     ActorType = "api-key"
	ActorCapability ActorType = "capability"
	ActorSystem     ActorType = "system"
)

// AuditLogEntry records a single mutating action for later review.
type AuditLogEntry struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	WorkspaceID string    `gorm:"index;size:64;not null" json:"workspaceId"`
	ActorType   ActorType `gorm:"size:16;not null" json:"actorType"`
	Actor       string    `gorm:"size:128;not null" json:"actor"`
	Action      string    `gorm:"size:128;not null" json:"action"`
	ResourceID  string    `gorm:"size:128" json:"resourceId,omitempty"`
	Details     string    `gorm:"type:text" json:"details,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}

// TableName returns the table name for AuditLogEntry.
func (AuditLogEntry) TableName() string { return "audit_logs" }

// ExportJobStatus is the lifecycle of a workspace export request. Export
// is named in the persisted-state table (spec.md §6) but its semantics
// are outside the core's five hardest subsystems (see SPEC_FULL.md §3.1);
// this minimal shape exists so the schema and route are present.
type ExportJobStatus string

const (
	ExportJobPending   ExportJobStatus = "pending"
	ExportJobRunning   ExportJobStatus = "running"
	ExportJobCompleted ExportJobStatus = "completed"
	ExportJobFailed    ExportJobStatus = "failed"
)

// ExportJob tracks a single workspace export request.
type ExportJob struct {
	ID          string          `gorm:"primaryKey;size:64" json:"id"`
	WorkspaceID string          `gorm:"index;size:64;not null" json:"workspaceId"`
	Status      ExportJobStatus `gorm:"size:16;not null" json:"status"`
	ResultURL   string          `gorm:"size:2048" json:"resultUrl,omitempty"`
	Error       string          `gorm:"size:1024" json:"error,omitempty"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

// TableName returns the table name for ExportJob.
func (ExportJob) TableName() string { return "export_jobs" }
