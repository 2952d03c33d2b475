// Package models defines the relational (GORM) entities of the control
// plane: workspaces, ownership, credentials, webhooks, and audit log. The
// hot-path entities (files, folders, appends, heartbeats) live in the KV
// store and are defined in internal/store/kv instead.
package models

// AllModels returns every GORM model for auto-migration, mirroring the
// teacher's models.AllModels convention.
func AllModels() []any {
	return []any{
		&Workspace{},
		&User{},
		&UserWorkspace{},
		&CapabilityKey{},
		&ApiKey{},
		&Webhook{},
		&WebhookDelivery{},
		&AuditLogEntry{},
		&ExportJob{},
	}
}
