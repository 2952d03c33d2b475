package sql

import (
	"context"

	"github.com/albri/mdplane/internal/idgen"
	"github.com/albri/mdplane/internal/models"
)

// RecordAudit appends an immutable audit log entry (§4.8). Audit entries
// are never updated or deleted by application code.
func (s *Store) RecordAudit(ctx context.Context, e *models.AuditLogEntry) error {
	if e.ID == "" {
		e.ID = idgen.New("aud_")
	}
	return s.db.WithContext(ctx).Create(e).Error
}

// ListAudit returns audit entries for a workspace, newest first, bounded
// by limit.
func (s *Store) ListAudit(ctx context.Context, workspaceID string, limit int) ([]*models.AuditLogEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []*models.AuditLogEntry
	err := s.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CreateExportJob inserts a new export job in pending status.
func (s *Store) CreateExportJob(ctx context.Context, j *models.ExportJob) (*models.ExportJob, error) {
	if j.ID == "" {
		j.ID = idgen.New("exp_")
	}
	if j.Status == "" {
		j.Status = models.ExportJobPending
	}
	if _, err := createWithID(s.db, ctx, j, j.ID, func(x *models.ExportJob, id string) { x.ID = id }, nil); err != nil {
		return nil, err
	}
	return j, nil
}

// GetExportJob fetches an export job scoped to its workspace.
func (s *Store) GetExportJob(ctx context.Context, workspaceID, id string) (*models.ExportJob, error) {
	var j models.ExportJob
	err := s.db.WithContext(ctx).
		Where("id = ? AND workspace_id = ?", id, workspaceID).
		First(&j).Error
	if err != nil {
		return nil, convertNotFound(err, models.NewError(models.CodeNotFound, "export job not found"))
	}
	return &j, nil
}

// UpdateExportJobStatus transitions an export job and, on completion,
// records its result location or error.
func (s *Store) UpdateExportJobStatus(ctx context.Context, id string, status models.ExportJobStatus, resultURL, errMsg string) error {
	updates := map[string]any{"status": status}
	if resultURL != "" {
		updates["result_url"] = resultURL
	}
	if errMsg != "" {
		updates["error"] = errMsg
	}
	return s.db.WithContext(ctx).
		Model(&models.ExportJob{}).
		Where("id = ?", id).
		Updates(updates).Error
}
