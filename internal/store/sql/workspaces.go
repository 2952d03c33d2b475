package sql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/albri/mdplane/internal/idgen"
	"github.com/albri/mdplane/internal/models"
)

var errWorkspaceNotFound = models.NewError(models.CodeNotFound, "workspace not found")

// CreateWorkspace inserts a new workspace, generating its ID if unset.
func (s *Store) CreateWorkspace(ctx context.Context, ws *models.Workspace) (*models.Workspace, error) {
	if ws.ID == "" {
		ws.ID = idgen.New("ws_")
	}
	ws.LastActivityAt = time.Now()
	if _, err := createWithID(s.db, ctx, ws, ws.ID, func(w *models.Workspace, id string) { w.ID = id }, nil); err != nil {
		return nil, err
	}
	return ws, nil
}

// GetWorkspace fetches a workspace by ID.
func (s *Store) GetWorkspace(ctx context.Context, id string) (*models.Workspace, error) {
	return getByField[models.Workspace](s.db, ctx, "id", id, errWorkspaceNotFound)
}

// TouchWorkspaceActivity bumps LastActivityAt, used on every mutating
// request so idle-workspace sweeps can find candidates cheaply.
func (s *Store) TouchWorkspaceActivity(ctx context.Context, id string, at time.Time) error {
	return s.db.WithContext(ctx).
		Model(&models.Workspace{}).
		Where("id = ?", id).
		Update("last_activity_at", at).Error
}

// RenameWorkspace updates a workspace's display name.
func (s *Store) RenameWorkspace(ctx context.Context, id, name string) error {
	res := s.db.WithContext(ctx).
		Model(&models.Workspace{}).
		Where("id = ?", id).
		Update("name", name)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errWorkspaceNotFound
	}
	return nil
}

var errWorkspaceAlreadyClaimed = models.NewError(models.CodeAlreadyClaimed, "workspace already claimed")

// ClaimWorkspace associates a workspace with the OAuth user who claimed
// it. The UserWorkspace row's uniqueIndex on workspace_id serializes
// concurrent claim attempts: exactly one insert succeeds, the other
// observes ALREADY_CLAIMED (spec.md §4.3).
func (s *Store) ClaimWorkspace(ctx context.Context, workspaceID, userID, email string, at time.Time) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		uw := &models.UserWorkspace{UserID: userID, WorkspaceID: workspaceID, CreatedAt: at}
		if err := tx.Create(uw).Error; err != nil {
			return err
		}
		return tx.Model(&models.Workspace{}).
			Where("id = ?", workspaceID).
			Updates(map[string]any{"claimed_at": at, "claimed_by_email": email}).Error
	})
	if isUniqueConstraintError(err) {
		return errWorkspaceAlreadyClaimed
	}
	return err
}

// SoftDeleteWorkspace marks a workspace deleted without removing its row,
// so audit history and capability keys stay attributable.
func (s *Store) SoftDeleteWorkspace(ctx context.Context, id string, at time.Time) error {
	return s.db.WithContext(ctx).
		Model(&models.Workspace{}).
		Where("id = ?", id).
		Update("deleted_at", at).Error
}

// ListIdleWorkspaces returns unclaimed workspaces whose last activity is
// older than cutoff, used by the reclaim sweep.
func (s *Store) ListIdleWorkspaces(ctx context.Context, cutoff time.Time) ([]*models.Workspace, error) {
	var out []*models.Workspace
	err := s.db.WithContext(ctx).
		Where("claimed_at IS NULL AND last_activity_at < ? AND deleted_at IS NULL", cutoff).
		Find(&out).Error
	return out, err
}

// ListAllWorkspaces returns every non-deleted workspace, used by
// background sweeps that need to visit every workspace (quota gauges,
// soft-delete purge).
func (s *Store) ListAllWorkspaces(ctx context.Context) ([]*models.Workspace, error) {
	var out []*models.Workspace
	err := s.db.WithContext(ctx).
		Where("deleted_at IS NULL").
		Find(&out).Error
	return out, err
}

// UserByEmail fetches a user by email, creating one if it doesn't exist.
func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := getByField[models.User](s.db, ctx, "email", email, nil)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	u = &models.User{ID: idgen.New("usr_"), Email: email}
	if _, err := createWithID(s.db, ctx, u, u.ID, func(x *models.User, id string) { x.ID = id }, nil); err != nil {
		return nil, err
	}
	return u, nil
}

// WorkspaceForUser returns the workspace a user owns, if any.
func (s *Store) WorkspaceForUser(ctx context.Context, userID string) (*models.Workspace, error) {
	uw, err := getByField[models.UserWorkspace](s.db, ctx, "user_id", userID, errWorkspaceNotFound)
	if err != nil {
		return nil, err
	}
	return s.GetWorkspace(ctx, uw.WorkspaceID)
}
