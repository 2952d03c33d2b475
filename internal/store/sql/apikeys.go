package sql

import (
	"context"
	"time"

	"github.com/albri/mdplane/internal/idgen"
	"github.com/albri/mdplane/internal/models"
)

var errAPIKeyNotFound = models.NewError(models.CodeInvalidKey, "api key not found")

// CreateAPIKey inserts a new API key row. Callers must set KeyHash before
// calling; the plaintext is never persisted.
func (s *Store) CreateAPIKey(ctx context.Context, k *models.ApiKey) (*models.ApiKey, error) {
	k.Scopes = k.Scopes.Dedup()
	if _, err := createWithID(s.db, ctx, k, k.ID, func(x *models.ApiKey, id string) { x.ID = id }, nil); err != nil {
		return nil, err
	}
	return k, nil
}

// GetAPIKeyByHash resolves an API key by the SHA-256 hash of its plaintext.
func (s *Store) GetAPIKeyByHash(ctx context.Context, hash string) (*models.ApiKey, error) {
	return getByField[models.ApiKey](s.db, ctx, "key_hash", hash, errAPIKeyNotFound)
}

// ListAPIKeys lists every API key for a workspace, newest first.
func (s *Store) ListAPIKeys(ctx context.Context, workspaceID string) ([]*models.ApiKey, error) {
	var out []*models.ApiKey
	err := s.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// RevokeAPIKey marks a key revoked; revocation is immediate regardless of
// any in-flight request already holding the key in memory.
func (s *Store) RevokeAPIKey(ctx context.Context, workspaceID, id string, at time.Time) error {
	res := s.db.WithContext(ctx).
		Model(&models.ApiKey{}).
		Where("id = ? AND workspace_id = ?", id, workspaceID).
		Update("revoked_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errAPIKeyNotFound
	}
	return nil
}

// TouchAPIKeyLastUsed records the most recent successful use of a key.
func (s *Store) TouchAPIKeyLastUsed(ctx context.Context, id string, at time.Time) error {
	return s.db.WithContext(ctx).
		Model(&models.ApiKey{}).
		Where("id = ?", id).
		Update("last_used_at", at).Error
}

// CreateCapabilityKey inserts a new capability key row.
func (s *Store) CreateCapabilityKey(ctx context.Context, k *models.CapabilityKey) (*models.CapabilityKey, error) {
	if k.ID == "" {
		k.ID = idgen.New("cap_")
	}
	if _, err := createWithID(s.db, ctx, k, k.ID, func(x *models.CapabilityKey, id string) { x.ID = id }, nil); err != nil {
		return nil, err
	}
	return k, nil
}

// GetCapabilityKeyByHash resolves a capability key by hash.
func (s *Store) GetCapabilityKeyByHash(ctx context.Context, hash string) (*models.CapabilityKey, error) {
	return getByField[models.CapabilityKey](s.db, ctx, "key_hash", hash, models.NewError(models.CodeNotFound, "capability not found"))
}

// ListCapabilityKeys lists every capability key for a workspace.
func (s *Store) ListCapabilityKeys(ctx context.Context, workspaceID string) ([]*models.CapabilityKey, error) {
	return listByField[models.CapabilityKey](s.db, ctx, "workspace_id", workspaceID)
}

// RevokeCapabilityKey marks a capability key revoked.
func (s *Store) RevokeCapabilityKey(ctx context.Context, workspaceID, id string, at time.Time) error {
	res := s.db.WithContext(ctx).
		Model(&models.CapabilityKey{}).
		Where("id = ? AND workspace_id = ?", id, workspaceID).
		Update("revoked_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewError(models.CodeNotFound, "capability not found")
	}
	return nil
}

// TouchCapabilityKeyLastUsed records the most recent successful use.
func (s *Store) TouchCapabilityKeyLastUsed(ctx context.Context, id string, at time.Time) error {
	return s.db.WithContext(ctx).
		Model(&models.CapabilityKey{}).
		Where("id = ?", id).
		Update("last_used_at", at).Error
}
