package sql

import (
	"context"
	"time"

	"github.com/albri/mdplane/internal/idgen"
	"github.com/albri/mdplane/internal/models"
)

var errWebhookNotFound = models.NewError(models.CodeWebhookNotFound, "webhook not found")

// CountActiveWebhooks returns how many non-deleted webhooks a workspace
// already has, for enforcing the per-workspace webhook limit.
func (s *Store) CountActiveWebhooks(ctx context.Context, workspaceID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Webhook{}).
		Where("workspace_id = ? AND deleted_at IS NULL", workspaceID).
		Count(&count).Error
	return count, err
}

// CreateWebhook inserts a new webhook subscription.
func (s *Store) CreateWebhook(ctx context.Context, w *models.Webhook) (*models.Webhook, error) {
	if w.ID == "" {
		w.ID = idgen.New("wh_")
	}
	if _, err := createWithID(s.db, ctx, w, w.ID, func(x *models.Webhook, id string) { x.ID = id }, nil); err != nil {
		return nil, err
	}
	return w, nil
}

// GetWebhook fetches a single webhook scoped to its workspace.
func (s *Store) GetWebhook(ctx context.Context, workspaceID, id string) (*models.Webhook, error) {
	var w models.Webhook
	err := s.db.WithContext(ctx).
		Where("id = ? AND workspace_id = ? AND deleted_at IS NULL", id, workspaceID).
		First(&w).Error
	if err != nil {
		return nil, convertNotFound(err, errWebhookNotFound)
	}
	return &w, nil
}

// GetWebhookByID fetches a webhook by ID alone, for the dispatcher
// which only has the delivery's WebhookID and no workspace context.
func (s *Store) GetWebhookByID(ctx context.Context, id string) (*models.Webhook, error) {
	return getByField[models.Webhook](s.db, ctx, "id", id, errWebhookNotFound)
}

// ListWebhooks returns every non-deleted webhook for a workspace.
func (s *Store) ListWebhooks(ctx context.Context, workspaceID string) ([]*models.Webhook, error) {
	var out []*models.Webhook
	err := s.db.WithContext(ctx).
		Where("workspace_id = ? AND deleted_at IS NULL", workspaceID).
		Find(&out).Error
	return out, err
}

// ListWebhooksForScope returns active webhooks covering a given scope
// path, used by the dispatcher when a mutation occurs. Recursive folder
// subscriptions are matched by the caller via prefix comparison, since
// that requires knowledge of the mutated path that this query doesn't
// have.
func (s *Store) ListWebhooksForScope(ctx context.Context, workspaceID string) ([]*models.Webhook, error) {
	var out []*models.Webhook
	err := s.db.WithContext(ctx).
		Where("workspace_id = ? AND status = ? AND deleted_at IS NULL", workspaceID, models.WebhookStatusActive).
		Find(&out).Error
	return out, err
}

// UpdateWebhookStatus pauses or resumes a webhook.
func (s *Store) UpdateWebhookStatus(ctx context.Context, workspaceID, id string, status models.WebhookStatus) error {
	res := s.db.WithContext(ctx).
		Model(&models.Webhook{}).
		Where("id = ? AND workspace_id = ?", id, workspaceID).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errWebhookNotFound
	}
	return nil
}

// DeleteWebhook soft-deletes a webhook.
func (s *Store) DeleteWebhook(ctx context.Context, workspaceID, id string, at time.Time) error {
	res := s.db.WithContext(ctx).
		Model(&models.Webhook{}).
		Where("id = ? AND workspace_id = ?", id, workspaceID).
		Update("deleted_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errWebhookNotFound
	}
	return nil
}

// EnqueueDelivery inserts a pending delivery for a webhook event.
func (s *Store) EnqueueDelivery(ctx context.Context, d *models.WebhookDelivery) (*models.WebhookDelivery, error) {
	if d.ID == "" {
		d.ID = idgen.New("whd_")
	}
	if _, err := createWithID(s.db, ctx, d, d.ID, func(x *models.WebhookDelivery, id string) { x.ID = id }, nil); err != nil {
		return nil, err
	}
	return d, nil
}

// DueDeliveries returns pending deliveries whose NextAttemptAt has
// elapsed, for the dispatcher's poll loop.
func (s *Store) DueDeliveries(ctx context.Context, now time.Time, limit int) ([]*models.WebhookDelivery, error) {
	var out []*models.WebhookDelivery
	err := s.db.WithContext(ctx).
		Where("status = ? AND next_attempt_at <= ?", models.WebhookDeliveryPending, now).
		Order("next_attempt_at ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// RecordDeliveryAttempt updates a delivery's attempt count and outcome.
func (s *Store) RecordDeliveryAttempt(ctx context.Context, id string, status models.WebhookDeliveryStatus, attempts int, nextAttemptAt time.Time, lastErr string) error {
	return s.db.WithContext(ctx).
		Model(&models.WebhookDelivery{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":          status,
			"attempts":        attempts,
			"next_attempt_at": nextAttemptAt,
			"last_error":      lastErr,
		}).Error
}
