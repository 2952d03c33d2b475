package sql

import (
	"context"
	"testing"
	"time"

	"github.com/albri/mdplane/internal/models"
)

func TestCreateWebhook_CountAndListScopedToWorkspace(t *testing.T) {
	s := newTestSQLStore(t)
	ctx := context.Background()
	wh, err := s.CreateWebhook(ctx, &models.Webhook{
		WorkspaceID: "ws_1", ScopeType: models.ScopeWorkspace, ScopePath: "/",
		URL: "https://example.com/hook", Secret: "s3cret", Events: models.StringList{"file.created"},
		Status: models.WebhookStatusActive,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if wh.ID == "" {
		t.Fatal("expected a generated webhook id")
	}

	if _, err := s.CreateWebhook(ctx, &models.Webhook{
		WorkspaceID: "ws_2", ScopeType: models.ScopeWorkspace, ScopePath: "/",
		URL: "https://example.com/other", Secret: "s3cret2", Status: models.WebhookStatusActive,
	}); err != nil {
		t.Fatalf("create other: %v", err)
	}

	count, err := s.CountActiveWebhooks(ctx, "ws_1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}

	list, err := s.ListWebhooks(ctx, "ws_1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != wh.ID {
		t.Errorf("webhooks = %+v, want only ws_1's", list)
	}
}

func TestDeleteWebhook_SoftDeleteExcludesFromListAndCount(t *testing.T) {
	s := newTestSQLStore(t)
	ctx := context.Background()
	wh, err := s.CreateWebhook(ctx, &models.Webhook{
		WorkspaceID: "ws_1", ScopeType: models.ScopeWorkspace, ScopePath: "/",
		URL: "https://example.com/hook", Secret: "s3cret", Status: models.WebhookStatusActive,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.DeleteWebhook(ctx, "ws_1", wh.ID, time.Now()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetWebhook(ctx, "ws_1", wh.ID); err == nil {
		t.Error("expected a not-found error fetching a deleted webhook")
	}
	count, err := s.CountActiveWebhooks(ctx, "ws_1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0 after delete", count)
	}
}

func TestUpdateWebhookStatus_PauseExcludesFromScopeListing(t *testing.T) {
	s := newTestSQLStore(t)
	ctx := context.Background()
	wh, err := s.CreateWebhook(ctx, &models.Webhook{
		WorkspaceID: "ws_1", ScopeType: models.ScopeWorkspace, ScopePath: "/",
		URL: "https://example.com/hook", Secret: "s3cret", Status: models.WebhookStatusActive,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.UpdateWebhookStatus(ctx, "ws_1", wh.ID, models.WebhookStatusPaused); err != nil {
		t.Fatalf("pause: %v", err)
	}
	active, err := s.ListWebhooksForScope(ctx, "ws_1")
	if err != nil {
		t.Fatalf("list for scope: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("active webhooks = %+v, want none after pausing", active)
	}
}

func TestEnqueueDelivery_DueDeliveriesRespectsNextAttempt(t *testing.T) {
	s := newTestSQLStore(t)
	ctx := context.Background()
	wh, err := s.CreateWebhook(ctx, &models.Webhook{
		WorkspaceID: "ws_1", ScopeType: models.ScopeWorkspace, ScopePath: "/",
		URL: "https://example.com/hook", Secret: "s3cret", Status: models.WebhookStatusActive,
	})
	if err != nil {
		t.Fatalf("create webhook: %v", err)
	}

	due, err := s.EnqueueDelivery(ctx, &models.WebhookDelivery{
		WebhookID: wh.ID, Event: "file.created", Payload: "{}",
		Status: models.WebhookDeliveryPending, NextAttemptAt: time.Now().Add(-time.Minute),
	})
	if err != nil {
		t.Fatalf("enqueue due: %v", err)
	}
	if _, err := s.EnqueueDelivery(ctx, &models.WebhookDelivery{
		WebhookID: wh.ID, Event: "file.created", Payload: "{}",
		Status: models.WebhookDeliveryPending, NextAttemptAt: time.Now().Add(time.Hour),
	}); err != nil {
		t.Fatalf("enqueue future: %v", err)
	}

	list, err := s.DueDeliveries(ctx, time.Now(), 10)
	if err != nil {
		t.Fatalf("due deliveries: %v", err)
	}
	if len(list) != 1 || list[0].ID != due.ID {
		t.Errorf("due deliveries = %+v, want only the past-due one", list)
	}
}

func TestRecordDeliveryAttempt_UpdatesOutcome(t *testing.T) {
	s := newTestSQLStore(t)
	ctx := context.Background()
	wh, err := s.CreateWebhook(ctx, &models.Webhook{
		WorkspaceID: "ws_1", ScopeType: models.ScopeWorkspace, ScopePath: "/",
		URL: "https://example.com/hook", Secret: "s3cret", Status: models.WebhookStatusActive,
	})
	if err != nil {
		t.Fatalf("create webhook: %v", err)
	}
	d, err := s.EnqueueDelivery(ctx, &models.WebhookDelivery{
		WebhookID: wh.ID, Event: "file.created", Payload: "{}",
		Status: models.WebhookDeliveryPending, NextAttemptAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	next := time.Now().Add(5 * time.Second)
	// Still pending: a retry schedules the next attempt rather than
	// terminating the delivery.
	if err := s.RecordDeliveryAttempt(ctx, d.ID, models.WebhookDeliveryPending, 1, next, "connection refused"); err != nil {
		t.Fatalf("record attempt: %v", err)
	}
	got, err := s.DueDeliveries(ctx, next.Add(time.Minute), 10)
	if err != nil {
		t.Fatalf("due deliveries: %v", err)
	}
	if len(got) != 1 || got[0].Attempts != 1 || got[0].LastError != "connection refused" {
		t.Errorf("deliveries = %+v, want updated attempt state", got)
	}
}
