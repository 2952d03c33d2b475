package api

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/albri/mdplane/internal/credential"
	"github.com/albri/mdplane/internal/logger"
	"github.com/albri/mdplane/internal/models"
)

// notifyEvent enqueues a WebhookDelivery for every active webhook whose
// scope covers affectedPath and that subscribes to kind (§4.6). It never
// returns an error to the caller: a webhook-fanout failure must not
// unwind the mutation that triggered it, so every problem is logged and
// swallowed.
func (a *API) notifyEvent(ctx context.Context, workspaceID, affectedPath, kind string, payload map[string]any) {
	hooks, err := a.deps.SQL.ListWebhooksForScope(ctx, workspaceID)
	if err != nil {
		logger.Error("notify: list webhooks failed", "workspaceId", workspaceID, "error", err)
		return
	}

	body, err := json.Marshal(map[string]any{
		"event":       kind,
		"workspaceId": workspaceID,
		"path":        affectedPath,
		"data":        payload,
		"timestamp":   time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		logger.Error("notify: encode payload failed", "error", err)
		return
	}

	for _, wh := range hooks {
		if !wh.WantsEvent(kind) {
			continue
		}
		if !webhookCoversPath(wh, affectedPath) {
			continue
		}
		delivery := &models.WebhookDelivery{
			WebhookID:     wh.ID,
			Event:         kind,
			Payload:       string(body),
			Status:        models.WebhookDeliveryPending,
			NextAttemptAt: time.Now(),
		}
		if _, err := a.deps.SQL.EnqueueDelivery(ctx, delivery); err != nil {
			logger.Error("notify: enqueue delivery failed", "webhookId", wh.ID, "error", err)
		}
	}
}

// webhookCoversPath reapplies the scope-matching rule a capability key
// uses (credential.ScopeAllows) to webhooks, since both are (scopeType,
// scopePath) pairs constraining a resource path the same way.
func webhookCoversPath(wh *models.Webhook, affectedPath string) bool {
	if wh.ScopeType == models.ScopeFolder && !wh.Recursive {
		parent := strings.TrimSuffix(strings.TrimSuffix(affectedPath, "/"+lastSegment(affectedPath)), "/")
		return credential.ScopeAllows(string(wh.ScopeType), wh.ScopePath, parent) &&
			strings.TrimSuffix(parent, "/") == strings.Trim(wh.ScopePath, "/")
	}
	return credential.ScopeAllows(string(wh.ScopeType), wh.ScopePath, affectedPath)
}

func lastSegment(p string) string {
	p = strings.Trim(p, "/")
	if idx := strings.LastIndex(p, "/"); idx >= 0 {
		return p[idx+1:]
	}
	return p
}
