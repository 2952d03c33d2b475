package webhook

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/albri/mdplane/internal/logger"
	"github.com/albri/mdplane/internal/models"
)

// DeliveryStore is the subset of the control-plane store the dispatcher
// polls and updates.
type DeliveryStore interface {
	DueDeliveries(ctx context.Context, now time.Time, limit int) ([]*models.WebhookDelivery, error)
	RecordDeliveryAttempt(ctx context.Context, id string, status models.WebhookDeliveryStatus, attempts int, nextAttemptAt time.Time, lastErr string) error
	GetWebhookByID(ctx context.Context, id string) (*models.Webhook, error)
}

// Dispatcher pops due WebhookDelivery rows and POSTs them, retrying
// with the §4.6 exponential backoff schedule until MaxDeliveryAttempts
// is reached.
type Dispatcher struct {
	store      DeliveryStore
	policy     Policy
	httpClient *http.Client
	batchSize  int
}

// NewDispatcher constructs a Dispatcher with a 10s-timeout HTTP client,
// per §4.6.
func NewDispatcher(store DeliveryStore, policy Policy) *Dispatcher {
	return &Dispatcher{
		store:     store,
		policy:    policy,
		batchSize: 50,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Run polls for due deliveries every interval until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.tick(ctx); err != nil {
				logger.Error("webhook dispatch tick failed", "error", err)
			}
		}
	}
}

func (d *Dispatcher) tick(ctx context.Context) error {
	due, err := d.store.DueDeliveries(ctx, time.Now(), d.batchSize)
	if err != nil {
		return err
	}
	for _, delivery := range due {
		d.attempt(ctx, delivery)
	}
	return nil
}

// attempt sends a single delivery and records the outcome. A
// send/record failure for one delivery never blocks the others; each
// delivery is independent and there is no cross-hook ordering
// guarantee, per §4.6.
func (d *Dispatcher) attempt(ctx context.Context, delivery *models.WebhookDelivery) {
	wh, err := d.store.GetWebhookByID(ctx, delivery.WebhookID)
	if err != nil || wh.Status != models.WebhookStatusActive || wh.DeletedAt != nil {
		d.fail(ctx, delivery, "webhook no longer active")
		return
	}

	// Re-validate at send time: a hostname that resolved to a public
	// address at creation may have since been rebound to an internal
	// one (DNS rebinding), so the policy check isn't only a
	// create-time gate.
	if derr := d.policy.Validate(wh.URL); derr != nil {
		d.fail(ctx, delivery, "webhook URL now fails SSRF policy: "+derr.Message)
		return
	}

	body := []byte(delivery.Payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wh.URL, bytes.NewReader(body))
	if err != nil {
		d.retry(ctx, delivery, err.Error())
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Event", delivery.Event)
	req.Header.Set("X-Webhook-Signature", Sign(wh.Secret, body))

	resp, err := d.httpClient.Do(req)
	if err != nil {
		d.retry(ctx, delivery, err.Error())
		return
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := d.store.RecordDeliveryAttempt(ctx, delivery.ID, models.WebhookDeliveryDelivered, delivery.Attempts+1, time.Time{}, ""); err != nil {
			logger.Error("record delivery success failed", "deliveryId", delivery.ID, "error", err)
		}
		return
	}
	d.retry(ctx, delivery, http.StatusText(resp.StatusCode))
}

// retry schedules the next attempt or marks the delivery terminally
// failed once MaxDeliveryAttempts is reached.
func (d *Dispatcher) retry(ctx context.Context, delivery *models.WebhookDelivery, reason string) {
	attempts := delivery.Attempts + 1
	if attempts >= models.MaxDeliveryAttempts {
		d.fail(ctx, delivery, reason)
		return
	}
	next := time.Now().Add(models.NextBackoff(attempts - 1))
	if err := d.store.RecordDeliveryAttempt(ctx, delivery.ID, models.WebhookDeliveryPending, attempts, next, reason); err != nil {
		logger.Error("record delivery retry failed", "deliveryId", delivery.ID, "error", err)
	}
}

func (d *Dispatcher) fail(ctx context.Context, delivery *models.WebhookDelivery, reason string) {
	if err := d.store.RecordDeliveryAttempt(ctx, delivery.ID, models.WebhookDeliveryFailed, delivery.Attempts+1, time.Time{}, reason); err != nil {
		logger.Error("record delivery failure failed", "deliveryId", delivery.ID, "error", err)
	}
}
