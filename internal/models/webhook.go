package models

import "time"

// WebhookStatus controls whether a webhook receives new deliveries.
type WebhookStatus string

const (
	WebhookStatusActive WebhookStatus = "active"
	WebhookStatusPaused WebhookStatus = "paused"
)

// Webhook is an outbound HTTP subscription scoped to a workspace, folder,
// or file, limited to a subset of event kinds.
type Webhook struct {
	ID          string        `gorm:"primaryKey;size:64" json:"id"`
	WorkspaceID string        `gorm:"index;size:64;not null" json:"workspaceId"`
	ScopeType   ScopeType     `gorm:"size:16;not null" json:"scopeType"`
	ScopePath   string        `gorm:"size:1024;not null" json:"scopePath"`
	Recursive   bool          `json:"recursive"`
	URL         string        `gorm:"size:2048;not null" json:"url"`
	Secret      string        `gorm:"size:64;not null" json:"-"`
	Events      StringList    `gorm:"size:512" json:"events"`
	Status      WebhookStatus `gorm:"size:16;not null" json:"status"`
	CreatedAt   time.Time     `gorm:"autoCreateTime" json:"createdAt"`
	DeletedAt   *time.Time    `json:"deletedAt,omitempty"`
}

// TableName returns the table name for Webhook.
func (Webhook) TableName() string { return "webhooks" }

// WantsEvent reports whether this webhook subscribes to the given event
// kind and is currently active.
func (w *Webhook) WantsEvent(kind string) bool {
	if w.Status != WebhookStatusActive || w.DeletedAt != nil {
		return false
	}
	for _, e := range w.Events {
		if e == kind {
			return true
		}
	}
	return false
}

// WebhookDeliveryStatus is the lifecycle state of a single delivery
// attempt sequence.
type WebhookDeliveryStatus string

const (
	WebhookDeliveryPending   WebhookDeliveryStatus = "pending"
	WebhookDeliveryDelivered WebhookDeliveryStatus = "delivered"
	WebhookDeliveryFailed    WebhookDeliveryStatus = "failed"
)

// WebhookDelivery is a single enqueued (and possibly retried) outbound
// payload for a webhook.
type WebhookDelivery struct {
	ID            string                `gorm:"primaryKey;size:64" json:"id"`
	WebhookID     string                `gorm:"index;size:64;not null" json:"webhookId"`
	Event         string                `gorm:"size:64;not null" json:"event"`
	Payload       string                `gorm:"type:text;not null" json:"payload"`
	Attempts      int                   `json:"attempts"`
	NextAttemptAt time.Time             `json:"nextAttemptAt"`
	Status        WebhookDeliveryStatus `gorm:"size:16;not null" json:"status"`
	LastError     string                `gorm:"size:1024" json:"lastError,omitempty"`
	CreatedAt     time.Time             `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName returns the table name for WebhookDelivery.
func (WebhookDelivery) TableName() string { return "webhook_deliveries" }

// MaxDeliveryAttempts is the terminal-failure threshold from §4.6.
const MaxDeliveryAttempts = 5

// Backoff is the retry schedule from §4.6: 1s, 5s, 30s, 2m, 10m.
var Backoff = []time.Duration{
	1 * time.Second,
	5 * time.Second,
	30 * time.Second,
	2 * time.Minute,
	10 * time.Minute,
}

// NextBackoff returns the delay before the (attempts+1)-th attempt.
func NextBackoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts >= len(Backoff) {
		return Backoff[len(Backoff)-1]
	}
	return Backoff[attempts]
}
