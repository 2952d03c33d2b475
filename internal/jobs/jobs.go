// Package jobs runs mdplane's independent background sweeps: expiry
// surfacing, soft-delete purge, webhook dispatch and quota/claim gauge
// refresh. Each sweep polls on its own ticker; none requires leader
// election (spec.md §5, "Background jobs").
package jobs

import (
	"context"
	"time"

	"github.com/albri/mdplane/internal/logger"
	"github.com/albri/mdplane/internal/metrics"
	"github.com/albri/mdplane/internal/models"
	"github.com/albri/mdplane/internal/orchestration"
	"github.com/albri/mdplane/internal/webhook"
)

// WorkspaceLister is the control-plane view jobs needs: every
// non-deleted workspace.
type WorkspaceLister interface {
	ListAllWorkspaces(ctx context.Context) ([]*models.Workspace, error)
}

// KVStore is the subset of the kv store jobs sweep over.
type KVStore interface {
	DeriveWorkspace(workspaceID string, now time.Time) (orchestration.Derived, error)
	PurgeDeletedFiles(workspaceID string, cutoff time.Time) (int, error)
}

// Runner owns every background sweep and the webhook dispatcher.
type Runner struct {
	workspaces    WorkspaceLister
	kv            KVStore
	dispatcher    *webhook.Dispatcher
	metrics       *metrics.Metrics
	purgeAfter    time.Duration
	purgeInterval time.Duration
	gaugeInterval time.Duration
}

// Config tunes the sweep cadences. Zero values fall back to the §9
// defaults: soft-deleted files purge after 7 days, checked hourly;
// quota/claim gauges refresh every 30 seconds.
type Config struct {
	PurgeAfter    time.Duration
	PurgeInterval time.Duration
	GaugeInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.PurgeAfter == 0 {
		c.PurgeAfter = 7 * 24 * time.Hour
	}
	if c.PurgeInterval == 0 {
		c.PurgeInterval = time.Hour
	}
	if c.GaugeInterval == 0 {
		c.GaugeInterval = 30 * time.Second
	}
	return c
}

// NewRunner constructs a Runner. m may be nil when metrics are disabled.
func NewRunner(workspaces WorkspaceLister, kv KVStore, dispatcher *webhook.Dispatcher, m *metrics.Metrics, cfg Config) *Runner {
	cfg = cfg.withDefaults()
	return &Runner{
		workspaces:    workspaces,
		kv:            kv,
		dispatcher:    dispatcher,
		metrics:       m,
		purgeAfter:    cfg.PurgeAfter,
		purgeInterval: cfg.PurgeInterval,
		gaugeInterval: cfg.GaugeInterval,
	}
}

// Start launches every sweep as its own goroutine; all of them exit when
// ctx is cancelled.
func (r *Runner) Start(ctx context.Context, webhookDispatchInterval time.Duration) {
	go r.dispatcher.Run(ctx, webhookDispatchInterval)
	go r.runPurgeLoop(ctx)
	go r.runGaugeLoop(ctx)
}

// runPurgeLoop hard-deletes soft-deleted files older than purgeAfter,
// per §4.4's "PURGE occurs after 7 days via background job".
func (r *Runner) runPurgeLoop(ctx context.Context) {
	ticker := time.NewTicker(r.purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.purgeOnce(ctx)
		}
	}
}

func (r *Runner) purgeOnce(ctx context.Context) {
	workspaces, err := r.workspaces.ListAllWorkspaces(ctx)
	if err != nil {
		logger.Error("purge sweep: list workspaces failed", "error", err)
		return
	}
	cutoff := time.Now().Add(-r.purgeAfter)
	for _, ws := range workspaces {
		n, err := r.kv.PurgeDeletedFiles(ws.ID, cutoff)
		if err != nil {
			logger.Error("purge sweep failed", "workspaceId", ws.ID, "error", err)
			continue
		}
		if n > 0 {
			logger.Info("purged soft-deleted files", "workspaceId", ws.ID, "count", n)
		}
	}
}

// runGaugeLoop refreshes the per-workspace claims-active and
// quota-usage gauges. It never mutates the append log: claim staleness
// is derived fresh from orchestration.Derive on every query, so this
// loop is purely observational (spec.md §4.2, "Sweep is idempotent").
func (r *Runner) runGaugeLoop(ctx context.Context) {
	if r.metrics == nil {
		return
	}
	ticker := time.NewTicker(r.gaugeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refreshGaugesOnce(ctx)
		}
	}
}

func (r *Runner) refreshGaugesOnce(ctx context.Context) {
	workspaces, err := r.workspaces.ListAllWorkspaces(ctx)
	if err != nil {
		logger.Error("gauge refresh: list workspaces failed", "error", err)
		return
	}
	now := time.Now()
	for _, ws := range workspaces {
		derived, err := r.kv.DeriveWorkspace(ws.ID, now)
		if err != nil {
			logger.Error("gauge refresh failed", "workspaceId", ws.ID, "error", err)
			continue
		}
		active := 0
		for _, c := range derived.Claims {
			if c.Status == models.ClaimActive {
				active++
			}
		}
		r.metrics.SetActiveClaims(ws.ID, float64(active))
	}
}
