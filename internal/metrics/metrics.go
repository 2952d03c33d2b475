package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every counter and gauge mdplane exports. A nil *Metrics is
// valid and every method on it is a no-op, so callers can build one
// unconditionally and pass it through even when metrics are disabled.
type Metrics struct {
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	appendsTotal        *prometheus.CounterVec
	claimsActive        *prometheus.GaugeVec
	webhookDeliveries   *prometheus.CounterVec
	quotaUsageBytes     *prometheus.GaugeVec
	rateLimitRejections *prometheus.CounterVec
}

// New creates a Prometheus-backed Metrics instance. Returns nil if
// InitRegistry has not been called, resulting in zero overhead for callers
// that guard every Record call with a nil check (all methods are nil-safe
// so no guard is actually required).
func New() *Metrics {
	if !IsEnabled() {
		return nil
	}
	reg := GetRegistry()

	return &Metrics{
		httpRequests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mdplane_http_requests_total",
				Help: "Total HTTP requests by route, method and status class",
			},
			[]string{"route", "method", "status"},
		),
		httpRequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mdplane_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		appendsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mdplane_appends_total",
				Help: "Total append-log events written, by type",
			},
			[]string{"type"},
		),
		claimsActive: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mdplane_claims_active",
				Help: "Currently active claims by workspace",
			},
			[]string{"workspace_id"},
		),
		webhookDeliveries: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mdplane_webhook_deliveries_total",
				Help: "Webhook delivery attempts by outcome",
			},
			[]string{"outcome"},
		),
		quotaUsageBytes: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mdplane_quota_usage_bytes",
				Help: "Storage bytes consumed per workspace",
			},
			[]string{"workspace_id"},
		),
		rateLimitRejections: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mdplane_rate_limit_rejections_total",
				Help: "Requests rejected by rate limiting, by limiter",
			},
			[]string{"limiter"},
		),
	}
}

func (m *Metrics) RecordHTTPRequest(route, method, status string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, status).Inc()
}

func (m *Metrics) ObserveHTTPDuration(route, method string, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequestDuration.WithLabelValues(route, method).Observe(seconds)
}

func (m *Metrics) RecordAppend(appendType string) {
	if m == nil {
		return
	}
	m.appendsTotal.WithLabelValues(appendType).Inc()
}

func (m *Metrics) SetActiveClaims(workspaceID string, n float64) {
	if m == nil {
		return
	}
	m.claimsActive.WithLabelValues(workspaceID).Set(n)
}

func (m *Metrics) RecordWebhookDelivery(outcome string) {
	if m == nil {
		return
	}
	m.webhookDeliveries.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetQuotaUsage(workspaceID string, bytes float64) {
	if m == nil {
		return
	}
	m.quotaUsageBytes.WithLabelValues(workspaceID).Set(bytes)
}

func (m *Metrics) RecordRateLimitRejection(limiter string) {
	if m == nil {
		return
	}
	m.rateLimitRejections.WithLabelValues(limiter).Inc()
}
