package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/albri/mdplane/internal/logger"
	"github.com/albri/mdplane/internal/metrics"
	"github.com/albri/mdplane/internal/models"
	"github.com/albri/mdplane/internal/ratelimit"
)

// requestLogger logs request start at DEBUG and request completion at
// INFO, the same split the teacher's router.go uses so noisy health/
// liveness polling doesn't dominate INFO-level logs.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("API request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		ctx := logger.ContextWithLogContext(r.Context(), &logger.LogContext{RequestID: requestID})
		next.ServeHTTP(ww, r.WithContext(ctx))

		logger.Info("API request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		)
	})
}

// withMetrics records the per-route request counter and latency
// histogram, when metrics are enabled. routeLabel is fixed per mount
// point rather than derived from chi's matched pattern, so cardinality
// stays bounded regardless of how many distinct capability keys or
// workspace IDs pass through a given route.
func (a *API) withMetrics(routeLabel string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		h(ww, r)
		a.deps.Metrics.RecordHTTPRequest(routeLabel, r.Method, strconv.Itoa(ww.Status()))
		a.deps.Metrics.ObserveHTTPDuration(routeLabel, r.Method, time.Since(start).Seconds())
	}
}

// rateLimited wraps h with a token-bucket check against limiter, keyed by
// keyFunc(r). On denial it writes 429 RATE_LIMITED with Retry-After and
// error.details.retryAfterSeconds, per §4.7.
func rateLimited(limiter *ratelimit.Limiter, keyFunc func(*http.Request) string, name string, m *metrics.Metrics, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := keyFunc(r)
		ok, retryAfter := limiter.AllowAt(key, time.Now())
		if !ok {
			m.RecordRateLimitRejection(name)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			writeError(w, http.StatusTooManyRequests, models.CodeRateLimited, "rate limit exceeded",
				map[string]any{"retryAfterSeconds": retryAfter})
			return
		}
		h(w, r)
	}
}

// clientIP returns the best-effort client address for IP-keyed rate
// limits (bootstrap), preferring chi's RealIP-populated RemoteAddr.
func clientIP(r *http.Request) string {
	host := r.RemoteAddr
	if idx := lastColon(host); idx >= 0 {
		return host[:idx]
	}
	return host
}

func lastColon(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == ':' {
			return i
		}
	}
	return -1
}
