package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns an http.Handler exposing the process registry in the
// Prometheus exposition format. Returns a 503 handler if metrics are
// disabled, so the route can be mounted unconditionally.
func Handler() http.Handler {
	if !IsEnabled() {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "metrics disabled", http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}
