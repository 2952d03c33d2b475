// Package metrics exposes the process-wide Prometheus registry for
// mdplane. Collectors are created lazily through the New*Metrics
// constructors below so call sites can pass a nil metrics instance when
// metrics are disabled, at zero runtime overhead.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registry *prometheus.Registry
	enabled  bool
	initOnce sync.Once
)

// InitRegistry creates the process-wide Prometheus registry. Safe to call
// more than once; only the first call has an effect.
func InitRegistry() {
	initOnce.Do(func() {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			prometheus.NewGoCollector(),
			prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		)
		enabled = true
	})
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return enabled
}

// GetRegistry returns the process registry. Callers must not invoke this
// before InitRegistry.
func GetRegistry() *prometheus.Registry {
	return registry
}
