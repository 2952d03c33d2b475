package ratelimit

// Registry holds the named limiters §4.7 calls for, each scoped to a
// different key (IP, workspace, or capability key) depending on the
// endpoint it guards.
type Registry struct {
	Bootstrap     *Limiter // 10/hour, keyed by client IP
	APIKeyCreate  *Limiter // 10/minute, keyed by workspace
	CapabilityRead *Limiter // 1000/minute, keyed by capability key
}

// NewRegistry constructs the registry with the spec's fixed limits.
func NewRegistry() *Registry {
	return &Registry{
		Bootstrap:      NewPerHour(10, 10),
		APIKeyCreate:   NewPerMinute(10, 10),
		CapabilityRead: NewPerMinute(1000, 100),
	}
}
