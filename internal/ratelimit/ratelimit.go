// Package ratelimit implements the §4.7 per-key/per-IP/per-workspace
// token-bucket rate limits.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// entry pairs a limiter with the last time it was consulted, so a
// background sweep can evict buckets for keys that have gone quiet
// instead of growing the map forever.
type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter is a keyed set of token buckets sharing one rate/burst
// configuration — one bucket per distinct key (an IP, a capability key
// ID, a workspace ID, whatever the caller's endpoint is scoped by).
type Limiter struct {
	mu       sync.Mutex
	entries  map[string]*entry
	ratePerS float64
	burst    int
}

// New constructs a Limiter allowing `burst` requests immediately and
// refilling at ratePerS tokens/second thereafter.
func New(ratePerS float64, burst int) *Limiter {
	return &Limiter{
		entries:  make(map[string]*entry),
		ratePerS: ratePerS,
		burst:    burst,
	}
}

// NewPerMinute constructs a Limiter expressed as N requests per minute,
// the unit most of §4.7's limits are specified in.
func NewPerMinute(perMinute int, burst int) *Limiter {
	return New(float64(perMinute)/60.0, burst)
}

// NewPerHour constructs a Limiter expressed as N requests per hour.
func NewPerHour(perHour int, burst int) *Limiter {
	return New(float64(perHour)/3600.0, burst)
}

// Allow reports whether a request for key may proceed, consuming a
// token if so.
func (l *Limiter) Allow(key string) bool {
	ok, _ := l.AllowAt(key, time.Now())
	return ok
}

// AllowAt is Allow with an explicit clock, and also returns the
// seconds the caller should wait before retrying on denial, for the
// §4.7 `Retry-After` header and `error.details.retryAfterSeconds`.
func (l *Limiter) AllowAt(key string, now time.Time) (bool, int) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rate.Limit(l.ratePerS), l.burst)}
		l.entries[key] = e
	}
	e.lastSeen = now
	l.mu.Unlock()

	res := e.limiter.ReserveN(now, 1)
	if !res.OK() {
		return false, 0
	}
	delay := res.DelayFrom(now)
	if delay <= 0 {
		return true, 0
	}
	res.Cancel()
	return false, int(delay.Seconds()) + 1
}

// Sweep evicts buckets untouched since before cutoff, bounding memory
// growth from a steady stream of distinct one-shot keys (new capability
// keys, rotating IPs).
func (l *Limiter) Sweep(cutoff time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, e := range l.entries {
		if e.lastSeen.Before(cutoff) {
			delete(l.entries, k)
		}
	}
}

// StartSweeper runs Sweep on interval against keys idle for longer than
// maxIdle, until stop is closed.
func (l *Limiter) StartSweeper(interval, maxIdle time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case now := <-ticker.C:
				l.Sweep(now.Add(-maxIdle))
			}
		}
	}()
}
