// SPDX-License-Identifier: MIT

// Package ratelimit provides keyed token-bucket limiters, e.g. per principal
// for OTP verification.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

var (
	rateLimitExceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "leavegate",
			Name:      "ratelimit_exceeded_total",
			Help:      "Total rate limit rejections",
		},
		[]string{"limit_type"},
	)
)

// Config holds rate limiting configuration
type Config struct {
	// Name labels rejections in metrics.
	Name string

	// Per-key limits
	Rate  rate.Limit // tokens per second
	Burst int        // max burst size

	// Keys idle for longer than IdleTTL are forgotten.
	IdleTTL time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Name:    "keyed",
		Rate:    0.5, // one attempt every two seconds
		Burst:   5,
		IdleTTL: 10 * time.Minute,
	}
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter manages one token bucket per key.
type Limiter struct {
	config Config
	now    func() time.Time

	mu          sync.Mutex
	keys        map[string]*entry
	lastCleanup time.Time
}

// New creates a new rate limiter with the given config
func New(config Config) *Limiter {
	if config.IdleTTL <= 0 {
		config.IdleTTL = DefaultConfig().IdleTTL
	}
	if config.Name == "" {
		config.Name = "keyed"
	}
	return newWithClock(config, time.Now)
}

func newWithClock(config Config, now func() time.Time) *Limiter {
	return &Limiter{
		config:      config,
		now:         now,
		keys:        make(map[string]*entry),
		lastCleanup: now(),
	}
}

// Allow reports whether an event for key may happen now.
// A zero Rate disables limiting.
func (l *Limiter) Allow(key string) bool {
	if l == nil || l.config.Rate == 0 {
		return true
	}
	now := l.now()

	l.mu.Lock()
	e, ok := l.keys[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.config.Rate, l.config.Burst)}
		l.keys[key] = e
	}
	e.lastSeen = now
	allowed := e.limiter.AllowN(now, 1)
	l.maybeCleanupLocked(now)
	l.mu.Unlock()

	if !allowed {
		rateLimitExceeded.WithLabelValues(l.config.Name).Inc()
	}
	return allowed
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}

// maybeCleanupLocked drops idle keys once per IdleTTL.
func (l *Limiter) maybeCleanupLocked(now time.Time) {
	if now.Sub(l.lastCleanup) < l.config.IdleTTL {
		return
	}
	for k, e := range l.keys {
		if now.Sub(e.lastSeen) >= l.config.IdleTTL {
			delete(l.keys, k)
		}
	}
	l.lastCleanup = now
}

// GetClientIP extracts the real client IP from the request
func GetClientIP(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs: "client, proxy1, proxy2"
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
