// SPDX-License-Identifier: MIT

// Package middleware provides the HTTP ingress middleware stack.
package middleware

import (
	"net/http"

	xglog "github.com/ManuGH/leavegate/internal/log"
	"github.com/go-chi/chi/v5"
)

// StackConfig selects the optional layers of the ingress stack.
type StackConfig struct {
	AllowedOrigins []string
	EnableCORS     bool
	EnableCSRF     bool

	EnableSecurityHeaders bool
	CSP                   string

	EnableMetrics  bool
	TracingService string // empty disables tracing
	EnableLogging  bool
}

type layer struct {
	name string
	mw   func(http.Handler) http.Handler
}

// layers lists the enabled middleware outermost first. Recovery and request
// ids always run; tracing precedes logging so log lines carry trace ids.
func (cfg StackConfig) layers() []layer {
	ls := []layer{
		{"recover", Recoverer},
		{"request-id", RequestID},
	}
	if cfg.TracingService != "" {
		ls = append(ls, layer{"tracing", OTelHTTP(cfg.TracingService, nil)})
	}
	if cfg.EnableLogging {
		ls = append(ls, layer{"logging", xglog.Middleware()})
	}
	if cfg.EnableMetrics {
		ls = append(ls, layer{"metrics", Metrics()})
	}
	if cfg.EnableCORS {
		ls = append(ls, layer{"cors", CORS(cfg.AllowedOrigins)})
	}
	if cfg.EnableCSRF {
		ls = append(ls, layer{"origin-check", OriginCheck(cfg.AllowedOrigins)})
	}
	if cfg.EnableSecurityHeaders {
		ls = append(ls, layer{"security-headers", SecurityHeaders(cfg.CSP)})
	}
	return ls
}

// NewRouter returns a chi router with the configured stack installed.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	for _, l := range cfg.layers() {
		r.Use(l.mw)
	}
	return r
}
