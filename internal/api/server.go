// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api is the JSON HTTP adapter over the leave lifecycle engine.
package api

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/ManuGH/leavegate/internal/api/middleware"
	"github.com/ManuGH/leavegate/internal/audit"
	"github.com/ManuGH/leavegate/internal/auth"
	"github.com/ManuGH/leavegate/internal/authz"
	"github.com/ManuGH/leavegate/internal/domain/leave/manager"
	"github.com/ManuGH/leavegate/internal/health"
	"github.com/ManuGH/leavegate/internal/identity"
	"github.com/ManuGH/leavegate/internal/log"
	"github.com/ManuGH/leavegate/internal/ratelimit"
	"github.com/ManuGH/leavegate/internal/session"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// Config is the transport configuration.
type Config struct {
	AllowedOrigins []string
	// LoginRateLimit is login attempts per client IP and minute; 0 disables.
	LoginRateLimit int
	// OTPRate and OTPBurst bound OTP verify/resend calls per principal.
	OTPRate  float64
	OTPBurst int
	// CookieSecure marks the session cookie Secure.
	CookieSecure bool
	// TracingService enables otelhttp spans under this service name.
	TracingService string
}

// Authenticator is the identity provider.
type Authenticator interface {
	Authenticate(ctx context.Context, c identity.Credentials) (auth.Principal, error)
}

// Deps wires the server's collaborators. Engine, Sessions and Identity are required.
type Deps struct {
	Engine   *manager.Engine
	Sessions *session.Manager
	Identity Authenticator
	Audit    *audit.Logger
	Health   *health.Manager
	Now      func() time.Time
}

// Server serves the leave API.
type Server struct {
	cfg      Config
	engine   *manager.Engine
	sessions *session.Manager
	identity Authenticator
	audit    *audit.Logger
	health   *health.Manager
	now      func() time.Time

	otpLimiter    *ratelimit.Limiter
	otpRetryAfter string
	handler       http.Handler
}

// New validates deps and builds the router.
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Engine == nil || deps.Sessions == nil || deps.Identity == nil {
		return nil, errors.New("api: engine, sessions and identity are required")
	}
	s := &Server{
		cfg:      cfg,
		engine:   deps.Engine,
		sessions: deps.Sessions,
		identity: deps.Identity,
		audit:    deps.Audit,
		health:   deps.Health,
		now:      deps.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.health == nil {
		s.health = health.NewManager("")
	}
	limiterCfg := ratelimit.DefaultConfig()
	limiterCfg.Name = "otp"
	if cfg.OTPRate > 0 {
		limiterCfg.Rate = rate.Limit(cfg.OTPRate)
	}
	if cfg.OTPBurst > 0 {
		limiterCfg.Burst = cfg.OTPBurst
	}
	s.otpLimiter = ratelimit.New(limiterCfg)
	s.otpRetryAfter = strconv.Itoa(int(math.Ceil(1 / float64(limiterCfg.Rate))))

	h, err := s.routes()
	if err != nil {
		return nil, err
	}
	s.handler = h
	return s, nil
}

// Handler is the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// route binds an OpenAPI operation to a handler.
type route struct {
	method      string
	pattern     string
	operationID string
	handler     http.HandlerFunc
}

func (s *Server) apiRoutes() []route {
	login := middleware.LoginRateLimit(s.cfg.LoginRateLimit, func(r *http.Request) {
		s.audit.RateLimited(r.Context(), ratelimit.GetClientIP(r), r.URL.Path)
	})(http.HandlerFunc(s.handleLogin))

	return []route{
		{http.MethodPost, "/api/v1/auth/login", "login", login.ServeHTTP},
		{http.MethodPost, "/api/v1/auth/logout", "logout", s.handleLogout},
		{http.MethodGet, "/api/v1/me", "getMe", s.handleMe},
		{http.MethodGet, "/api/v1/leaves", "listLeaves", s.handleListLeaves},
		{http.MethodPost, "/api/v1/leaves", "submitLeave", s.handleSubmitLeave},
		{http.MethodGet, "/api/v1/leaves/export.csv", "exportLeaves", s.handleExportLeaves},
		{http.MethodGet, "/api/v1/leaves/{id}", "getLeave", s.handleGetLeave},
		{http.MethodPost, "/api/v1/leaves/{id}/decision", "decideLeave", s.handleDecideLeave},
		{http.MethodPost, "/api/v1/leaves/{id}/otp/verify", "verifyLeaveOtp", s.handleVerifyOTP},
		{http.MethodPost, "/api/v1/leaves/{id}/otp/resend", "resendLeaveOtp", s.handleResendOTP},
		{http.MethodGet, "/healthz", "getHealthz", s.health.ServeHealth},
		{http.MethodGet, "/readyz", "getReadyz", s.health.ServeReady},
	}
}

func (s *Server) routes() (http.Handler, error) {
	r := middleware.NewRouter(middleware.StackConfig{
		AllowedOrigins:        s.cfg.AllowedOrigins,
		EnableCORS:            len(s.cfg.AllowedOrigins) > 0,
		EnableCSRF:            true,
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		TracingService:        s.cfg.TracingService,
		EnableLogging:         true,
	})
	r.Use(clientMeta)

	for _, rt := range s.apiRoutes() {
		h, err := s.operation(rt.operationID, rt.handler)
		if err != nil {
			return nil, err
		}
		r.Method(rt.method, rt.pattern, h)
	}
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		RespondError(w, r, http.StatusNotFound, &APIError{Code: "not_found", Message: "Route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		RespondError(w, r, http.StatusMethodNotAllowed, &APIError{Code: "method_not_allowed", Message: "Method not allowed"})
	})
	return r, nil
}

// operation enforces the session and capability policy for operationID.
func (s *Server) operation(operationID string, next http.HandlerFunc) (http.Handler, error) {
	required, ok := authz.RequiredCapability(operationID)
	if !ok {
		return nil, fmt.Errorf("api: no policy for operation %s", operationID)
	}
	if authz.IsUnauthenticatedAllowed(operationID) {
		return next, nil
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := s.sessions.Resolve(r.Context(), auth.ExtractToken(r))
		if err != nil {
			RespondError(w, r, http.StatusUnauthorized, ErrUnauthorized)
			return
		}
		ctx := auth.WithPrincipal(r.Context(), p)
		ctx = log.ContextWithActor(ctx, p.ID, string(p.Role))
		if !authz.CapabilitiesFor(p.Role).Has(required) {
			s.audit.Forbidden(ctx, p, r.URL.Path, operationID)
			RespondError(w, r, http.StatusForbidden, ErrForbidden)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	}), nil
}

// clientMeta attaches client information for audit events.
func clientMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := audit.WithMeta(r.Context(), audit.Meta{
			RemoteAddr: ratelimit.GetClientIP(r),
			UserAgent:  r.UserAgent(),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
