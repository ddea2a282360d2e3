// SPDX-License-Identifier: MIT

// Package audit provides structured audit logging for security-sensitive operations.
// It follows the WHO/WHAT/WHEN pattern.
package audit

import (
	"context"
	"time"

	"github.com/ManuGH/leavegate/internal/auth"
	"github.com/ManuGH/leavegate/internal/log"
	"github.com/rs/zerolog"
)

// EventType represents the type of audit event.
type EventType string

const (
	// Authentication events
	EventLoginSuccess EventType = "auth.login.success"
	EventLoginFailure EventType = "auth.login.failure"
	EventLogout       EventType = "auth.logout"

	// Leave lifecycle events
	EventLeaveSubmitted EventType = "leave.submitted"
	EventLeaveDecided   EventType = "leave.decided"
	EventOTPIssued      EventType = "leave.otp.issued"
	EventOTPVerified    EventType = "leave.otp.verified"
	EventOTPFailed      EventType = "leave.otp.failed"

	// Access events
	EventForbidden EventType = "api.forbidden"
	EventRateLimit EventType = "api.ratelimit"
	EventExport    EventType = "leave.export"

	EventConfigReload EventType = "config.reload"
)

// Results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultDenied  = "denied"
)

// Event represents a structured audit event.
type Event struct {
	Timestamp  time.Time         `json:"timestamp"`
	Type       EventType         `json:"type"`
	Actor      string            `json:"actor"`             // WHO: principal id, email or "system"
	Role       auth.Role         `json:"role,omitempty"`    // role of the actor, when known
	Action     string            `json:"action"`            // WHAT: human-readable action description
	Resource   string            `json:"resource"`          // Resource affected (leave id, endpoint)
	Result     string            `json:"result"`            // success, failure, denied
	RemoteAddr string            `json:"remote_addr"`       // Client IP address
	UserAgent  string            `json:"user_agent"`        // Client user agent
	RequestID  string            `json:"request_id"`        // Correlation ID
	Details    map[string]string `json:"details,omitempty"` // Additional context
}

// Logger provides audit logging functionality.
type Logger struct {
	logger zerolog.Logger
	now    func() time.Time
}

// NewLogger creates a new audit logger with a dedicated "audit" component.
func NewLogger() *Logger {
	return NewLoggerWith(log.WithComponent("audit"))
}

// NewLoggerWith tags base as the audit stream.
func NewLoggerWith(base zerolog.Logger) *Logger {
	return &Logger{
		logger: base.With().Str("log_type", "audit").Logger(),
		now:    time.Now,
	}
}

// Log writes an audit event to the audit log.
func (l *Logger) Log(event Event) {
	if l == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now()
	}

	logEvent := l.logger.Info().
		Time("timestamp", event.Timestamp).
		Str("event_type", string(event.Type)).
		Str("actor", event.Actor).
		Str("action", event.Action).
		Str("resource", event.Resource).
		Str("result", event.Result)

	if event.Role != "" {
		logEvent.Str(log.FieldActorRole, string(event.Role))
	}
	if event.RemoteAddr != "" {
		logEvent.Str(log.FieldRemote, event.RemoteAddr)
	}
	if event.UserAgent != "" {
		logEvent.Str("user_agent", event.UserAgent)
	}
	if event.RequestID != "" {
		logEvent.Str(log.FieldRequestID, event.RequestID)
	}
	for key, value := range event.Details {
		logEvent.Str(key, value)
	}

	logEvent.Msg("audit event")
}

type metaKey struct{}

// Meta is per-request client information attached by the HTTP layer.
type Meta struct {
	RemoteAddr string
	UserAgent  string
}

// WithMeta stores client metadata in ctx.
func WithMeta(ctx context.Context, m Meta) context.Context {
	return context.WithValue(ctx, metaKey{}, m)
}

// LogFromContext fills request id, client metadata and actor from ctx
// before logging.
func (l *Logger) LogFromContext(ctx context.Context, event Event) {
	if l == nil {
		return
	}
	if event.RequestID == "" {
		event.RequestID = log.RequestIDFromContext(ctx)
	}
	if m, ok := ctx.Value(metaKey{}).(Meta); ok {
		if event.RemoteAddr == "" {
			event.RemoteAddr = m.RemoteAddr
		}
		if event.UserAgent == "" {
			event.UserAgent = m.UserAgent
		}
	}
	if event.Actor == "" {
		if p, ok := auth.PrincipalFromContext(ctx); ok {
			event.Actor = p.ID
			event.Role = p.Role
		}
	}
	l.Log(event)
}

// Login records a login attempt. actor is the submitted email on failure.
func (l *Logger) Login(ctx context.Context, actor string, role auth.Role, ok bool) {
	ev := Event{Type: EventLoginSuccess, Actor: actor, Role: role, Action: "logged in", Resource: "session", Result: ResultSuccess}
	if !ok {
		ev.Type, ev.Action, ev.Result = EventLoginFailure, "login rejected", ResultFailure
	}
	l.LogFromContext(ctx, ev)
}

// Logout records a session teardown.
func (l *Logger) Logout(ctx context.Context, p auth.Principal) {
	l.LogFromContext(ctx, Event{Type: EventLogout, Actor: p.ID, Role: p.Role, Action: "logged out", Resource: "session", Result: ResultSuccess})
}

// Transition records a lifecycle action against a leave request.
func (l *Logger) Transition(ctx context.Context, t EventType, p auth.Principal, leaveID, action, result string, details map[string]string) {
	l.LogFromContext(ctx, Event{
		Type:     t,
		Actor:    p.ID,
		Role:     p.Role,
		Action:   action,
		Resource: leaveID,
		Result:   result,
		Details:  details,
	})
}

// Forbidden records a denied operation.
func (l *Logger) Forbidden(ctx context.Context, p auth.Principal, resource, reason string) {
	l.LogFromContext(ctx, Event{
		Type:     EventForbidden,
		Actor:    p.ID,
		Role:     p.Role,
		Action:   "access denied",
		Resource: resource,
		Result:   ResultDenied,
		Details:  map[string]string{"reason": reason},
	})
}

// RateLimited records a request rejected by a rate limiter.
func (l *Logger) RateLimited(ctx context.Context, actor, resource string) {
	l.LogFromContext(ctx, Event{Type: EventRateLimit, Actor: actor, Action: "rate limit exceeded", Resource: resource, Result: ResultDenied})
}

// ConfigReload logs a configuration reload event.
func (l *Logger) ConfigReload(result string, details map[string]string) {
	l.Log(Event{
		Type:     EventConfigReload,
		Actor:    "system",
		Action:   "reloaded configuration",
		Resource: "config",
		Result:   result,
		Details:  details,
	})
}
