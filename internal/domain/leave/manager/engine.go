// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package manager is the leave lifecycle engine. Every operation takes the
// acting principal explicitly; nothing is read from ambient session state.
package manager

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ManuGH/leavegate/internal/audit"
	"github.com/ManuGH/leavegate/internal/auth"
	"github.com/ManuGH/leavegate/internal/domain/leave/lifecycle"
	"github.com/ManuGH/leavegate/internal/domain/leave/model"
	"github.com/ManuGH/leavegate/internal/domain/leave/store"
	"github.com/ManuGH/leavegate/internal/identity"
	xglog "github.com/ManuGH/leavegate/internal/log"
	"github.com/ManuGH/leavegate/internal/metrics"
	"github.com/ManuGH/leavegate/internal/otp"
	"github.com/ManuGH/leavegate/internal/telemetry"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/ManuGH/leavegate/internal/domain/leave/manager"

// ParentDirectory resolves the parent linked to a student.
type ParentDirectory interface {
	ParentOf(studentID string) (identity.User, bool)
}

// Deps wires the engine's collaborators. Store and OTP are required.
type Deps struct {
	Store    store.StateStore
	OTP      otp.Service
	Notifier otp.Notifier
	// Parents, when set, refuses gated approvals for students without a
	// linked parent and addresses the notification.
	Parents ParentDirectory
	Audit   *audit.Logger
	Policy  GatePolicy
	Logger  *zerolog.Logger
	Now     func() time.Time
	NewID   func() string
}

// Engine validates and applies leave lifecycle transitions.
type Engine struct {
	store    store.StateStore
	otp      otp.Service
	notifier otp.Notifier
	parents  ParentDirectory
	audit    *audit.Logger
	logger   zerolog.Logger
	now      func() time.Time
	newID    func() string

	policy atomic.Pointer[GatePolicy]
	locks  *keyedLock
	tracer trace.Tracer
}

// New builds an Engine from deps.
func New(deps Deps) (*Engine, error) {
	if deps.Store == nil {
		return nil, errors.New("manager: store is required")
	}
	if deps.OTP == nil {
		return nil, errors.New("manager: otp service is required")
	}
	policy := deps.Policy
	if policy.Mode == "" {
		policy = DefaultGatePolicy()
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("manager: %w", err)
	}

	e := &Engine{
		store:    deps.Store,
		otp:      deps.OTP,
		notifier: deps.Notifier,
		parents:  deps.Parents,
		audit:    deps.Audit,
		now:      deps.Now,
		newID:    deps.NewID,
		locks:    newKeyedLock(),
		tracer:   telemetry.Tracer(tracerName),
	}
	if deps.Logger != nil {
		e.logger = *deps.Logger
	} else {
		e.logger = xglog.WithComponent("leave")
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	if e.notifier == nil {
		e.notifier = otp.LogNotifier{Logger: e.logger}
	}
	e.policy.Store(&policy)
	return e, nil
}

// SetParentGatePolicy swaps the gate policy for subsequent decisions.
func (e *Engine) SetParentGatePolicy(p GatePolicy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	e.policy.Store(&p)
	e.logger.Info().
		Str(xglog.FieldEvent, "leave.policy.updated").
		Str("mode", string(p.Mode)).
		Int("min_days", p.MinDays).
		Msg("parent gate policy updated")
	return nil
}

// ParentGatePolicy returns the policy in force.
func (e *Engine) ParentGatePolicy() GatePolicy {
	return *e.policy.Load()
}

func (e *Engine) startSpan(ctx context.Context, op string, actor auth.Principal, leaveID string) (context.Context, trace.Span) {
	ctx, span := e.tracer.Start(ctx, "leave."+op)
	span.SetAttributes(telemetry.ActorAttributes(actor.ID, string(actor.Role))...)
	if leaveID != "" {
		span.SetAttributes(telemetry.TransitionAttributes(leaveID, "", "", "")...)
	}
	return ctx, span
}

// finish closes out an operation: span status, latency and refusal metrics.
func (e *Engine) finish(ctx context.Context, span trace.Span, op string, actor auth.Principal, resource string, start time.Time, err error) {
	metrics.ObserveEngineOp(op, start)
	if err != nil {
		class := ErrorClass(err)
		telemetry.RecordError(span, err, class)
		metrics.RecordRejected(op, class)
		if errors.Is(err, ErrForbidden) {
			e.audit.Forbidden(ctx, actor, resource, op)
		}
		logger := xglog.WithContext(ctx, e.logger)
		logger.Debug().Err(err).
			Str("op", op).
			Str(xglog.FieldLeaveID, resource).
			Str(xglog.FieldActorID, actor.ID).
			Msg("leave operation refused")
	}
	span.End()
}

func telemetryLeave(rec *model.LeaveRequest) []attribute.KeyValue {
	return telemetry.TransitionAttributes(rec.ID, "", "", string(rec.Status))
}

// reviewerName is what reviewedBy records for actor.
func reviewerName(actor auth.Principal) string {
	if name := strings.TrimSpace(actor.Name); name != "" {
		return name
	}
	return actor.ID
}

func (e *Engine) logTransition(ctx context.Context, rec *model.LeaveRequest, tr lifecycle.Transition, actor auth.Principal) {
	metrics.RecordTransition(tr.Event.String(), string(tr.From), string(tr.To))
	trace.SpanFromContext(ctx).SetAttributes(
		telemetry.TransitionAttributes(rec.ID, tr.Event.String(), string(tr.From), string(tr.To))...)
	logger := xglog.WithContext(ctx, e.logger)
	logger.Info().
		Str(xglog.FieldEvent, "leave.transition").
		Str(xglog.FieldLeaveID, rec.ID).
		Str(xglog.FieldActorID, actor.ID).
		Str(xglog.FieldActorRole, string(actor.Role)).
		Str(xglog.FieldOldState, string(tr.From)).
		Str(xglog.FieldNewState, string(tr.To)).
		Msg("leave transitioned")
}

func (e *Engine) load(ctx context.Context, id string) (*model.LeaveRequest, error) {
	rec, err := e.store.GetRequest(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load leave %s: %w", id, err)
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (e *Engine) lock(ctx context.Context, id string) (func(), error) {
	unlock, err := e.locks.Lock(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("wait for leave %s: %w", id, err)
	}
	return unlock, nil
}

// commit persists ev on id. The store re-checks the transition inside its
// atomic section.
func (e *Engine) commit(ctx context.Context, id string, ev lifecycle.EventKind, fx lifecycle.Effects) (*model.LeaveRequest, lifecycle.Transition, error) {
	var tr lifecycle.Transition
	rec, err := e.store.UpdateRequest(ctx, id, func(r *model.LeaveRequest) error {
		var derr error
		tr, derr = lifecycle.Dispatch(r, ev, fx)
		return derr
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, tr, ErrNotFound
	}
	if err != nil {
		return nil, tr, err
	}
	return rec, tr, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// validationError maps the first validator failure onto a ValidationError.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &lifecycle.ValidationError{Field: fe.Field(), Reason: describeTag(fe), Err: err}
	}
	return &lifecycle.ValidationError{Reason: err.Error(), Err: err}
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "datetime":
		return "must be YYYY-MM-DD"
	default:
		return "failed " + fe.Tag()
	}
}
