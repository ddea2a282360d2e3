// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"fmt"
	"time"

	"github.com/ManuGH/leavegate/internal/audit"
	"github.com/ManuGH/leavegate/internal/auth"
	"github.com/ManuGH/leavegate/internal/authz"
	"github.com/ManuGH/leavegate/internal/domain/leave/lifecycle"
	"github.com/ManuGH/leavegate/internal/domain/leave/model"
	"github.com/ManuGH/leavegate/internal/metrics"
	"github.com/ManuGH/leavegate/internal/otp"
	"github.com/ManuGH/leavegate/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// ChallengeInfo describes a re-issued challenge without revealing the code.
type ChallengeInfo struct {
	RequestID string    `json:"requestId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// VerifyOTP lets the linked parent confirm a gated approval. A malformed code
// is rejected before any store or OTP service call. On success the challenge
// is consumed and the request becomes approved.
func (e *Engine) VerifyOTP(ctx context.Context, id string, actor auth.Principal, code string) (rec *model.LeaveRequest, err error) {
	const op = "verify_otp"
	start := time.Now()
	ctx, span := e.startSpan(ctx, op, actor, id)
	defer func() {
		outcome := metrics.OTPSuccess
		switch ErrorClass(err) {
		case "":
		case "malformed_code":
			outcome = metrics.OTPMalformed
		case "invalid_or_expired":
			outcome = metrics.OTPMismatch
		case "forbidden", "not_found":
			outcome = metrics.OTPDenied
		default:
			outcome = metrics.OTPError
		}
		span.SetAttributes(attribute.String(telemetry.OTPOutcomeKey, outcome))
		metrics.RecordOTPVerification(outcome)
		e.finish(ctx, span, op, actor, id, start, err)
	}()

	if verr := otp.ValidateCode(code); verr != nil {
		return nil, &lifecycle.ValidationError{Field: "code", Reason: "must be exactly 6 digits", Err: verr}
	}
	if !authz.CapabilitiesFor(actor.Role).CanVerifyOTP || actor.IsZero() {
		return nil, ErrForbidden
	}

	unlock, err := e.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	cur, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	// Same answer as a missing id; other students' requests stay invisible.
	if !linkedTo(actor, cur) {
		return nil, ErrNotFound
	}
	if cur.Status != model.StatusPendingOTP {
		return nil, ErrInvalidOrExpired
	}

	ok, err := e.otp.Verify(ctx, id, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChallengeUnavailable, err)
	}
	if !ok {
		e.audit.Transition(ctx, audit.EventOTPFailed, actor, id, "otp verification failed", audit.ResultFailure, nil)
		return nil, ErrInvalidOrExpired
	}

	// The challenge is consumed; the commit must not be abandoned with it.
	rec, tr, err := e.commit(context.WithoutCancel(ctx), id, lifecycle.EvOTPVerified, lifecycle.Effects{Now: e.now()})
	if err != nil {
		return nil, err
	}
	e.logTransition(ctx, rec, tr, actor)
	e.audit.Transition(ctx, audit.EventOTPVerified, actor, id, "confirmed approval with otp", audit.ResultSuccess, nil)
	return rec, nil
}

// ResendOTP replaces the challenge of a pending_otp request. Reviewers and
// the linked parent may ask for it.
func (e *Engine) ResendOTP(ctx context.Context, id string, actor auth.Principal) (info ChallengeInfo, err error) {
	const op = "resend_otp"
	start := time.Now()
	ctx, span := e.startSpan(ctx, op, actor, id)
	defer func() { e.finish(ctx, span, op, actor, id, start, err) }()

	caps := authz.CapabilitiesFor(actor.Role)
	if !caps.Has(authz.CapResendOTP) || actor.IsZero() {
		return ChallengeInfo{}, ErrForbidden
	}

	unlock, err := e.lock(ctx, id)
	if err != nil {
		return ChallengeInfo{}, err
	}
	defer unlock()

	cur, err := e.load(ctx, id)
	if err != nil {
		return ChallengeInfo{}, err
	}
	if !caps.CanDecide && !linkedTo(actor, cur) {
		return ChallengeInfo{}, ErrNotFound
	}
	if cur.Status != model.StatusPendingOTP {
		return ChallengeInfo{}, &lifecycle.TransitionError{
			From:   cur.Status,
			Event:  lifecycle.EvOTPVerified,
			Reason: lifecycle.ForbiddenRequiresPendingOTP,
		}
	}

	recipient, err := e.parentRecipient(cur.StudentID)
	if err != nil {
		return ChallengeInfo{}, err
	}
	ch, err := e.issue(ctx, id)
	if err != nil {
		return ChallengeInfo{}, err
	}
	e.deliver(ctx, ch, recipient, actor)
	return ChallengeInfo{RequestID: ch.RequestID, ExpiresAt: ch.ExpiresAt}, nil
}

// linkedTo reports whether a parent actor answers for rec's student.
func linkedTo(actor auth.Principal, rec *model.LeaveRequest) bool {
	return actor.LinkedStudentID != "" && actor.LinkedStudentID == rec.StudentID
}
