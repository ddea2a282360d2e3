// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/leavegate/internal/audit"
	"github.com/ManuGH/leavegate/internal/auth"
	"github.com/ManuGH/leavegate/internal/authz"
	"github.com/ManuGH/leavegate/internal/domain/leave/lifecycle"
	"github.com/ManuGH/leavegate/internal/domain/leave/model"
	xglog "github.com/ManuGH/leavegate/internal/log"
	"github.com/ManuGH/leavegate/internal/metrics"
	"github.com/ManuGH/leavegate/internal/otp"
	"github.com/ManuGH/leavegate/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// DecisionInput is a reviewer's verdict.
type DecisionInput struct {
	Action             model.Decision `json:"action" validate:"required,oneof=approve reject"`
	RequiresParentGate bool           `json:"requiresParentGate"`
	Comments           string         `json:"comments,omitempty" validate:"max=1000"`
}

// Decide applies a reviewer decision to a pending request. An approval that
// resolves to the parent gate issues an OTP challenge before committing; if
// the challenge cannot be issued nothing changes, and if the commit fails the
// challenge is invalidated again.
func (e *Engine) Decide(ctx context.Context, id string, actor auth.Principal, in DecisionInput) (rec *model.LeaveRequest, err error) {
	const op = "decide"
	start := time.Now()
	ctx, span := e.startSpan(ctx, op, actor, id)
	defer func() { e.finish(ctx, span, op, actor, id, start, err) }()

	if !authz.CapabilitiesFor(actor.Role).CanDecide || actor.IsZero() {
		return nil, ErrForbidden
	}
	in.Action = model.Decision(strings.ToLower(strings.TrimSpace(string(in.Action))))
	if err := validate.Struct(in); err != nil {
		return nil, validationError(err)
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

	ev := lifecycle.EvReject
	gated := false
	if in.Action == model.DecisionApprove {
		gated = e.ParentGatePolicy().Requires(in.RequiresParentGate, cur.DurationDays())
		ev = lifecycle.EvApprove
		if gated {
			ev = lifecycle.EvApproveGated
		}
	}
	span.SetAttributes(attribute.Bool(telemetry.LeaveGatedKey, gated))

	if _, err := lifecycle.Check(cur, ev); err != nil {
		return nil, err
	}

	var (
		ch        otp.Challenge
		recipient string
	)
	if gated {
		recipient, err = e.parentRecipient(cur.StudentID)
		if err != nil {
			return nil, err
		}
		ch, err = e.issue(ctx, id)
		if err != nil {
			return nil, err
		}
	}

	rec, tr, err := e.commit(ctx, id, ev, lifecycle.Effects{Reviewer: reviewerName(actor), Comments: in.Comments, Now: e.now()})
	if err != nil {
		if gated {
			e.revoke(ctx, id)
		}
		return nil, err
	}
	e.logTransition(ctx, rec, tr, actor)
	e.audit.Transition(ctx, audit.EventLeaveDecided, actor, id, "decided leave request", audit.ResultSuccess, map[string]string{
		"action":      string(in.Action),
		"parent_gate": strconv.FormatBool(gated),
		"new_state":   string(rec.Status),
	})
	if gated {
		e.deliver(ctx, ch, recipient, actor)
	}
	return rec, nil
}

// parentRecipient returns the address the challenge goes to. Without a
// directory the notifier receives an empty recipient.
func (e *Engine) parentRecipient(studentID string) (string, error) {
	if e.parents == nil {
		return "", nil
	}
	parent, ok := e.parents.ParentOf(studentID)
	if !ok {
		return "", lifecycle.Invalid("requiresParentGate", "student has no linked parent")
	}
	return parent.Email, nil
}

func (e *Engine) issue(ctx context.Context, id string) (otp.Challenge, error) {
	ch, err := e.otp.Issue(ctx, id)
	metrics.RecordOTPIssued(err == nil)
	if err != nil {
		return otp.Challenge{}, fmt.Errorf("%w: %v", ErrChallengeUnavailable, err)
	}
	return ch, nil
}

// revoke drops a challenge whose transition never committed. The request is
// still pending, so a leftover code would be unusable but confusing.
func (e *Engine) revoke(ctx context.Context, id string) {
	if err := e.otp.Invalidate(context.WithoutCancel(ctx), id); err != nil {
		e.logger.Warn().Err(err).
			Str(xglog.FieldLeaveID, id).
			Msg("otp invalidation failed")
	}
}

// deliver hands the challenge to the notifier. Delivery failures are logged;
// the parent can ask for a resend.
func (e *Engine) deliver(ctx context.Context, ch otp.Challenge, recipient string, actor auth.Principal) {
	e.audit.Transition(ctx, audit.EventOTPIssued, actor, ch.RequestID, "issued otp challenge", audit.ResultSuccess, map[string]string{
		"expires_at": ch.ExpiresAt.UTC().Format(time.RFC3339),
	})
	if err := e.notifier.Notify(ctx, ch, recipient); err != nil {
		e.logger.Warn().Err(err).
			Str(xglog.FieldLeaveID, ch.RequestID).
			Msg("otp notification failed")
	}
}
