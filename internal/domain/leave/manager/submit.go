// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ManuGH/leavegate/internal/audit"
	"github.com/ManuGH/leavegate/internal/auth"
	"github.com/ManuGH/leavegate/internal/authz"
	"github.com/ManuGH/leavegate/internal/domain/leave/lifecycle"
	"github.com/ManuGH/leavegate/internal/domain/leave/model"
	xglog "github.com/ManuGH/leavegate/internal/log"
	"github.com/ManuGH/leavegate/internal/metrics"
)

// SubmitInput is a student's leave application.
type SubmitInput struct {
	Reason         string `json:"reason" validate:"required,max=1000"`
	StartDate      string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate        string `json:"endDate" validate:"required,datetime=2006-01-02"`
	ContactDetails string `json:"contactDetails" validate:"required,max=200"`
}

func (in SubmitInput) normalized() SubmitInput {
	in.Reason = strings.TrimSpace(in.Reason)
	in.StartDate = strings.TrimSpace(in.StartDate)
	in.EndDate = strings.TrimSpace(in.EndDate)
	in.ContactDetails = strings.TrimSpace(in.ContactDetails)
	return in
}

// Submit creates a pending leave request on behalf of actor. Nothing is
// stored unless the input is valid and startDate < endDate.
func (e *Engine) Submit(ctx context.Context, actor auth.Principal, in SubmitInput) (rec *model.LeaveRequest, err error) {
	const op = "submit"
	start := time.Now()
	ctx, span := e.startSpan(ctx, op, actor, "")
	defer func() {
		metrics.RecordSubmission(err == nil)
		e.finish(ctx, span, op, actor, "leaves", start, err)
	}()

	if !authz.CapabilitiesFor(actor.Role).CanSubmit || actor.IsZero() {
		return nil, ErrForbidden
	}

	in = in.normalized()
	if err := validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	startDate, err := model.ParseDate(in.StartDate)
	if err != nil {
		return nil, &lifecycle.ValidationError{Field: "startDate", Reason: "must be YYYY-MM-DD", Err: err}
	}
	endDate, err := model.ParseDate(in.EndDate)
	if err != nil {
		return nil, &lifecycle.ValidationError{Field: "endDate", Reason: "must be YYYY-MM-DD", Err: err}
	}
	if !startDate.Before(endDate) {
		return nil, lifecycle.Invalid("endDate", "must be after startDate")
	}

	now := e.now()
	rec = lifecycle.NewLeaveRequest(e.newID(), now)
	rec.StudentID = actor.ID
	rec.StudentName = actor.Name
	rec.HostelName = actor.HostelName
	rec.RoomNumber = actor.RoomNumber
	rec.Reason = in.Reason
	rec.StartDate = startDate
	rec.EndDate = endDate
	rec.ContactDetails = in.ContactDetails

	if err := e.store.PutRequest(ctx, rec); err != nil {
		return nil, fmt.Errorf("store leave: %w", err)
	}
	span.SetAttributes(telemetryLeave(rec)...)

	e.audit.Transition(ctx, audit.EventLeaveSubmitted, actor, rec.ID, "submitted leave request", audit.ResultSuccess, map[string]string{
		"start_date": string(rec.StartDate),
		"end_date":   string(rec.EndDate),
	})
	logger := xglog.WithContext(ctx, e.logger)
	logger.Info().
		Str(xglog.FieldEvent, "leave.submitted").
		Str(xglog.FieldLeaveID, rec.ID).
		Str(xglog.FieldActorID, actor.ID).
		Int("duration_days", rec.DurationDays()).
		Msg("leave submitted")
	return rec.Clone(), nil
}
