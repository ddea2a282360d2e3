// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package lifecycle

import (
	"strings"
	"time"

	"github.com/ManuGH/leavegate/internal/domain/leave/model"
)

// Effects carries the data a transition writes onto the record.
type Effects struct {
	Reviewer string
	Comments string
	Now      time.Time
}

// Check resolves the transition for rec.Status+ev without mutating rec.
func Check(rec *model.LeaveRequest, ev EventKind) (Transition, error) {
	decision, ok := DecisionFor(rec.Status, ev)
	if !ok {
		return Transition{}, &TransitionError{From: rec.Status, Event: ev, Reason: "undefined"}
	}
	if !decision.Allowed {
		return Transition{}, &TransitionError{From: rec.Status, Event: ev, Reason: decision.Reason}
	}
	tr, ok := TransitionFor(rec.Status, ev)
	if !ok {
		return Transition{}, &TransitionError{From: rec.Status, Event: ev, Reason: "undefined"}
	}
	return tr, nil
}

// Dispatch resolves the next transition and applies it. It is the only entry
// point that mutates a request's status.
func Dispatch(rec *model.LeaveRequest, ev EventKind, fx Effects) (Transition, error) {
	tr, err := Check(rec, ev)
	if err != nil {
		return Transition{}, err
	}
	ApplyTransition(rec, tr, fx)
	return tr, nil
}

// ApplyTransition mutates the leave request according to the transition.
func ApplyTransition(rec *model.LeaveRequest, tr Transition, fx Effects) {
	rec.Status = tr.To
	today := model.DateOf(fx.Now)

	switch tr.Event {
	case EvApprove:
		rec.ReviewedBy = fx.Reviewer
		rec.ReviewedDate = today
		rec.Comments = commentOrDefault(fx.Comments, model.DefaultApprovedComment)
	case EvApproveGated:
		rec.ReviewedBy = fx.Reviewer
		rec.ReviewedDate = ""
		rec.Comments = commentOrDefault(fx.Comments, model.DefaultApprovedComment)
		rec.ParentGate = true
	case EvReject:
		rec.ReviewedBy = fx.Reviewer
		rec.ReviewedDate = today
		rec.Comments = commentOrDefault(fx.Comments, model.DefaultRejectedComment)
	case EvOTPVerified:
		rec.ReviewedDate = today
	}
	rec.UpdatedAtUnix = fx.Now.Unix()
}

func commentOrDefault(c, def string) string {
	if strings.TrimSpace(c) == "" {
		return def
	}
	return c
}
