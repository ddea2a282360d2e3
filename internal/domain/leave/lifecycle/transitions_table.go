// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package lifecycle

import "github.com/ManuGH/leavegate/internal/domain/leave/model"

// Transition is a single allowed edge in the lifecycle state machine.
type Transition struct {
	From  model.Status
	To    model.Status
	Event EventKind
}

// Decision records whether a transition is allowed and why it is forbidden.
type Decision struct {
	Allowed bool
	Reason  string
}

var transitionsTable = []Transition{
	// Reviewer decisions
	{From: model.StatusPending, To: model.StatusApproved, Event: EvApprove},
	{From: model.StatusPending, To: model.StatusPendingOTP, Event: EvApproveGated},
	{From: model.StatusPending, To: model.StatusRejected, Event: EvReject},

	// Parent confirmation
	{From: model.StatusPendingOTP, To: model.StatusApproved, Event: EvOTPVerified},
}

// TransitionFor returns the allowed transition for a given state+event.
func TransitionFor(from model.Status, ev EventKind) (Transition, bool) {
	for _, tr := range transitionsTable {
		if tr.From == from && tr.Event == ev {
			return tr, true
		}
	}
	return Transition{}, false
}
