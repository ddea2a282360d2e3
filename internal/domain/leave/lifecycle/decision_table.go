// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package lifecycle

import "github.com/ManuGH/leavegate/internal/domain/leave/model"

const (
	ForbiddenTerminalAbsorbing  = "terminal_absorbing"
	ForbiddenRequiresPending    = "requires_pending"
	ForbiddenRequiresPendingOTP = "requires_pending_otp"
)

func allowed() Decision        { return Decision{Allowed: true} }
func forbid(r string) Decision { return Decision{Allowed: false, Reason: r} }

// decisionTable defines an explicit decision for every State×Event combination.
var decisionTable = map[model.Status]map[EventKind]Decision{
	model.StatusPending: {
		EvApprove:      allowed(),
		EvApproveGated: allowed(),
		EvReject:       allowed(),
		EvOTPVerified:  forbid(ForbiddenRequiresPendingOTP),
	},
	model.StatusPendingOTP: {
		EvApprove:      forbid(ForbiddenRequiresPending),
		EvApproveGated: forbid(ForbiddenRequiresPending),
		EvReject:       forbid(ForbiddenRequiresPending),
		EvOTPVerified:  allowed(),
	},
	model.StatusApproved: {
		EvApprove:      forbid(ForbiddenTerminalAbsorbing),
		EvApproveGated: forbid(ForbiddenTerminalAbsorbing),
		EvReject:       forbid(ForbiddenTerminalAbsorbing),
		EvOTPVerified:  forbid(ForbiddenTerminalAbsorbing),
	},
	model.StatusRejected: {
		EvApprove:      forbid(ForbiddenTerminalAbsorbing),
		EvApproveGated: forbid(ForbiddenTerminalAbsorbing),
		EvReject:       forbid(ForbiddenTerminalAbsorbing),
		EvOTPVerified:  forbid(ForbiddenTerminalAbsorbing),
	},
}

// DecisionFor returns the explicit decision for state×event.
func DecisionFor(from model.Status, ev EventKind) (Decision, bool) {
	m, ok := decisionTable[from]
	if !ok {
		return Decision{}, false
	}
	d, ok := m[ev]
	return d, ok
}
