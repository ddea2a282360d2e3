// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package lifecycle

// EventKind is a domain event in the leave request lifecycle.
type EventKind int

const (
	EvUnknown EventKind = iota
	EvApprove
	EvApproveGated // approval routed through the linked parent
	EvReject
	EvOTPVerified
)

// AllEvents lists every event the tables must cover.
var AllEvents = []EventKind{EvApprove, EvApproveGated, EvReject, EvOTPVerified}

func (e EventKind) String() string {
	switch e {
	case EvApprove:
		return "approve"
	case EvApproveGated:
		return "approve_gated"
	case EvReject:
		return "reject"
	case EvOTPVerified:
		return "otp_verified"
	default:
		return "unknown"
	}
}
