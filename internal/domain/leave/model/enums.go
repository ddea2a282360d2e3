// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

// Status is the lifecycle state of a leave request.
type Status string

const (
	StatusPending    Status = "pending"
	StatusPendingOTP Status = "pending_otp"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{StatusPending, StatusPendingOTP, StatusApproved, StatusRejected}

// IsTerminal returns true if the state is a final state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPendingOTP, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// ParseStatus maps a wire value onto a Status.
func ParseStatus(v string) (Status, bool) {
	s := Status(v)
	return s, s.Valid()
}

// Decision is the reviewer's verdict on a pending request.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Default comments recorded when a reviewer leaves the field blank.
const (
	DefaultApprovedComment = "Approved"
	DefaultRejectedComment = "Rejected"
)
