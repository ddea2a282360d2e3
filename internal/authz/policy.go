// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package authz

// Policy registry for OpenAPI operation IDs.
// This is the single source of truth for required capabilities.
var operationCapabilities = map[string]Capability{
	"login":          CapNone,
	"logout":         CapAuthenticated,
	"getMe":          CapAuthenticated,
	"listLeaves":     CapView,
	"submitLeave":    CapSubmit,
	"getLeave":       CapView,
	"decideLeave":    CapDecide,
	"verifyLeaveOtp": CapVerifyOTP,
	"resendLeaveOtp": CapResendOTP,
	"exportLeaves":   CapView,
	"getHealthz":     CapNone,
	"getReadyz":      CapNone,
}

// Operations reachable without a session.
var unauthenticatedOperations = map[string]struct{}{
	"login":      {},
	"getHealthz": {},
	"getReadyz":  {},
}

// RequiredCapability returns the capability an operation requires.
func RequiredCapability(operationID string) (Capability, bool) {
	c, ok := operationCapabilities[operationID]
	return c, ok
}

// IsUnauthenticatedAllowed reports whether an operation may run without a session.
func IsUnauthenticatedAllowed(operationID string) bool {
	_, ok := unauthenticatedOperations[operationID]
	return ok
}
