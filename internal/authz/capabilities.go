// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package authz resolves what a role may do. It is the single place that maps
// roles onto permissions; handlers and the lifecycle engine only ask it.
package authz

import "github.com/ManuGH/leavegate/internal/auth"

// ViewScope bounds which leave requests a principal may read.
type ViewScope int

const (
	ScopeNone   ViewScope = iota
	ScopeOwn              // requests the principal submitted
	ScopeLinked           // requests of the student a parent is linked to
	ScopeAll
)

func (s ViewScope) String() string {
	switch s {
	case ScopeOwn:
		return "own"
	case ScopeLinked:
		return "linked"
	case ScopeAll:
		return "all"
	default:
		return "none"
	}
}

// Capabilities is the permission set derived from a role.
type Capabilities struct {
	CanSubmit    bool      `json:"canSubmit"`
	CanDecide    bool      `json:"canDecide"`
	CanVerifyOTP bool      `json:"canVerifyOtp"`
	CanViewAll   bool      `json:"canViewAll"`
	View         ViewScope `json:"-"`
}

// CapabilitiesFor returns the capability set for role. Unknown roles get nothing.
func CapabilitiesFor(role auth.Role) Capabilities {
	switch role {
	case auth.RoleStudent:
		return Capabilities{CanSubmit: true, View: ScopeOwn}
	case auth.RoleParent:
		return Capabilities{CanVerifyOTP: true, View: ScopeLinked}
	case auth.RoleWarden, auth.RoleAdmin:
		return Capabilities{CanDecide: true, CanViewAll: true, View: ScopeAll}
	default:
		return Capabilities{}
	}
}

// Capability names a single permission checked at the transport boundary.
type Capability string

const (
	CapNone          Capability = ""
	CapAuthenticated Capability = "authenticated"
	CapView          Capability = "view"
	CapSubmit        Capability = "submit"
	CapDecide        Capability = "decide"
	CapVerifyOTP     Capability = "verify_otp"
	CapResendOTP     Capability = "resend_otp"
)

// Has reports whether the set grants c.
func (c Capabilities) Has(capability Capability) bool {
	switch capability {
	case CapNone, CapAuthenticated:
		return true
	case CapView:
		return c.View != ScopeNone
	case CapSubmit:
		return c.CanSubmit
	case CapDecide:
		return c.CanDecide
	case CapVerifyOTP:
		return c.CanVerifyOTP
	case CapResendOTP:
		return c.CanDecide || c.CanVerifyOTP
	default:
		return false
	}
}
