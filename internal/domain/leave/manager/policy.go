// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"fmt"
)

// GateMode selects how an approval decides on the parent gate.
type GateMode string

const (
	GateReviewer GateMode = "reviewer" // the reviewer's requiresParentGate flag decides
	GateAlways   GateMode = "always"
	GateNever    GateMode = "never"
)

// GatePolicy is the parent-gate policy applied to approvals.
type GatePolicy struct {
	Mode GateMode
	// MinDays forces the gate for leaves spanning at least this many days.
	// Zero disables it. Ignored in GateNever mode.
	MinDays int
}

// DefaultGatePolicy leaves the choice to the reviewer.
func DefaultGatePolicy() GatePolicy {
	return GatePolicy{Mode: GateReviewer}
}

// Validate rejects unknown modes and negative thresholds.
func (p GatePolicy) Validate() error {
	switch p.Mode {
	case GateReviewer, GateAlways, GateNever:
	default:
		return fmt.Errorf("unknown parent gate mode %q", p.Mode)
	}
	if p.MinDays < 0 {
		return fmt.Errorf("parent gate minDays must be >= 0, got %d", p.MinDays)
	}
	return nil
}

// Requires resolves whether an approval of a leave of days length is gated.
func (p GatePolicy) Requires(requested bool, days int) bool {
	switch p.Mode {
	case GateAlways:
		return true
	case GateNever:
		return false
	}
	if p.MinDays > 0 && days >= p.MinDays {
		return true
	}
	return requested
}
