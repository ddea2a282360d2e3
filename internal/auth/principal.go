// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package auth defines the acting principal carried through every request.
package auth

import "context"

// Role is the coarse permission class of a principal.
type Role string

const (
	RoleStudent Role = "student"
	RoleParent  Role = "parent"
	RoleWarden  Role = "warden"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleParent, RoleWarden, RoleAdmin:
		return true
	}
	return false
}

// Principal represents the authenticated identity of a caller.
type Principal struct {
	// ID is the stable, unique identifier for the user.
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`

	// Residence, set for students.
	HostelName string `json:"hostelName,omitempty"`
	RoomNumber string `json:"roomNumber,omitempty"`

	// LinkedStudentID is the student a parent account answers for.
	LinkedStudentID string `json:"studentId,omitempty"`
}

// IsZero reports whether p carries no identity.
func (p Principal) IsZero() bool { return p.ID == "" }

type principalKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && !p.IsZero()
}
