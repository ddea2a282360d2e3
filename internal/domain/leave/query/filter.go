// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package query implements the read side over leave requests: visibility,
// filtering, ordering and aggregation. Nothing here mutates a record.
package query

import (
	"sort"
	"strings"

	"github.com/ManuGH/leavegate/internal/auth"
	"github.com/ManuGH/leavegate/internal/authz"
	"github.com/ManuGH/leavegate/internal/domain/leave/lifecycle"
	"github.com/ManuGH/leavegate/internal/domain/leave/model"
	"github.com/ManuGH/leavegate/internal/domain/leave/store"
	"golang.org/x/text/cases"
)

// StatusAll disables status filtering.
const StatusAll = "all"

// Filter is the user-controlled part of a listing.
type Filter struct {
	Status string     `json:"status,omitempty"` // "all", "" or a concrete status
	Search string     `json:"search,omitempty"` // case-insensitive substring
	From   model.Date `json:"from,omitempty"`   // inclusive lower bound on appliedDate
	To     model.Date `json:"to,omitempty"`     // inclusive upper bound on appliedDate
}

// Validate rejects unknown statuses and malformed dates.
func (f Filter) Validate() error {
	if f.Status != "" && f.Status != StatusAll {
		if _, ok := model.ParseStatus(f.Status); !ok {
			return lifecycle.Invalid("status", "unknown status "+f.Status)
		}
	}
	if !f.From.IsZero() {
		if _, err := model.ParseDate(string(f.From)); err != nil {
			return lifecycle.Invalid("from", "must be YYYY-MM-DD")
		}
	}
	if !f.To.IsZero() {
		if _, err := model.ParseDate(string(f.To)); err != nil {
			return lifecycle.Invalid("to", "must be YYYY-MM-DD")
		}
	}
	return nil
}

// Visibility is the set of requests a viewer may read.
type Visibility struct {
	Scope     authz.ViewScope
	StudentID string // owner for ScopeOwn/ScopeLinked
}

// VisibilityFor derives the viewer's visibility from role and identity.
func VisibilityFor(p auth.Principal) Visibility {
	switch authz.CapabilitiesFor(p.Role).View {
	case authz.ScopeAll:
		return Visibility{Scope: authz.ScopeAll}
	case authz.ScopeOwn:
		return Visibility{Scope: authz.ScopeOwn, StudentID: p.ID}
	case authz.ScopeLinked:
		if p.LinkedStudentID == "" {
			return Visibility{Scope: authz.ScopeNone}
		}
		return Visibility{Scope: authz.ScopeLinked, StudentID: p.LinkedStudentID}
	default:
		return Visibility{Scope: authz.ScopeNone}
	}
}

// Allows reports whether rec is visible.
func (v Visibility) Allows(rec *model.LeaveRequest) bool {
	switch v.Scope {
	case authz.ScopeAll:
		return true
	case authz.ScopeOwn, authz.ScopeLinked:
		return v.StudentID != "" && rec.StudentID == v.StudentID
	default:
		return false
	}
}

// StoreFilter pushes visibility and status down to the store. ok is false
// when nothing can be visible and the store need not be asked.
func (v Visibility) StoreFilter(f Filter) (store.RequestFilter, bool) {
	var rf store.RequestFilter
	switch v.Scope {
	case authz.ScopeAll:
	case authz.ScopeOwn, authz.ScopeLinked:
		if v.StudentID == "" {
			return rf, false
		}
		rf.StudentID = v.StudentID
	default:
		return rf, false
	}
	if st, ok := model.ParseStatus(f.Status); ok {
		rf.Statuses = []model.Status{st}
	}
	return rf, true
}

// Apply returns the visible records matching f, newest appliedDate first.
// Records with equal appliedDate keep insertion order.
func Apply(v Visibility, recs []*model.LeaveRequest, f Filter) []*model.LeaveRequest {
	needle := ""
	if s := strings.TrimSpace(f.Search); s != "" {
		needle = cases.Fold().String(s)
	}
	fold := cases.Fold()

	out := make([]*model.LeaveRequest, 0, len(recs))
	for _, rec := range recs {
		if !v.Allows(rec) {
			continue
		}
		if f.Status != "" && f.Status != StatusAll && string(rec.Status) != f.Status {
			continue
		}
		if !f.From.IsZero() && rec.AppliedDate < f.From {
			continue
		}
		if !f.To.IsZero() && rec.AppliedDate > f.To {
			continue
		}
		if needle != "" && !matchesSearch(fold, rec, needle) {
			continue
		}
		out = append(out, rec)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AppliedDate != out[j].AppliedDate {
			return out[i].AppliedDate > out[j].AppliedDate
		}
		return out[i].Seq < out[j].Seq
	})
	return out
}

func matchesSearch(fold cases.Caser, rec *model.LeaveRequest, needle string) bool {
	for _, field := range []string{rec.StudentName, rec.Reason, rec.HostelName} {
		if strings.Contains(fold.String(field), needle) {
			return true
		}
	}
	return false
}
