// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package query

import "github.com/ManuGH/leavegate/internal/domain/leave/model"

// Stats counts requests per status. It is always derived, never stored.
type Stats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	PendingOTP int `json:"pendingOtp"`
	Approved   int `json:"approved"`
	Rejected   int `json:"rejected"`
}

// Summarize counts recs by status.
func Summarize(recs []*model.LeaveRequest) Stats {
	var s Stats
	for _, r := range recs {
		s.Total++
		switch r.Status {
		case model.StatusPending:
			s.Pending++
		case model.StatusPendingOTP:
			s.PendingOTP++
		case model.StatusApproved:
			s.Approved++
		case model.StatusRejected:
			s.Rejected++
		}
	}
	return s
}
