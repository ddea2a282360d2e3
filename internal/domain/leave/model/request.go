// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

// LeaveRequest is the persisted record of one student's leave application.
//
// ReviewedBy, ReviewedDate and Comments are empty while the request is
// pending. A parent-gated approval records ReviewedBy and Comments but keeps
// ReviewedDate empty until the OTP is verified.
type LeaveRequest struct {
	ID             string `json:"id"`
	StudentID      string `json:"studentId"`
	StudentName    string `json:"studentName"`
	HostelName     string `json:"hostelName"`
	RoomNumber     string `json:"roomNumber"`
	Reason         string `json:"reason"`
	StartDate      Date   `json:"startDate"`
	EndDate        Date   `json:"endDate"`
	ContactDetails string `json:"contactDetails"`
	Status         Status `json:"status"`
	AppliedDate    Date   `json:"appliedDate"`
	ReviewedBy     string `json:"reviewedBy,omitempty"`
	ReviewedDate   Date   `json:"reviewedDate,omitempty"`
	Comments       string `json:"comments,omitempty"`

	// ParentGate is set once a reviewer routed the approval through the parent.
	ParentGate bool `json:"parentGate,omitempty"`

	// Seq is the store-assigned insertion sequence, used to keep ordering stable.
	Seq           int64 `json:"seq"`
	CreatedAtUnix int64 `json:"createdAtUnix"`
	UpdatedAtUnix int64 `json:"updatedAtUnix"`
}

// Clone returns a copy safe to hand out across goroutines.
func (r *LeaveRequest) Clone() *LeaveRequest {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// DurationDays is the inclusive length of the leave in days.
func (r *LeaveRequest) DurationDays() int {
	return DurationDays(r.StartDate, r.EndDate)
}
