// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package lifecycle

import (
	"time"

	"github.com/ManuGH/leavegate/internal/domain/leave/model"
)

// NewLeaveRequest initializes a leave request with canonical lifecycle defaults.
// Seq is assigned by the store on insert.
func NewLeaveRequest(id string, now time.Time) *model.LeaveRequest {
	return &model.LeaveRequest{
		ID:            id,
		Status:        model.StatusPending,
		AppliedDate:   model.DateOf(now),
		CreatedAtUnix: now.Unix(),
		UpdatedAtUnix: now.Unix(),
	}
}
