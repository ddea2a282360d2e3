// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package store persists leave requests. Records are never deleted; the only
// mutation path after insert is UpdateRequest.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuGH/leavegate/internal/domain/leave/model"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateID    = errors.New("duplicate leave request id")
	ErrImmutableField = errors.New("immutable field modified")
)

// RequestFilter narrows ListRequests at the storage layer.
// Zero values match everything.
type RequestFilter struct {
	StudentID string
	Statuses  []model.Status
}

// StateStore is the system-of-record for leave requests.
type StateStore interface {
	// PutRequest inserts a new request and assigns its Seq.
	// It fails with ErrDuplicateID if the id was ever stored before.
	PutRequest(ctx context.Context, rec *model.LeaveRequest) error
	// GetRequest returns the request. If not found, it returns (nil, nil).
	// Callers must check for nil record before using it.
	GetRequest(ctx context.Context, id string) (*model.LeaveRequest, error)
	// UpdateRequest applies fn to the current record atomically and persists the
	// result. fn returning an error aborts the update with nothing written.
	UpdateRequest(ctx context.Context, id string, fn func(*model.LeaveRequest) error) (*model.LeaveRequest, error)
	// ListRequests returns all requests in insertion order.
	ListRequests(ctx context.Context) ([]*model.LeaveRequest, error)
	// QueryRequests returns requests matching filter in insertion order.
	QueryRequests(ctx context.Context, filter RequestFilter) ([]*model.LeaveRequest, error)
	Close() error
}

// Pinger is implemented by backends that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

func (f RequestFilter) matches(rec *model.LeaveRequest) bool {
	if f.StudentID != "" && rec.StudentID != f.StudentID {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if rec.Status == s {
			return true
		}
	}
	return false
}

// checkImmutable rejects updates that rewrite identity or creation facts.
func checkImmutable(before, after *model.LeaveRequest) error {
	switch {
	case before.ID != after.ID:
		return fmt.Errorf("%w: id", ErrImmutableField)
	case before.Seq != after.Seq:
		return fmt.Errorf("%w: seq", ErrImmutableField)
	case before.AppliedDate != after.AppliedDate:
		return fmt.Errorf("%w: appliedDate", ErrImmutableField)
	case before.StudentID != after.StudentID:
		return fmt.Errorf("%w: studentId", ErrImmutableField)
	case before.CreatedAtUnix != after.CreatedAtUnix:
		return fmt.Errorf("%w: createdAt", ErrImmutableField)
	}
	return nil
}
