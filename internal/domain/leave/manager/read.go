// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"fmt"
	"time"

	"github.com/ManuGH/leavegate/internal/auth"
	"github.com/ManuGH/leavegate/internal/domain/leave/model"
	"github.com/ManuGH/leavegate/internal/domain/leave/query"
)

// Listing is a filtered, ordered view plus the counts over it.
type Listing struct {
	Items []*model.LeaveRequest `json:"items"`
	Stats query.Stats           `json:"stats"`
}

// List returns the requests viewer may see that match f, newest applied
// first. It never mutates.
func (e *Engine) List(ctx context.Context, viewer auth.Principal, f query.Filter) (out Listing, err error) {
	const op = "list"
	start := time.Now()
	ctx, span := e.startSpan(ctx, op, viewer, "")
	defer func() { e.finish(ctx, span, op, viewer, "leaves", start, err) }()

	out.Items = []*model.LeaveRequest{}
	if err := f.Validate(); err != nil {
		return Listing{}, err
	}
	vis := query.VisibilityFor(viewer)
	rf, ok := vis.StoreFilter(f)
	if !ok {
		return out, nil
	}
	recs, err := e.store.QueryRequests(ctx, rf)
	if err != nil {
		return Listing{}, fmt.Errorf("query leaves: %w", err)
	}
	out.Items = query.Apply(vis, recs, f)
	out.Stats = query.Summarize(out.Items)
	return out, nil
}

// Get returns one request. Requests outside the viewer's visibility are
// reported as not found.
func (e *Engine) Get(ctx context.Context, id string, viewer auth.Principal) (rec *model.LeaveRequest, err error) {
	const op = "get"
	start := time.Now()
	ctx, span := e.startSpan(ctx, op, viewer, id)
	defer func() { e.finish(ctx, span, op, viewer, id, start, err) }()

	rec, err = e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !query.VisibilityFor(viewer).Allows(rec) {
		return nil, ErrNotFound
	}
	return rec, nil
}
