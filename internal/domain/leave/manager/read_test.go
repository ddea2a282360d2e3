// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"testing"
	"time"

	"github.com/ManuGH/leavegate/internal/auth"
	"github.com/ManuGH/leavegate/internal/domain/leave/model"
	"github.com/ManuGH/leavegate/internal/domain/leave/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filterStatus(s string) query.Filter { return query.Filter{Status: s} }

func ids(recs []*model.LeaveRequest) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}

// seed builds: leave-1 (student, 01-28, approved), leave-2 (student, 01-30),
// leave-3 (other, 01-30), leave-4 (student, 01-30).
func seed(t *testing.T, h *harness) {
	t.Helper()
	first := h.submit(t, student)
	_, err := h.engine.Decide(context.Background(), first.ID, warden, DecisionInput{Action: model.DecisionApprove})
	require.NoError(t, err)

	h.clock.Advance(48 * time.Hour)
	h.submit(t, student)
	in := validInput()
	in.Reason = "Sister's wedding"
	_, err = h.engine.Submit(context.Background(), other, in)
	require.NoError(t, err)
	h.submit(t, student)
}

func TestListOrdersByAppliedDateThenInsertion(t *testing.T) {
	h := newHarness(t)
	seed(t, h)

	all, err := h.engine.List(context.Background(), warden, filterStatus(query.StatusAll))
	require.NoError(t, err)
	assert.Equal(t, []string{"leave-2", "leave-3", "leave-4", "leave-1"}, ids(all.Items))

	pending, err := h.engine.List(context.Background(), admin, filterStatus(string(model.StatusPending)))
	require.NoError(t, err)
	assert.Equal(t, []string{"leave-2", "leave-3", "leave-4"}, ids(pending.Items))
	for _, r := range pending.Items {
		assert.Equal(t, model.StatusPending, r.Status)
	}

	// Re-applying the same filter never reorders.
	for i := 0; i < 5; i++ {
		again, err := h.engine.List(context.Background(), warden, filterStatus(query.StatusAll))
		require.NoError(t, err)
		assert.Equal(t, ids(all.Items), ids(again.Items))
	}
}

func TestListVisibility(t *testing.T) {
	h := newHarness(t)
	seed(t, h)

	tests := []struct {
		name   string
		viewer auth.Principal
		filter query.Filter
		want   []string
	}{
		{"student sees own", student, query.Filter{}, []string{"leave-2", "leave-4", "leave-1"}},
		{"student search cannot widen", student, query.Filter{Search: "wedding"}, []string{}},
		{"other student", other, query.Filter{}, []string{"leave-3"}},
		{"parent sees linked", parent, query.Filter{}, []string{"leave-2", "leave-4", "leave-1"}},
		{"unlinked parent sees nothing", auth.Principal{ID: "9", Role: auth.RoleParent}, query.Filter{}, []string{}},
		{"unknown role sees nothing", auth.Principal{ID: "9", Role: "janitor"}, query.Filter{}, []string{}},
		{"warden search folds case", warden, query.Filter{Search: "WEDDING"}, []string{"leave-3"}},
		{"date range inclusive", warden, query.Filter{From: "2024-01-28", To: "2024-01-28"}, []string{"leave-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := h.engine.List(context.Background(), tt.viewer, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got.Items))
			for _, r := range got.Items {
				if tt.viewer.Role == auth.RoleStudent {
					assert.Equal(t, tt.viewer.ID, r.StudentID)
				}
			}
		})
	}
}

func TestListStatsFollowFilter(t *testing.T) {
	h := newHarness(t)
	seed(t, h)

	all, err := h.engine.List(context.Background(), warden, query.Filter{})
	require.NoError(t, err)
	assert.Equal(t, query.Stats{Total: 4, Pending: 3, Approved: 1}, all.Stats)

	own, err := h.engine.List(context.Background(), student, query.Filter{})
	require.NoError(t, err)
	assert.Equal(t, query.Stats{Total: 3, Pending: 2, Approved: 1}, own.Stats)
}

func TestListRejectsBadFilter(t *testing.T) {
	h := newHarness(t)
	_, err := h.engine.List(context.Background(), warden, query.Filter{Status: "archived"})
	require.ErrorIs(t, err, ErrValidation)
	_, err = h.engine.List(context.Background(), warden, query.Filter{From: "yesterday"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestGetHonorsVisibility(t *testing.T) {
	h := newHarness(t)
	seed(t, h)

	rec, err := h.engine.Get(context.Background(), "leave-3", warden)
	require.NoError(t, err)
	assert.Equal(t, "Priya Sharma", rec.StudentName)

	_, err = h.engine.Get(context.Background(), "leave-3", student)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = h.engine.Get(context.Background(), "leave-3", parent)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = h.engine.Get(context.Background(), "nope", admin)
	require.ErrorIs(t, err, ErrNotFound)

	own, err := h.engine.Get(context.Background(), "leave-2", parent)
	require.NoError(t, err)
	assert.Equal(t, "1", own.StudentID)
}
