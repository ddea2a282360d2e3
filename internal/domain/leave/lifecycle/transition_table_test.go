// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/ManuGH/leavegate/internal/domain/leave/model"
	"github.com/stretchr/testify/require"
)

func TestTransitionTable_Coverage(t *testing.T) {
	allowed := map[model.Status]map[EventKind]struct{}{}
	for _, tr := range transitionsTable {
		if _, ok := allowed[tr.From]; !ok {
			allowed[tr.From] = map[EventKind]struct{}{}
		}
		if _, exists := allowed[tr.From][tr.Event]; exists {
			t.Fatalf("duplicate transition: %s + %v", tr.From, tr.Event)
		}
		allowed[tr.From][tr.Event] = struct{}{}
	}

	for _, state := range model.AllStatuses {
		for _, ev := range AllEvents {
			decision, ok := DecisionFor(state, ev)
			require.True(t, ok, "missing decision for %s + %v", state, ev)
			if _, ok := allowed[state][ev]; ok {
				require.True(t, decision.Allowed, "allowed transition must be marked allowed for %s + %v", state, ev)
				continue
			}
			require.False(t, decision.Allowed, "forbidden transition must be marked forbidden for %s + %v", state, ev)
			require.NotEmpty(t, decision.Reason, "forbidden transition must have reason for %s + %v", state, ev)
		}
	}
}

func TestTerminalStatesAreAbsorbing(t *testing.T) {
	for _, state := range model.AllStatuses {
		if !state.IsTerminal() {
			continue
		}
		for _, ev := range AllEvents {
			d, ok := DecisionFor(state, ev)
			require.True(t, ok)
			require.False(t, d.Allowed)
			require.Equal(t, ForbiddenTerminalAbsorbing, d.Reason)
		}
	}
}

func TestTransitionsAreMonotonic(t *testing.T) {
	rank := map[model.Status]int{
		model.StatusPending:    0,
		model.StatusPendingOTP: 1,
		model.StatusApproved:   2,
		model.StatusRejected:   2,
	}
	for _, tr := range transitionsTable {
		require.Greater(t, rank[tr.To], rank[tr.From], "transition %s -> %s moves backward", tr.From, tr.To)
	}
}

func TestDispatch_Effects(t *testing.T) {
	now := time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)

	t.Run("approve sets review fields", func(t *testing.T) {
		rec := NewLeaveRequest("r1", now)
		tr, err := Dispatch(rec, EvApprove, Effects{Reviewer: "Dr. Sarah Wilson", Now: now})
		require.NoError(t, err)
		require.Equal(t, model.StatusApproved, tr.To)
		require.Equal(t, model.StatusApproved, rec.Status)
		require.Equal(t, "Dr. Sarah Wilson", rec.ReviewedBy)
		require.Equal(t, model.Date("2025-04-02"), rec.ReviewedDate)
		require.Equal(t, model.DefaultApprovedComment, rec.Comments)
	})

	t.Run("reject keeps explicit comment", func(t *testing.T) {
		rec := NewLeaveRequest("r2", now)
		_, err := Dispatch(rec, EvReject, Effects{Reviewer: "w", Comments: "exam week", Now: now})
		require.NoError(t, err)
		require.Equal(t, model.StatusRejected, rec.Status)
		require.Equal(t, "exam week", rec.Comments)
	})

	t.Run("whitespace comment falls back to default", func(t *testing.T) {
		rec := NewLeaveRequest("r3", now)
		_, err := Dispatch(rec, EvReject, Effects{Reviewer: "w", Comments: "   ", Now: now})
		require.NoError(t, err)
		require.Equal(t, model.DefaultRejectedComment, rec.Comments)
	})

	t.Run("gated approval defers review date", func(t *testing.T) {
		rec := NewLeaveRequest("r4", now)
		_, err := Dispatch(rec, EvApproveGated, Effects{Reviewer: "w", Now: now})
		require.NoError(t, err)
		require.Equal(t, model.StatusPendingOTP, rec.Status)
		require.Equal(t, "w", rec.ReviewedBy)
		require.True(t, rec.ReviewedDate.IsZero())
		require.True(t, rec.ParentGate)

		later := now.Add(26 * time.Hour)
		_, err = Dispatch(rec, EvOTPVerified, Effects{Now: later})
		require.NoError(t, err)
		require.Equal(t, model.StatusApproved, rec.Status)
		require.Equal(t, "w", rec.ReviewedBy)
		require.Equal(t, model.Date("2025-04-03"), rec.ReviewedDate)
	})
}

func TestDispatch_RejectsForbiddenWithoutMutation(t *testing.T) {
	now := time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)
	rec := NewLeaveRequest("r1", now)
	_, err := Dispatch(rec, EvReject, Effects{Reviewer: "w", Now: now})
	require.NoError(t, err)
	snapshot := *rec

	_, err = Dispatch(rec, EvApprove, Effects{Reviewer: "other", Now: now.Add(time.Hour)})
	require.ErrorIs(t, err, ErrInvalidTransition)

	var te *TransitionError
	require.True(t, errors.As(err, &te))
	require.Equal(t, ForbiddenTerminalAbsorbing, te.Reason)
	require.Equal(t, snapshot, *rec)
}

func TestValidationError_Matching(t *testing.T) {
	cause := errors.New("root")
	err := error(&ValidationError{Field: "code", Reason: "must be 6 digits", Err: cause})
	require.ErrorIs(t, err, ErrValidation)
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "code")
	require.ErrorIs(t, Invalid("endDate", "x"), ErrValidation)
}
