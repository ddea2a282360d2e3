// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ManuGH/leavegate/internal/auth"
	"github.com/ManuGH/leavegate/internal/domain/leave/lifecycle"
	"github.com/ManuGH/leavegate/internal/domain/leave/model"
	"github.com/ManuGH/leavegate/internal/otp"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecideTerminalOutcomes(t *testing.T) {
	tests := []struct {
		name     string
		reviewer auth.Principal
		in       DecisionInput
		status   model.Status
		comments string
	}{
		{"approve default comment", warden, DecisionInput{Action: model.DecisionApprove}, model.StatusApproved, "Approved"},
		{"reject default comment", admin, DecisionInput{Action: model.DecisionReject, Comments: "  "}, model.StatusRejected, "Rejected"},
		{"approve with comment", admin, DecisionInput{Action: "Approve", Comments: "Enjoy"}, model.StatusApproved, "Enjoy"},
		{"reject ignores gate flag", warden, DecisionInput{Action: model.DecisionReject, RequiresParentGate: true, Comments: "Exams"}, model.StatusRejected, "Exams"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			rec := h.submit(t, student)
			h.clock.Advance(48 * time.Hour)

			out, err := h.engine.Decide(context.Background(), rec.ID, tt.reviewer, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.status, out.Status)
			assert.Equal(t, tt.reviewer.Name, out.ReviewedBy)
			assert.Equal(t, model.Date("2024-01-30"), out.ReviewedDate)
			assert.Equal(t, tt.comments, out.Comments)
			assert.Equal(t, rec.AppliedDate, out.AppliedDate)
			assert.Zero(t, h.notifier.count())
		})
	}
}

func TestDecideTwiceIsInvalidTransition(t *testing.T) {
	h := newHarness(t)
	rec := h.submit(t, student)
	first, err := h.engine.Decide(context.Background(), rec.ID, warden, DecisionInput{Action: model.DecisionApprove})
	require.NoError(t, err)

	for _, action := range []model.Decision{model.DecisionApprove, model.DecisionReject} {
		h.clock.Advance(24 * time.Hour)
		_, err = h.engine.Decide(context.Background(), rec.ID, admin, DecisionInput{Action: action, Comments: "again"})
		require.ErrorIs(t, err, ErrInvalidTransition)
		var terr *lifecycle.TransitionError
		require.True(t, errors.As(err, &terr))
		assert.Equal(t, lifecycle.ForbiddenTerminalAbsorbing, terr.Reason)

		if diff := cmp.Diff(first, h.stored(t, rec.ID)); diff != "" {
			t.Fatalf("record changed after repeated decide (-want +got):\n%s", diff)
		}
	}
}

func TestDecideParentGate(t *testing.T) {
	h := newHarness(t)
	rec := h.submit(t, student)

	out, err := h.engine.Decide(context.Background(), rec.ID, warden, DecisionInput{Action: model.DecisionApprove, RequiresParentGate: true})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPendingOTP, out.Status)
	assert.Equal(t, "Dr. Sarah Wilson", out.ReviewedBy)
	assert.Empty(t, out.ReviewedDate)
	assert.Equal(t, "Approved", out.Comments)
	assert.True(t, out.ParentGate)

	n := h.notifier.last(t)
	assert.Equal(t, rec.ID, n.ch.RequestID)
	assert.Equal(t, "robert@parent.edu", n.recipient)
	assert.Equal(t, devCode, n.ch.Code)
	assert.EqualValues(t, 1, h.otp.issues.Load())

	// A gated request can no longer be decided by a reviewer.
	_, err = h.engine.Decide(context.Background(), rec.ID, admin, DecisionInput{Action: model.DecisionApprove})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestDecideRefusals(t *testing.T) {
	h := newHarness(t)
	rec := h.submit(t, student)

	for _, who := range []auth.Principal{student, parent, {}} {
		_, err := h.engine.Decide(context.Background(), rec.ID, who, DecisionInput{Action: model.DecisionApprove})
		require.ErrorIs(t, err, ErrForbidden)
	}

	_, err := h.engine.Decide(context.Background(), "missing", warden, DecisionInput{Action: model.DecisionApprove})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = h.engine.Decide(context.Background(), rec.ID, warden, DecisionInput{Action: "defer"})
	var verr *lifecycle.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "action", verr.Field)

	assert.Equal(t, model.StatusPending, h.stored(t, rec.ID).Status)
}

func TestDecideChallengeUnavailableLeavesStateUnchanged(t *testing.T) {
	h := newHarness(t, withOTP(brokenOTP{}))
	rec := h.submit(t, student)

	_, err := h.engine.Decide(context.Background(), rec.ID, warden, DecisionInput{Action: model.DecisionApprove, RequiresParentGate: true})
	require.ErrorIs(t, err, ErrChallengeUnavailable)
	assert.Equal(t, model.StatusPending, h.stored(t, rec.ID).Status)

	// Ungated approvals never touch the OTP backend.
	out, err := h.engine.Decide(context.Background(), rec.ID, warden, DecisionInput{Action: model.DecisionApprove})
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, out.Status)
}

func TestDecideCommitFailureInvalidatesChallenge(t *testing.T) {
	var fs *failingUpdateStore
	h := newHarness(t, func(d *Deps) {
		fs = &failingUpdateStore{StateStore: d.Store}
		d.Store = fs
	})
	rec := h.submit(t, student)
	fs.fail.Store(true)

	_, err := h.engine.Decide(context.Background(), rec.ID, warden, DecisionInput{Action: model.DecisionApprove, RequiresParentGate: true})
	require.ErrorIs(t, err, errStoreDown)
	assert.Equal(t, int32(1), h.otp.issues.Load())
	assert.Zero(t, h.notifier.count())

	mem, ok := h.otp.Service.(*otp.MemoryService)
	require.True(t, ok)
	assert.False(t, mem.Pending(rec.ID), "challenge must not outlive a failed commit")
	assert.Equal(t, model.StatusPending, h.stored(t, rec.ID).Status)
}

func TestDecideGatedWithoutLinkedParent(t *testing.T) {
	h := newHarness(t)
	orphan := student
	orphan.ID = "99"
	rec := h.submit(t, orphan)

	_, err := h.engine.Decide(context.Background(), rec.ID, warden, DecisionInput{Action: model.DecisionApprove, RequiresParentGate: true})
	require.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, h.otp.issues.Load())
	assert.Equal(t, model.StatusPending, h.stored(t, rec.ID).Status)
}

func TestDecideHonorsGatePolicy(t *testing.T) {
	tests := []struct {
		name      string
		policy    GatePolicy
		requested bool
		want      model.Status
	}{
		{"reviewer flag off", GatePolicy{Mode: GateReviewer}, false, model.StatusApproved},
		{"reviewer flag on", GatePolicy{Mode: GateReviewer}, true, model.StatusPendingOTP},
		{"always", GatePolicy{Mode: GateAlways}, false, model.StatusPendingOTP},
		{"never", GatePolicy{Mode: GateNever, MinDays: 1}, true, model.StatusApproved},
		{"min days reached", GatePolicy{Mode: GateReviewer, MinDays: 3}, false, model.StatusPendingOTP},
		{"min days not reached", GatePolicy{Mode: GateReviewer, MinDays: 4}, false, model.StatusApproved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, withPolicy(tt.policy))
			rec := h.submit(t, student) // spans 3 days
			out, err := h.engine.Decide(context.Background(), rec.ID, warden, DecisionInput{Action: model.DecisionApprove, RequiresParentGate: tt.requested})
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Status)
		})
	}
}

func TestSetParentGatePolicy(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, DefaultGatePolicy(), h.engine.ParentGatePolicy())

	require.Error(t, h.engine.SetParentGatePolicy(GatePolicy{Mode: "maybe"}))
	require.Error(t, h.engine.SetParentGatePolicy(GatePolicy{Mode: GateReviewer, MinDays: -1}))
	assert.Equal(t, DefaultGatePolicy(), h.engine.ParentGatePolicy())

	require.NoError(t, h.engine.SetParentGatePolicy(GatePolicy{Mode: GateAlways}))
	rec := h.submit(t, student)
	out, err := h.engine.Decide(context.Background(), rec.ID, warden, DecisionInput{Action: model.DecisionApprove})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPendingOTP, out.Status)
}

func TestTerminalRequestsCarryReviewerAndDate(t *testing.T) {
	h := newHarness(t)
	actions := []DecisionInput{
		{Action: model.DecisionApprove},
		{Action: model.DecisionReject},
		{Action: model.DecisionApprove, RequiresParentGate: true},
	}
	for _, in := range actions {
		rec := h.submit(t, student)
		_, err := h.engine.Decide(context.Background(), rec.ID, warden, in)
		require.NoError(t, err)
	}
	pending, err := h.engine.List(context.Background(), warden, filterStatus(string(model.StatusPendingOTP)))
	require.NoError(t, err)
	require.Len(t, pending.Items, 1)
	_, err = h.engine.VerifyOTP(context.Background(), pending.Items[0].ID, parent, devCode)
	require.NoError(t, err)

	all, err := h.store.ListRequests(context.Background())
	require.NoError(t, err)
	for _, rec := range all {
		if !rec.Status.IsTerminal() {
			continue
		}
		assert.NotEmpty(t, rec.ReviewedBy, rec.ID)
		assert.NotEmpty(t, rec.ReviewedDate, rec.ID)
	}
}
