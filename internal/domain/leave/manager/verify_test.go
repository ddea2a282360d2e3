// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"errors"
	"sync"
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

func TestVerifyOTPApprovesExactlyOnce(t *testing.T) {
	h := newHarness(t)
	rec := h.gated(t)
	// inside the default 10 minute challenge TTL
	h.clock.Advance(2 * time.Minute)

	out, err := h.engine.VerifyOTP(context.Background(), rec.ID, parent, devCode)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, out.Status)
	assert.Equal(t, model.Date("2024-01-28"), out.ReviewedDate)
	assert.Equal(t, "Dr. Sarah Wilson", out.ReviewedBy)

	_, err = h.engine.VerifyOTP(context.Background(), rec.ID, parent, devCode)
	require.ErrorIs(t, err, ErrInvalidOrExpired)
	assert.Equal(t, model.StatusApproved, h.stored(t, rec.ID).Status)
}

func TestVerifyOTPMalformedCodeSkipsBackends(t *testing.T) {
	h := newHarness(t)
	rec := h.gated(t)
	before := h.otp.verifies.Load()

	for _, code := range []string{"", "12345", "1234567", "12a456", "12 456"} {
		_, err := h.engine.VerifyOTP(context.Background(), rec.ID, parent, code)
		require.ErrorIs(t, err, ErrValidation, code)
		require.ErrorIs(t, err, ErrMalformedCode, code)
		var verr *lifecycle.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "code", verr.Field)
	}
	// Also for unknown ids: nothing is looked up.
	_, err := h.engine.VerifyOTP(context.Background(), "missing", parent, "12")
	require.ErrorIs(t, err, ErrMalformedCode)

	assert.Equal(t, before, h.otp.verifies.Load())
	assert.Equal(t, model.StatusPendingOTP, h.stored(t, rec.ID).Status)
}

func TestVerifyOTPOnlyLinkedParent(t *testing.T) {
	h := newHarness(t)
	rec := h.gated(t)
	unlinked := parent
	unlinked.LinkedStudentID = ""

	for _, who := range []auth.Principal{student, warden, admin} {
		_, err := h.engine.VerifyOTP(context.Background(), rec.ID, who, devCode)
		require.ErrorIs(t, err, ErrForbidden, who.ID)
	}
	// Parents of other students cannot tell an existing id from a missing one.
	for _, who := range []auth.Principal{stranger, unlinked} {
		_, err := h.engine.VerifyOTP(context.Background(), rec.ID, who, devCode)
		require.ErrorIs(t, err, ErrNotFound, who.Email)
		_, err = h.engine.VerifyOTP(context.Background(), "missing", who, devCode)
		require.ErrorIs(t, err, ErrNotFound, who.Email)
	}
	assert.Zero(t, h.otp.verifies.Load())
	assert.Equal(t, model.StatusPendingOTP, h.stored(t, rec.ID).Status)

	_, err := h.engine.VerifyOTP(context.Background(), rec.ID, parent, devCode)
	require.NoError(t, err)
}

func TestVerifyOTPWrongCodeKeepsRequestPending(t *testing.T) {
	h := newHarness(t)
	rec := h.gated(t)
	before := h.stored(t, rec.ID)

	_, err := h.engine.VerifyOTP(context.Background(), rec.ID, parent, "654321")
	require.ErrorIs(t, err, ErrInvalidOrExpired)
	if diff := cmp.Diff(before, h.stored(t, rec.ID)); diff != "" {
		t.Fatalf("failed verification mutated the record (-want +got):\n%s", diff)
	}

	// The challenge survives a mismatch.
	out, err := h.engine.VerifyOTP(context.Background(), rec.ID, parent, devCode)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, out.Status)
}

func TestVerifyOTPStateAndExistence(t *testing.T) {
	h := newHarness(t)
	pending := h.submit(t, student)

	_, err := h.engine.VerifyOTP(context.Background(), pending.ID, parent, devCode)
	require.ErrorIs(t, err, ErrInvalidOrExpired)

	_, err = h.engine.VerifyOTP(context.Background(), "missing", parent, devCode)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestVerifyOTPExpiredChallenge(t *testing.T) {
	h := newHarness(t)
	rec := h.gated(t)
	h.clock.Advance(otp.DefaultTTL + time.Second)

	_, err := h.engine.VerifyOTP(context.Background(), rec.ID, parent, devCode)
	require.ErrorIs(t, err, ErrInvalidOrExpired)
	assert.Equal(t, model.StatusPendingOTP, h.stored(t, rec.ID).Status)
}

func TestVerifyOTPBackendFailure(t *testing.T) {
	h := newHarness(t)
	rec := h.gated(t)
	h.engine.otp = brokenOTP{}

	_, err := h.engine.VerifyOTP(context.Background(), rec.ID, parent, devCode)
	require.ErrorIs(t, err, ErrChallengeUnavailable)
	assert.Equal(t, model.StatusPendingOTP, h.stored(t, rec.ID).Status)
}

func TestVerifyOTPConcurrentExactlyOneSucceeds(t *testing.T) {
	h := newHarness(t)
	rec := h.gated(t)

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  int
	)
	startGate := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-startGate
			_, err := h.engine.VerifyOTP(context.Background(), rec.ID, parent, devCode)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrInvalidOrExpired):
				failures++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(startGate)
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, failures)
	assert.Equal(t, model.StatusApproved, h.stored(t, rec.ID).Status)
	assert.Zero(t, h.engine.locks.size())
}

func TestVerifyOTPCanceledWhileWaiting(t *testing.T) {
	h := newHarness(t)
	rec := h.gated(t)

	unlock, err := h.engine.locks.Lock(context.Background(), rec.ID)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = h.engine.VerifyOTP(ctx, rec.ID, parent, devCode)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	unlock()

	assert.Equal(t, model.StatusPendingOTP, h.stored(t, rec.ID).Status)
	assert.Zero(t, h.otp.verifies.Load(), "abandoned verification must not consume the challenge")

	_, err = h.engine.VerifyOTP(context.Background(), rec.ID, parent, devCode)
	require.NoError(t, err)
}

func TestResendOTPReplacesChallenge(t *testing.T) {
	h := newHarness(t)
	random, err := otp.NewMemoryService(otp.Options{Now: h.clock.Now})
	require.NoError(t, err)
	h.engine.otp = random

	rec := h.gated(t)
	first := h.notifier.last(t).ch.Code

	h.clock.Advance(time.Minute)
	info, err := h.engine.ResendOTP(context.Background(), rec.ID, parent)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, info.RequestID)
	assert.Equal(t, h.clock.Now().Add(otp.DefaultTTL), info.ExpiresAt)

	second := h.notifier.last(t)
	assert.Equal(t, "robert@parent.edu", second.recipient)
	if first != second.ch.Code {
		_, err = h.engine.VerifyOTP(context.Background(), rec.ID, parent, first)
		require.ErrorIs(t, err, ErrInvalidOrExpired, "replaced code must not verify")
	}
	out, err := h.engine.VerifyOTP(context.Background(), rec.ID, parent, second.ch.Code)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, out.Status)
}

func TestResendOTPRefusals(t *testing.T) {
	h := newHarness(t)
	gated := h.gated(t)
	pending := h.submit(t, student)

	_, err := h.engine.ResendOTP(context.Background(), gated.ID, student)
	require.ErrorIs(t, err, ErrForbidden)
	_, err = h.engine.ResendOTP(context.Background(), gated.ID, stranger)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = h.engine.ResendOTP(context.Background(), "missing", warden)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = h.engine.ResendOTP(context.Background(), pending.ID, warden)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = h.engine.ResendOTP(context.Background(), gated.ID, admin)
	require.NoError(t, err)

	h.engine.otp = brokenOTP{}
	_, err = h.engine.ResendOTP(context.Background(), gated.ID, warden)
	require.ErrorIs(t, err, ErrChallengeUnavailable)
}
