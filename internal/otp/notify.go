// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package otp

import (
	"context"

	xglog "github.com/ManuGH/leavegate/internal/log"
	"github.com/rs/zerolog"
)

// Notifier delivers an issued challenge to the parent.
type Notifier interface {
	Notify(ctx context.Context, ch Challenge, recipient string) error
}

// LogNotifier writes issuance to the log. The code itself is only logged
// when RevealCode is set (dev code deployments).
type LogNotifier struct {
	Logger     zerolog.Logger
	RevealCode bool
}

func (n LogNotifier) Notify(_ context.Context, ch Challenge, recipient string) error {
	ev := n.Logger.Info().
		Str(xglog.FieldEvent, "otp.issued").
		Str(xglog.FieldLeaveID, ch.RequestID).
		Str(xglog.FieldRecipient, recipient).
		Time("expires_at", ch.ExpiresAt)
	if n.RevealCode {
		ev = ev.Str("code", ch.Code)
	}
	ev.Msg("otp challenge issued")
	return nil
}
