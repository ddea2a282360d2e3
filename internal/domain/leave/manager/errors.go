// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"errors"

	"github.com/ManuGH/leavegate/internal/domain/leave/lifecycle"
	"github.com/ManuGH/leavegate/internal/otp"
)

var (
	ErrValidation        = lifecycle.ErrValidation
	ErrForbidden         = lifecycle.ErrForbidden
	ErrNotFound          = lifecycle.ErrNotFound
	ErrInvalidTransition = lifecycle.ErrInvalidTransition
	ErrMalformedCode     = otp.ErrMalformedCode
	ErrInvalidOrExpired  = otp.ErrInvalidOrExpired

	// ErrChallengeUnavailable reports that the OTP backend failed; the request
	// state is unchanged.
	ErrChallengeUnavailable = errors.New("otp challenge service unavailable")
)

// ErrorClass buckets an engine error for metrics and span attributes.
func ErrorClass(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMalformedCode):
		return "malformed_code"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrInvalidOrExpired):
		return "invalid_or_expired"
	case errors.Is(err, ErrChallengeUnavailable):
		return "challenge_unavailable"
	default:
		return "internal"
	}
}
