// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/leavegate/internal/domain/leave/lifecycle"
	"github.com/ManuGH/leavegate/internal/domain/leave/manager"
	"github.com/ManuGH/leavegate/internal/log"
)

// writeJSON writes a JSON response with the given status code.
// If encoding fails, headers are already sent so we can't change the status code,
// but we log the error for debugging.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.L().Error().
			Err(err).
			Int("status", code).
			Msg("failed to encode JSON response - client may receive partial data")
	}
}

// APIError is the JSON error body.
type APIError struct {
	Code      string `json:"error"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Common API error definitions
var (
	ErrUnauthorized = &APIError{
		Code:    "unauthorized",
		Message: "Authentication required",
	}
	ErrInvalidCredentials = &APIError{
		Code:    "invalid_credentials",
		Message: "Invalid email or password",
	}
	ErrForbidden = &APIError{
		Code:    "forbidden",
		Message: "You do not have permission to perform this action",
	}
	ErrNotFound = &APIError{
		Code:    "not_found",
		Message: "Leave request not found",
	}
	ErrInvalidInput = &APIError{
		Code:    "invalid_input",
		Message: "Invalid input parameters",
	}
	ErrInvalidOTP = &APIError{
		Code:      "invalid_otp",
		Message:   "The code is invalid or has expired",
		Retryable: true,
	}
	ErrOTPUnavailable = &APIError{
		Code:    "otp_unavailable",
		Message: "Verification service temporarily unavailable",
	}
	ErrRateLimitExceeded = &APIError{
		Code:    "rate_limited",
		Message: "Too many requests. Please try again later.",
	}
	ErrInternalServer = &APIError{
		Code:    "internal_error",
		Message: "An internal error occurred",
	}
)

// RespondError writes apiErr with the request id filled in.
func RespondError(w http.ResponseWriter, r *http.Request, statusCode int, apiErr *APIError) {
	body := *apiErr
	body.RequestID = log.RequestIDFromContext(r.Context())
	writeJSON(w, statusCode, body)
}

// respondEngineError maps lifecycle engine errors onto HTTP. Forbidden and
// not-found bodies are generic.
func respondEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *lifecycle.ValidationError
	switch {
	case errors.As(err, &verr):
		RespondError(w, r, http.StatusBadRequest, &APIError{
			Code:    ErrInvalidInput.Code,
			Message: verr.Reason,
			Field:   verr.Field,
		})
	case errors.Is(err, manager.ErrValidation):
		RespondError(w, r, http.StatusBadRequest, ErrInvalidInput)
	case errors.Is(err, manager.ErrForbidden):
		RespondError(w, r, http.StatusForbidden, ErrForbidden)
	case errors.Is(err, manager.ErrNotFound):
		RespondError(w, r, http.StatusNotFound, ErrNotFound)
	case errors.Is(err, manager.ErrInvalidTransition):
		RespondError(w, r, http.StatusConflict, transitionError(err))
	case errors.Is(err, manager.ErrInvalidOrExpired):
		RespondError(w, r, http.StatusUnprocessableEntity, ErrInvalidOTP)
	case errors.Is(err, manager.ErrChallengeUnavailable):
		RespondError(w, r, http.StatusServiceUnavailable, ErrOTPUnavailable)
	default:
		logger := log.FromContext(r.Context())
		logger.Error().Err(err).Str(log.FieldPath, r.URL.Path).Msg("request failed")
		RespondError(w, r, http.StatusInternalServerError, ErrInternalServer)
	}
}

func transitionError(err error) *APIError {
	msg := "This request has already been decided"
	var terr *lifecycle.TransitionError
	if errors.As(err, &terr) {
		switch terr.Reason {
		case lifecycle.ForbiddenRequiresPending:
			msg = "This request is awaiting parent confirmation"
		case lifecycle.ForbiddenRequiresPendingOTP:
			msg = "This request is not awaiting parent confirmation"
		}
	}
	return &APIError{Code: "invalid_transition", Message: msg}
}
