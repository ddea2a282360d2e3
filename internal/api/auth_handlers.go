// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/ManuGH/leavegate/internal/auth"
	"github.com/ManuGH/leavegate/internal/authz"
	"github.com/ManuGH/leavegate/internal/identity"
	"github.com/ManuGH/leavegate/internal/log"
)

type meResponse struct {
	User         auth.Principal     `json:"user"`
	Capabilities authz.Capabilities `json:"capabilities"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	meResponse
}

// handleLogin authenticates credentials and opens a session.
// POST /api/v1/auth/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds identity.Credentials
	if !decodeJSON(w, r, &creds) || !validateBody(w, r, &creds) {
		return
	}

	p, err := s.identity.Authenticate(r.Context(), creds)
	if err != nil {
		if !errors.Is(err, identity.ErrInvalidCredentials) {
			logger := log.FromContext(r.Context())
			logger.Error().Err(err).Msg("identity provider failed")
		}
		s.audit.Login(r.Context(), creds.Email, "", false)
		RespondError(w, r, http.StatusUnauthorized, ErrInvalidCredentials)
		return
	}

	sess, err := s.sessions.Create(r.Context(), p)
	if err != nil {
		logger := log.FromContext(r.Context())
		logger.Error().Err(err).Str(log.FieldActorID, p.ID).Msg("session create failed")
		RespondError(w, r, http.StatusServiceUnavailable, &APIError{Code: "session_unavailable", Message: "Could not start a session, try again later"})
		return
	}
	s.audit.Login(auth.WithPrincipal(r.Context(), p), p.ID, p.Role, true)

	http.SetCookie(w, auth.SessionCookie(sess.Token, sess.ExpiresAt, s.sessions.TTL(), s.cfg.CookieSecure))
	writeJSON(w, http.StatusOK, loginResponse{
		Token:      sess.Token,
		ExpiresAt:  sess.ExpiresAt,
		meResponse: meResponse{User: p, Capabilities: authz.CapabilitiesFor(p.Role)},
	})
}

// handleLogout destroys the caller's session.
// POST /api/v1/auth/logout
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	if err := s.sessions.Destroy(r.Context(), auth.ExtractToken(r)); err != nil {
		logger := log.FromContext(r.Context())
		logger.Warn().Err(err).Msg("session destroy failed")
	}
	s.audit.Logout(r.Context(), p)

	http.SetCookie(w, auth.ClearedSessionCookie(s.cfg.CookieSecure))
	w.WriteHeader(http.StatusNoContent)
}

// handleMe returns the caller and what they may do.
// GET /api/v1/me
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	writeJSON(w, http.StatusOK, meResponse{User: p, Capabilities: authz.CapabilitiesFor(p.Role)})
}
