// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package session maps opaque bearer tokens onto authenticated principals.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/leavegate/internal/auth"
	"github.com/ManuGH/leavegate/internal/cache"
)

// DefaultTTL is the session lifetime when none is configured.
const DefaultTTL = 12 * time.Hour

var ErrUnknownSession = errors.New("session: unknown or expired token")

// Session is an issued login.
type Session struct {
	Token     string
	Principal auth.Principal
	ExpiresAt time.Time
}

// Manager persists sessions in a cache.Cache. Expiry is the cache's TTL.
type Manager struct {
	store cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

// NewManager returns a Manager over store. ttl<=0 selects DefaultTTL.
func NewManager(store cache.Cache, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{store: store, ttl: ttl, now: time.Now}
}

// TTL is the lifetime of new sessions.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Create issues a fresh token for p.
func (m *Manager) Create(ctx context.Context, p auth.Principal) (Session, error) {
	if p.IsZero() {
		return Session{}, errors.New("session: empty principal")
	}
	token, err := newToken()
	if err != nil {
		return Session{}, err
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return Session{}, fmt.Errorf("session: encode principal: %w", err)
	}
	if err := m.store.Set(ctx, token, raw, m.ttl); err != nil {
		return Session{}, fmt.Errorf("session: store: %w", err)
	}
	return Session{Token: token, Principal: p, ExpiresAt: m.now().Add(m.ttl)}, nil
}

// Resolve returns the principal behind token.
func (m *Manager) Resolve(ctx context.Context, token string) (auth.Principal, error) {
	if token == "" {
		return auth.Principal{}, ErrUnknownSession
	}
	raw, ok := m.store.Get(ctx, token)
	if !ok {
		return auth.Principal{}, ErrUnknownSession
	}
	var p auth.Principal
	if err := json.Unmarshal(raw, &p); err != nil || p.IsZero() {
		return auth.Principal{}, ErrUnknownSession
	}
	return p, nil
}

// Destroy removes token. Unknown tokens are not an error.
func (m *Manager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return m.store.Delete(ctx, token)
}

func newToken() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("session: token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b[:]), nil
}
