// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package otp

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"
)

type memoryChallenge struct {
	digest    string
	expiresAt time.Time
	attempts  int
}

// MemoryService keeps challenges in process memory.
type MemoryService struct {
	opts Options

	mu         sync.Mutex
	challenges map[string]*memoryChallenge
}

// NewMemoryService returns an in-process Service.
func NewMemoryService(opts Options) (*MemoryService, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &MemoryService{opts: opts, challenges: make(map[string]*memoryChallenge)}, nil
}

func (s *MemoryService) Issue(ctx context.Context, requestID string) (Challenge, error) {
	if err := ctx.Err(); err != nil {
		return Challenge{}, err
	}
	code, err := s.opts.newCode()
	if err != nil {
		return Challenge{}, err
	}
	expires := s.opts.Now().Add(s.opts.TTL)

	s.mu.Lock()
	s.challenges[requestID] = &memoryChallenge{digest: digest(requestID, code), expiresAt: expires}
	s.mu.Unlock()

	return Challenge{RequestID: requestID, Code: code, ExpiresAt: expires}, nil
}

func (s *MemoryService) Verify(ctx context.Context, requestID, code string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	want := digest(requestID, code)

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.challenges[requestID]
	if !ok {
		return false, nil
	}
	if !s.opts.Now().Before(c.expiresAt) {
		delete(s.challenges, requestID)
		return false, nil
	}
	if subtle.ConstantTimeCompare([]byte(c.digest), []byte(want)) == 1 {
		delete(s.challenges, requestID)
		return true, nil
	}
	c.attempts++
	if c.attempts >= s.opts.MaxAttempts {
		delete(s.challenges, requestID)
	}
	return false, nil
}

func (s *MemoryService) Invalidate(ctx context.Context, requestID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.challenges, requestID)
	s.mu.Unlock()
	return nil
}

// Pending reports whether a live challenge exists for requestID.
func (s *MemoryService) Pending(requestID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.challenges[requestID]
	return ok && s.opts.Now().Before(c.expiresAt)
}
