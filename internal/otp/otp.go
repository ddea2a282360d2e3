// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package otp issues and verifies the one-time passcodes a parent uses to
// confirm a reviewer's approval.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"
)

// CodeLength is the number of decimal digits in a code.
const CodeLength = 6

var (
	ErrMalformedCode    = errors.New("otp: code must be exactly 6 digits")
	ErrInvalidOrExpired = errors.New("otp: invalid or expired code")
)

// Defaults applied when Options leaves a field unset.
const (
	DefaultTTL         = 10 * time.Minute
	DefaultMaxAttempts = 5
)

// ValidateCode checks the shape of a code without consulting any backend.
func ValidateCode(code string) error {
	if len(code) != CodeLength {
		return ErrMalformedCode
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return ErrMalformedCode
		}
	}
	return nil
}

// Challenge is an issued passcode. Code is only populated on the value
// returned from Issue; backends store a digest.
type Challenge struct {
	RequestID string    `json:"requestId"`
	Code      string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Service is the OTP challenge backend.
type Service interface {
	// Issue creates a challenge for requestID, replacing any previous one.
	Issue(ctx context.Context, requestID string) (Challenge, error)
	// Verify reports whether code matches the live challenge. A match consumes
	// the challenge; a mismatch counts toward the attempt limit. The error is
	// reserved for backend failures.
	Verify(ctx context.Context, requestID, code string) (bool, error)
	// Invalidate drops any challenge for requestID. Missing challenges are
	// not an error.
	Invalidate(ctx context.Context, requestID string) error
}

// Options configures a Service.
type Options struct {
	TTL         time.Duration
	MaxAttempts int
	// DevCode pins every issued code. Empty means random codes.
	DevCode string
	Now     func() time.Time
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

func (o Options) validate() error {
	if o.DevCode != "" {
		if err := ValidateCode(o.DevCode); err != nil {
			return fmt.Errorf("otp dev code: %w", err)
		}
	}
	return nil
}

func (o Options) newCode() (string, error) {
	if o.DevCode != "" {
		return o.DevCode, nil
	}
	return generateCode()
}

var codeSpace = big.NewInt(1_000_000)

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeLength, n.Int64()), nil
}

// digest binds the code to its request so a digest is useless elsewhere.
func digest(requestID, code string) string {
	sum := sha256.Sum256([]byte(requestID + ":" + code))
	return hex.EncodeToString(sum[:])
}
