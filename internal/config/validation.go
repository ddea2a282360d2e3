// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"fmt"

	"github.com/ManuGH/leavegate/internal/otp"
	"github.com/rs/zerolog"
)

// Validate checks the resolved configuration and reports every problem at once.
func Validate(cfg AppConfig) error {
	var errs []error
	bad := func(field, format string, args ...any) {
		errs = append(errs, &FieldError{Field: field, Reason: fmt.Sprintf(format, args...)})
	}

	if cfg.DataDir == "" {
		bad("dataDir", "must not be empty")
	}
	if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil || cfg.Log.Level == "" {
		bad("log.level", "unknown level %q", cfg.Log.Level)
	}
	if cfg.API.Listen == "" {
		bad("api.listen", "must not be empty")
	}
	if cfg.API.LoginRateLimit < 0 {
		bad("api.loginRateLimit", "must be >= 0")
	}
	if cfg.API.OTPRate < 0 || cfg.API.OTPBurst < 0 {
		bad("api.otpRate", "rate and burst must be >= 0")
	}
	switch cfg.Store.Backend {
	case "memory", "sqlite", "badger":
	default:
		bad("store.backend", "unknown backend %q", cfg.Store.Backend)
	}
	if !oneOf(cfg.OTP.Backend, BackendMemory, BackendRedis) {
		bad("otp.backend", "unknown backend %q", cfg.OTP.Backend)
	}
	if cfg.OTP.TTL <= 0 {
		bad("otp.ttl", "must be positive")
	}
	if cfg.OTP.MaxAttempts < 1 {
		bad("otp.maxAttempts", "must be >= 1")
	}
	if cfg.OTP.DevCode != "" {
		if err := otp.ValidateCode(cfg.OTP.DevCode); err != nil {
			bad("otp.devCode", "must be exactly 6 digits")
		}
	}
	if !oneOf(cfg.Session.Backend, BackendMemory, BackendRedis) {
		bad("session.backend", "unknown backend %q", cfg.Session.Backend)
	}
	if cfg.Session.TTL <= 0 {
		bad("session.ttl", "must be positive")
	}
	if cfg.UsesRedis() && cfg.Redis.Addr == "" {
		bad("redis.addr", "required when a redis backend is selected")
	}
	if !oneOf(cfg.Policy.ParentGate.Mode, GateReviewer, GateAlways, GateNever) {
		bad("policy.parentGate.mode", "unknown mode %q", cfg.Policy.ParentGate.Mode)
	}
	if cfg.Policy.ParentGate.MinDays < 0 {
		bad("policy.parentGate.minDays", "must be >= 0")
	}
	if cfg.Telemetry.Enabled {
		if !oneOf(cfg.Telemetry.Exporter, "grpc", "http") {
			bad("telemetry.exporter", "unknown exporter %q", cfg.Telemetry.Exporter)
		}
		if cfg.Telemetry.Endpoint == "" {
			bad("telemetry.endpoint", "required when tracing is enabled")
		}
	}
	if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
		bad("telemetry.samplingRate", "must be within [0,1]")
	}
	return errors.Join(errs...)
}

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}
