// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath string
	version    string
	// ConsumedEnvKeys records every environment key the loader looked at.
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Path is the YAML file the loader reads, if any.
func (l *Loader) Path() string { return l.configPath }

func (l *Loader) track(key string) string {
	key = EnvPrefix + key
	l.ConsumedEnvKeys[key] = struct{}{}
	return key
}

// Load loads configuration with precedence: ENV > File > Defaults.
// Order: defaults -> strict file parse -> env overrides -> derive -> validate.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnv(&cfg)

	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	if cfg.Store.Path == "" {
		switch cfg.Store.Backend {
		case "badger":
			cfg.Store.Path = filepath.Join(cfg.DataDir, "leaves.badger")
		default:
			cfg.Store.Path = filepath.Join(cfg.DataDir, "leaves.db")
		}
	}
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes the YAML file over cfg with STRICT parsing.
// Unknown fields are fatal to prevent silent misconfiguration.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

func (l *Loader) mergeEnv(cfg *AppConfig) {
	cfg.DataDir = ParseString(l.track("DATA_DIR"), cfg.DataDir)
	cfg.Log.Level = ParseString(l.track("LOG_LEVEL"), cfg.Log.Level)
	cfg.Log.Service = ParseString(l.track("LOG_SERVICE"), cfg.Log.Service)

	cfg.API.Listen = ParseString(l.track("LISTEN"), cfg.API.Listen)
	cfg.API.AllowedOrigins = ParseList(l.track("ALLOWED_ORIGINS"), cfg.API.AllowedOrigins)
	cfg.API.LoginRateLimit = ParseInt(l.track("LOGIN_RATE_LIMIT"), cfg.API.LoginRateLimit)
	cfg.API.OTPRate = ParseFloat(l.track("OTP_RATE"), cfg.API.OTPRate)
	cfg.API.OTPBurst = ParseInt(l.track("OTP_BURST"), cfg.API.OTPBurst)
	cfg.API.ShutdownTimeout = ParseDuration(l.track("SHUTDOWN_TIMEOUT"), cfg.API.ShutdownTimeout)

	cfg.Store.Backend = ParseString(l.track("STORE_BACKEND"), cfg.Store.Backend)
	cfg.Store.Path = ParseString(l.track("STORE_PATH"), cfg.Store.Path)

	cfg.Redis.Addr = ParseString(l.track("REDIS_ADDR"), cfg.Redis.Addr)
	cfg.Redis.Password = ParseString(l.track("REDIS_PASSWORD"), cfg.Redis.Password)
	cfg.Redis.DB = ParseInt(l.track("REDIS_DB"), cfg.Redis.DB)

	cfg.OTP.Backend = ParseString(l.track("OTP_BACKEND"), cfg.OTP.Backend)
	cfg.OTP.TTL = ParseDuration(l.track("OTP_TTL"), cfg.OTP.TTL)
	cfg.OTP.MaxAttempts = ParseInt(l.track("OTP_MAX_ATTEMPTS"), cfg.OTP.MaxAttempts)
	cfg.OTP.DevCode = ParseString(l.track("OTP_DEV_CODE"), cfg.OTP.DevCode)

	cfg.Session.Backend = ParseString(l.track("SESSION_BACKEND"), cfg.Session.Backend)
	cfg.Session.TTL = ParseDuration(l.track("SESSION_TTL"), cfg.Session.TTL)
	cfg.Session.CookieSecure = ParseBool(l.track("COOKIE_SECURE"), cfg.Session.CookieSecure)

	cfg.Identity.UsersFile = ParseString(l.track("USERS_FILE"), cfg.Identity.UsersFile)

	cfg.Policy.ParentGate.Mode = ParseString(l.track("PARENT_GATE_MODE"), cfg.Policy.ParentGate.Mode)
	cfg.Policy.ParentGate.MinDays = ParseInt(l.track("PARENT_GATE_MIN_DAYS"), cfg.Policy.ParentGate.MinDays)

	cfg.Telemetry.Enabled = ParseBool(l.track("TRACING_ENABLED"), cfg.Telemetry.Enabled)
	cfg.Telemetry.Environment = ParseString(l.track("TRACING_ENVIRONMENT"), cfg.Telemetry.Environment)
	cfg.Telemetry.Exporter = ParseString(l.track("TRACING_EXPORTER"), cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = ParseString(l.track("TRACING_ENDPOINT"), cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = ParseFloat(l.track("TRACING_SAMPLING_RATE"), cfg.Telemetry.SamplingRate)
}
