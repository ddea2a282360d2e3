// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "errors"

var (
	// ErrUnknownConfigField marks strict YAML failures on unknown keys.
	ErrUnknownConfigField = errors.New("unknown config field")
	ErrInvalidConfig      = errors.New("invalid configuration")
)

// FieldError names the config key a validation failure belongs to.
// It matches ErrInvalidConfig under errors.Is.
type FieldError struct {
	Field  string // dotted YAML path, e.g. "policy.parentGate.mode"
	Reason string
}

func (e *FieldError) Error() string {
	return ErrInvalidConfig.Error() + ": " + e.Field + ": " + e.Reason
}

func (e *FieldError) Unwrap() error { return ErrInvalidConfig }

// InvalidFields lists the keys rejected in err, in report order.
func InvalidFields(err error) []string {
	var fields []string
	var walk func(error)
	walk = func(err error) {
		if err == nil {
			return
		}
		if fe, ok := err.(*FieldError); ok {
			fields = append(fields, fe.Field)
			return
		}
		switch e := err.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range e.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(e.Unwrap())
		}
	}
	walk(err)
	return fields
}
