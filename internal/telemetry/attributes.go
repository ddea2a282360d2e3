// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for consistent tracing across the application.
const (
	// Leave attributes
	LeaveIDKey        = "leave.id"
	LeaveStatusKey    = "leave.status"
	LeaveOldStatusKey = "leave.status.old"
	LeaveEventKey     = "leave.event"
	LeaveGatedKey     = "leave.parent_gate"

	// Actor attributes
	ActorIDKey   = "actor.id"
	ActorRoleKey = "actor.role"

	// OTP attributes
	OTPOutcomeKey = "otp.outcome"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// ActorAttributes identifies who performed an operation.
func ActorAttributes(id, role string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(ActorIDKey, id),
		attribute.String(ActorRoleKey, role),
	}
}

// TransitionAttributes describes a lifecycle transition.
func TransitionAttributes(leaveID, event, from, to string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String(LeaveIDKey, leaveID)}
	if event != "" {
		attrs = append(attrs, attribute.String(LeaveEventKey, event))
	}
	if from != "" {
		attrs = append(attrs, attribute.String(LeaveOldStatusKey, from))
	}
	if to != "" {
		attrs = append(attrs, attribute.String(LeaveStatusKey, to))
	}
	return attrs
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}

// RecordError marks span failed with a classified error.
func RecordError(span trace.Span, err error, errorType string) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetAttributes(ErrorAttributes(errorType)...)
	span.SetStatus(codes.Error, errorType)
}
