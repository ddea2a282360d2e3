// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// lastLine decodes the final JSON log line written to buf.
func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry), buf.String())
	return entry
}

func TestRequestID(t *testing.T) {
	assert.Equal(t, "rid-1", RequestIDFromContext(ContextWithRequestID(nil, "rid-1")))
	assert.Equal(t, "", RequestIDFromContext(ContextWithRequestID(context.Background(), "")))
	assert.Equal(t, "", RequestIDFromContext(nil))
	assert.Equal(t, "", RequestIDFromContext(context.WithValue(context.Background(), requestIDKey, 123)))
}

func TestActor(t *testing.T) {
	ctx := ContextWithActor(nil, "4", "parent")
	id, role := ActorFromContext(ctx)
	assert.Equal(t, "4", id)
	assert.Equal(t, "parent", role)

	id, role = ActorFromContext(context.Background())
	assert.Empty(t, id)
	assert.Empty(t, role)
}

func TestContextWithActor_EnrichesAttachedLogger(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)
	ctx := ContextWithActor(base.WithContext(context.Background()), "2", "warden")

	zerolog.Ctx(ctx).Info().Msg("decided")
	entry := lastLine(t, &buf)
	assert.Equal(t, "2", entry[FieldActorID])
	assert.Equal(t, "warden", entry[FieldActorRole])
}

func TestContextWithActor_NoLoggerAttached(t *testing.T) {
	ctx := ContextWithActor(context.Background(), "1", "student")
	assert.Equal(t, zerolog.Disabled, zerolog.Ctx(ctx).GetLevel())
}

func TestWithContext_Fields(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})

	ctx := ContextWithRequestID(context.Background(), "req-123")
	ctx = ContextWithActor(ctx, "3", "admin")
	ctx = trace.ContextWithSpanContext(ctx, sc)

	var buf bytes.Buffer
	logger := WithContext(ctx, zerolog.New(&buf))
	logger.Info().Msg("approved")

	entry := lastLine(t, &buf)
	assert.Equal(t, "req-123", entry[FieldRequestID])
	assert.Equal(t, "3", entry[FieldActorID])
	assert.Equal(t, "admin", entry[FieldActorRole])
	assert.Equal(t, traceID.String(), entry["trace_id"])
	assert.Equal(t, spanID.String(), entry["span_id"])
}

func TestWithContext_NothingToAdd(t *testing.T) {
	var buf bytes.Buffer
	logger := WithContext(context.Background(), zerolog.New(&buf))
	logger.Info().Msg("plain")
	assert.Equal(t, map[string]any{"level": "info", "message": "plain"}, lastLine(t, &buf))

	// A noop span has an invalid span context and adds no trace fields.
	ctx, span := noop.NewTracerProvider().Tracer("test").Start(context.Background(), "noop")
	defer span.End()
	buf.Reset()
	logger = WithContext(ctx, zerolog.New(&buf))
	logger.Info().Msg("plain")
	assert.NotContains(t, lastLine(t, &buf), "trace_id")
}

func TestWithComponentFromContext(t *testing.T) {
	var buf bytes.Buffer
	Reconfigure(Config{Output: &buf})
	t.Cleanup(func() { Reconfigure(Config{}) })

	logger := WithComponentFromContext(ContextWithRequestID(context.Background(), "rid-9"), "otp")
	logger.Info().Msg("issued")
	entry := lastLine(t, &buf)
	assert.Equal(t, "rid-9", entry[FieldRequestID])
	assert.Equal(t, "otp", entry[FieldComponent])
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	attached := zerolog.New(&buf).With().Str("k", "v").Logger()
	ctx := attached.WithContext(context.Background())
	FromContext(ctx).Info().Msg("attached")
	assert.Equal(t, "v", lastLine(t, &buf)["k"])

	assert.NotNil(t, FromContext(nil))
}

func TestMiddleware_LogsRequest(t *testing.T) {
	var buf bytes.Buffer
	Reconfigure(Config{Output: &buf})
	t.Cleanup(func() { Reconfigure(Config{}) })

	h := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Debug().Msg("inside")
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/leaves", nil)
	req = req.WithContext(ContextWithRequestID(req.Context(), "rid-1"))
	h.ServeHTTP(httptest.NewRecorder(), req)

	entry := lastLine(t, &buf)
	assert.Equal(t, "http.request", entry[FieldEvent])
	assert.Equal(t, "rid-1", entry[FieldRequestID])
	assert.Equal(t, float64(http.StatusTeapot), entry[FieldStatus])
}
