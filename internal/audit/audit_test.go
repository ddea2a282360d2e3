// SPDX-License-Identifier: MIT

package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ManuGH/leavegate/internal/auth"
	"github.com/ManuGH/leavegate/internal/log"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(buf *bytes.Buffer) *Logger {
	l := NewLoggerWith(zerolog.New(buf))
	l.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	return l
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	return m
}

func TestNewLogger(t *testing.T) {
	assert.NotNil(t, NewLogger())
}

func TestLogger_Log(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	logger.Log(Event{
		Type:       EventConfigReload,
		Actor:      "system",
		Action:     "reloaded config",
		Resource:   "config.yaml",
		Result:     ResultSuccess,
		RemoteAddr: "192.168.1.100",
		UserAgent:  "curl/7.68.0",
		RequestID:  "req-123",
		Details:    map[string]string{"changes": "3"},
	})

	m := decode(t, &buf)
	assert.Equal(t, "audit", m["log_type"])
	assert.Equal(t, "config.reload", m["event_type"])
	assert.Equal(t, "req-123", m["request_id"])
	assert.Equal(t, "3", m["changes"])
	assert.Equal(t, "2025-01-02T03:04:05Z", m["timestamp"])
}

func TestLogger_LogFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	ctx := log.ContextWithRequestID(context.Background(), "req-456")
	ctx = WithMeta(ctx, Meta{RemoteAddr: "10.0.0.1", UserAgent: "Mozilla/5.0"})
	ctx = auth.WithPrincipal(ctx, auth.Principal{ID: "2", Role: auth.RoleWarden})

	logger.Transition(ctx, EventLeaveDecided, auth.Principal{ID: "2", Role: auth.RoleWarden}, "leave-1", "approve", ResultSuccess,
		map[string]string{"new_state": "approved"})

	m := decode(t, &buf)
	assert.Equal(t, "req-456", m["request_id"])
	assert.Equal(t, "10.0.0.1", m["remote_addr"])
	assert.Equal(t, "Mozilla/5.0", m["user_agent"])
	assert.Equal(t, "2", m["actor"])
	assert.Equal(t, "warden", m["actor_role"])
	assert.Equal(t, "leave-1", m["resource"])
	assert.Equal(t, "approved", m["new_state"])
}

func TestLogger_ActorFromPrincipal(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	ctx := auth.WithPrincipal(context.Background(), auth.Principal{ID: "4", Role: auth.RoleParent})
	logger.RateLimited(ctx, "", "otp.verify")

	m := decode(t, &buf)
	assert.Equal(t, "4", m["actor"])
	assert.Equal(t, "parent", m["actor_role"])
	assert.Equal(t, ResultDenied, m["result"])
}

func TestLogger_Login(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	logger.Login(context.Background(), "mallory@x.edu", "", false)
	m := decode(t, &buf)
	assert.Equal(t, string(EventLoginFailure), m["event_type"])
	assert.Equal(t, ResultFailure, m["result"])

	buf.Reset()
	logger.Logout(context.Background(), auth.Principal{ID: "1", Role: auth.RoleStudent})
	m = decode(t, &buf)
	assert.Equal(t, string(EventLogout), m["event_type"])
}

func TestLogger_NilSafe(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() {
		l.Log(Event{Type: EventExport})
		l.Forbidden(context.Background(), auth.Principal{}, "x", "y")
	})
}
