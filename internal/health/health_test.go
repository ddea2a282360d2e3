// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(context.Context) error { return nil }

func failing(context.Context) error { return errors.New("connection refused") }

func TestHealth_NonVerboseSkipsChecks(t *testing.T) {
	m := NewManager("v1")
	called := false
	m.RegisterChecker(PingChecker{CheckName: "store", Ping: func(context.Context) error { called = true; return nil }, Critical: true})

	resp := m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "v1", resp.Version)
	assert.Nil(t, resp.Checks)
	assert.False(t, called)
}

func TestReady_Aggregation(t *testing.T) {
	tests := []struct {
		name      string
		checkers  []Checker
		wantReady bool
		want      Status
	}{
		{"no checkers", nil, true, StatusHealthy},
		{"all healthy", []Checker{PingChecker{CheckName: "store", Ping: ok, Critical: true}}, true, StatusHealthy},
		{"optional down", []Checker{
			PingChecker{CheckName: "store", Ping: ok, Critical: true},
			PingChecker{CheckName: "tracing", Ping: failing},
		}, true, StatusDegraded},
		{"critical down", []Checker{
			PingChecker{CheckName: "store", Ping: failing, Critical: true},
			PingChecker{CheckName: "tracing", Ping: failing},
		}, false, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager("v1")
			for _, c := range tt.checkers {
				m.RegisterChecker(c)
			}
			resp := m.Ready(context.Background())
			assert.Equal(t, tt.wantReady, resp.Ready)
			assert.Equal(t, tt.want, resp.Status)
			assert.Len(t, resp.Checks, len(tt.checkers))
		})
	}
}

func TestReady_CheckTimeout(t *testing.T) {
	m := NewManager("v1")
	m.timeout = 20 * time.Millisecond
	m.RegisterChecker(PingChecker{CheckName: "redis", Critical: true, Ping: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})

	resp := m.Ready(context.Background())
	assert.False(t, resp.Ready)
	assert.Contains(t, resp.Checks["redis"].Error, "deadline")
}

func TestServeReady(t *testing.T) {
	m := NewManager("v1")
	m.RegisterChecker(PingChecker{CheckName: "store", Ping: failing, Critical: true})

	rec := httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Ready)
	assert.Equal(t, "connection refused", body.Checks["store"].Error)
}

func TestServeHealth_AlwaysOK(t *testing.T) {
	m := NewManager("v1")
	m.RegisterChecker(PingChecker{CheckName: "store", Ping: failing, Critical: true})

	rec := httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz?verbose=true", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, StatusUnhealthy, body.Status)
}
