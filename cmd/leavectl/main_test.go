// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ManuGH/leavegate/internal/domain/leave/model"
	"github.com/ManuGH/leavegate/internal/domain/leave/query"
	"github.com/ManuGH/leavegate/internal/domain/leave/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func seedStore(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "leaves.db")
	st, err := store.NewSqliteStore(path)
	require.NoError(t, err)
	defer st.Close()

	recs := []*model.LeaveRequest{
		{ID: "leave-1", StudentID: "1", StudentName: "John Doe", HostelName: "Krishna Hostel", Reason: "Wedding",
			StartDate: "2024-02-01", EndDate: "2024-02-03", Status: model.StatusApproved, AppliedDate: "2024-01-20",
			ReviewedBy: "Dr. Sarah Wilson", ReviewedDate: "2024-01-21"},
		{ID: "leave-2", StudentID: "1", StudentName: "John Doe", HostelName: "Krishna Hostel", Reason: "Medical",
			StartDate: "2024-02-10", EndDate: "2024-02-11", Status: model.StatusPending, AppliedDate: "2024-02-05"},
		{ID: "leave-3", StudentID: "5", StudentName: "Priya Sharma", HostelName: "Ganga Hostel", Reason: "Sports meet",
			StartDate: "2024-03-01", EndDate: "2024-03-02", Status: model.StatusRejected, AppliedDate: "2024-02-20",
			ReviewedBy: "Admin User", ReviewedDate: "2024-02-21", Comments: "Exams"},
	}
	for _, r := range recs {
		require.NoError(t, st.PutRequest(context.Background(), r))
	}
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestExportToStdout(t *testing.T) {
	path := seedStore(t)
	out, _, err := execute(t, "", "export", "--store", "sqlite", "--store-path", path, "--status", "approved")
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], `"Applied Date"`))
	assert.Contains(t, lines[1], `"Wedding"`)
}

func TestExportToFile(t *testing.T) {
	path := seedStore(t)
	target := filepath.Join(t.TempDir(), "out.csv")
	_, stderr, err := execute(t, "", "export", "--store", "sqlite", "--store-path", path, "-o", target)
	require.NoError(t, err)
	assert.Contains(t, stderr, "wrote 3 records")

	raw, err := os.ReadFile(target)
	require.NoError(t, err)
	lines := strings.Split(string(raw), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "Sports meet", "newest applied date first")
}

func TestExportRejectsBadFilter(t *testing.T) {
	path := seedStore(t)
	_, _, err := execute(t, "", "export", "--store", "sqlite", "--store-path", path, "--status", "maybe")
	require.Error(t, err)
}

func TestStats(t *testing.T) {
	path := seedStore(t)
	out, _, err := execute(t, "", "stats", "--store", "sqlite", "--store-path", path, "--json")
	require.NoError(t, err)

	var stats query.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, query.Stats{Total: 3, Pending: 1, Approved: 1, Rejected: 1}, stats)

	out, _, err = execute(t, "", "stats", "--store", "sqlite", "--store-path", path, "--search", "john")
	require.NoError(t, err)
	assert.Contains(t, out, "total")
	assert.Regexp(t, `total\s+2`, out)
}

func TestMemoryBackendRefused(t *testing.T) {
	_, _, err := execute(t, "", "stats", "--store", "memory")
	require.Error(t, err)
}

func TestHashPassword(t *testing.T) {
	out, _, err := execute(t, "s3cret\n", "hash-password")
	require.NoError(t, err)
	hash := strings.TrimSpace(out)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))

	_, _, err = execute(t, "", "hash-password")
	require.Error(t, err)
}

func TestUsersCheck(t *testing.T) {
	out, _, err := execute(t, "", "hash-password", "pw")
	require.NoError(t, err)
	hash := strings.TrimSpace(out)

	file := filepath.Join(t.TempDir(), "users.yaml")
	body := "users:\n" +
		"  - {id: \"1\", name: A, email: a@student.edu, role: student, passwordHash: \"" + hash + "\"}\n" +
		"  - {id: \"2\", name: B, email: b@parent.edu, role: parent, studentId: \"1\", passwordHash: \"" + hash + "\"}\n"
	require.NoError(t, os.WriteFile(file, []byte(body), 0o600))

	out, _, err = execute(t, "", "users", "check", file)
	require.NoError(t, err)
	assert.Contains(t, out, "2 users ok")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("users:\n  - {id: \"9\", name: P, email: p@parent.edu, role: parent, studentId: \"404\", passwordHash: x}\n"), 0o600))
	_, _, err = execute(t, "", "users", "check", bad)
	require.Error(t, err)
}
