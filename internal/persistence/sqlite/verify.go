// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// CheckMode selects the integrity pragma.
type CheckMode string

const (
	CheckQuick CheckMode = "quick" // PRAGMA quick_check
	CheckFull  CheckMode = "full"  // PRAGMA integrity_check
)

// ParseCheckMode accepts "quick" or "full", case-insensitively.
func ParseCheckMode(s string) (CheckMode, error) {
	switch m := CheckMode(strings.ToLower(strings.TrimSpace(s))); m {
	case CheckQuick, CheckFull:
		return m, nil
	default:
		return "", fmt.Errorf("invalid check mode %q (use quick or full)", s)
	}
}

func (m CheckMode) pragma() string {
	if m == CheckFull {
		return "PRAGMA integrity_check"
	}
	return "PRAGMA quick_check"
}

// Report is the outcome of an integrity check.
type Report struct {
	Path     string
	Mode     CheckMode
	Findings []string
}

// Healthy reports whether the check found nothing.
func (r Report) Healthy() bool { return len(r.Findings) == 0 }

// Check runs an integrity pragma against the database at path, read-only.
// An error means the check could not run; corruption shows up as findings.
func Check(ctx context.Context, path string, mode CheckMode) (Report, error) {
	rep := Report{Path: path, Mode: mode}

	db, err := Open(ctx, path, Options{BusyTimeout: 2 * time.Second, MaxOpenConns: 1, ReadOnly: true})
	if err != nil {
		return rep, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, mode.pragma())
	if err != nil {
		return rep, fmt.Errorf("sqlite: %s check: %w", mode, err)
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return rep, fmt.Errorf("sqlite: scan %s check: %w", mode, err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return rep, fmt.Errorf("sqlite: %s check: %w", mode, err)
	}

	switch {
	case len(lines) == 0:
		rep.Findings = []string{"integrity check returned no rows"}
	case len(lines) == 1 && strings.EqualFold(lines[0], "ok"):
	default:
		rep.Findings = lines
	}
	return rep, nil
}
