// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ManuGH/leavegate/internal/domain/leave/model"
	"github.com/ManuGH/leavegate/internal/persistence/sqlite"
)

const (
	schemaVersion = 2 // v2 added parent_gate
)

const selectColumns = `seq, id, student_id, student_name, hostel_name, room_number, reason,
	start_date, end_date, contact_details, status, applied_date,
	reviewed_by, reviewed_date, comments, parent_gate, created_at_ms, updated_at_ms`

// SqliteStore implements StateStore using SQLite.
type SqliteStore struct {
	DB *sql.DB
}

// NewSqliteStore initializes a new SQLite leave store.
func NewSqliteStore(dbPath string) (*SqliteStore, error) {
	db, err := sqlite.Open(context.Background(), dbPath, sqlite.DefaultOptions())
	if err != nil {
		return nil, err
	}

	s := &SqliteStore{DB: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("leave store: migration failed: %w", err)
	}

	return s, nil
}

func (s *SqliteStore) Close() error {
	return s.DB.Close()
}

func (s *SqliteStore) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func (s *SqliteStore) migrate() error {
	var currentVersion int
	if err := s.DB.QueryRow("PRAGMA user_version").Scan(&currentVersion); err != nil {
		return err
	}

	if currentVersion >= schemaVersion {
		return nil
	}

	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS leave_requests (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		student_id TEXT NOT NULL,
		student_name TEXT NOT NULL,
		hostel_name TEXT NOT NULL,
		room_number TEXT NOT NULL,
		reason TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		contact_details TEXT NOT NULL,
		status TEXT NOT NULL,
		applied_date TEXT NOT NULL,
		reviewed_by TEXT,
		reviewed_date TEXT,
		comments TEXT,
		created_at_ms INTEGER NOT NULL,
		updated_at_ms INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leave_student ON leave_requests(student_id);
	CREATE INDEX IF NOT EXISTS idx_leave_status ON leave_requests(status);
	`
	if _, err := tx.Exec(schema); err != nil {
		return err
	}

	if currentVersion < 2 {
		if _, err := tx.Exec("ALTER TABLE leave_requests ADD COLUMN parent_gate INTEGER NOT NULL DEFAULT 0"); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SqliteStore) PutRequest(ctx context.Context, rec *model.LeaveRequest) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM leave_requests WHERE id = ?", rec.ID).Scan(&exists)
	if err == nil {
		return ErrDuplicateID
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	res, err := tx.ExecContext(ctx, `
	INSERT INTO leave_requests (
		id, student_id, student_name, hostel_name, room_number, reason,
		start_date, end_date, contact_details, status, applied_date,
		reviewed_by, reviewed_date, comments, parent_gate, created_at_ms, updated_at_ms
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.StudentID, rec.StudentName, rec.HostelName, rec.RoomNumber, rec.Reason,
		string(rec.StartDate), string(rec.EndDate), rec.ContactDetails, string(rec.Status), string(rec.AppliedDate),
		nullString(rec.ReviewedBy), nullString(string(rec.ReviewedDate)), nullString(rec.Comments), boolToInt(rec.ParentGate),
		s2ms(rec.CreatedAtUnix), s2ms(rec.UpdatedAtUnix),
	)
	if err != nil {
		return err
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	rec.Seq = seq
	return nil
}

func (s *SqliteStore) GetRequest(ctx context.Context, id string) (*model.LeaveRequest, error) {
	return scanRequest(s.DB.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM leave_requests WHERE id = ?", id))
}

func (s *SqliteStore) UpdateRequest(ctx context.Context, id string, fn func(*model.LeaveRequest) error) (*model.LeaveRequest, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	rec, err := scanRequest(tx.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM leave_requests WHERE id = ?", id))
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}

	before := rec.Clone()
	if err := fn(rec); err != nil {
		return nil, err
	}
	if err := checkImmutable(before, rec); err != nil {
		return nil, err
	}

	// The status guard makes concurrent writers from other processes lose
	// instead of overwriting a transition they never observed.
	res, err := tx.ExecContext(ctx, `
		UPDATE leave_requests SET
			student_name = ?, hostel_name = ?, room_number = ?, reason = ?,
			start_date = ?, end_date = ?, contact_details = ?, status = ?,
			reviewed_by = ?, reviewed_date = ?, comments = ?, parent_gate = ?, updated_at_ms = ?
		WHERE id = ? AND status = ?`,
		rec.StudentName, rec.HostelName, rec.RoomNumber, rec.Reason,
		string(rec.StartDate), string(rec.EndDate), rec.ContactDetails, string(rec.Status),
		nullString(rec.ReviewedBy), nullString(string(rec.ReviewedDate)), nullString(rec.Comments), boolToInt(rec.ParentGate),
		s2ms(rec.UpdatedAtUnix),
		rec.ID, string(before.Status),
	)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("leave store: concurrent update of %s", id)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *SqliteStore) ListRequests(ctx context.Context) ([]*model.LeaveRequest, error) {
	return s.QueryRequests(ctx, RequestFilter{})
}

func (s *SqliteStore) QueryRequests(ctx context.Context, filter RequestFilter) ([]*model.LeaveRequest, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.StudentID != "" {
		clauses = append(clauses, "student_id = ?")
		args = append(args, filter.StudentID)
	}
	if len(filter.Statuses) > 0 {
		marks := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			marks[i] = "?"
			args = append(args, string(st))
		}
		clauses = append(clauses, "status IN ("+strings.Join(marks, ", ")+")")
	}

	query := "SELECT " + selectColumns + " FROM leave_requests"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY seq ASC"

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*model.LeaveRequest
	for rows.Next() {
		rec, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*model.LeaveRequest, error) {
	var (
		rec                                 model.LeaveRequest
		startDate, endDate, status, applied string
		reviewedBy, reviewedDate, comments  sql.NullString
		parentGate                          int
		createdMs, updatedMs                int64
	)
	err := row.Scan(
		&rec.Seq, &rec.ID, &rec.StudentID, &rec.StudentName, &rec.HostelName, &rec.RoomNumber, &rec.Reason,
		&startDate, &endDate, &rec.ContactDetails, &status, &applied,
		&reviewedBy, &reviewedDate, &comments, &parentGate, &createdMs, &updatedMs,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.StartDate = model.Date(startDate)
	rec.EndDate = model.Date(endDate)
	rec.Status = model.Status(status)
	rec.AppliedDate = model.Date(applied)
	rec.ReviewedBy = reviewedBy.String
	rec.ReviewedDate = model.Date(reviewedDate.String)
	rec.Comments = comments.String
	rec.ParentGate = parentGate != 0
	rec.CreatedAtUnix = createdMs / 1000
	rec.UpdatedAtUnix = updatedMs / 1000
	return &rec, nil
}

func s2ms(unix int64) int64 { return unix * 1000 }

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
