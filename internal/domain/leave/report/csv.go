// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package report renders leave history exports.
package report

import (
	"bytes"
	"io"
	"strings"
	"time"

	"github.com/ManuGH/leavegate/internal/domain/leave/model"
)

// Header is the fixed first row of every export.
var Header = []string{
	"Applied Date", "Student Name", "Hostel", "Room", "Reason",
	"Start Date", "End Date", "Status", "Reviewed By", "Comments",
}

// ContentType is served with CSV downloads.
const ContentType = "text/csv; charset=utf-8"

// FileName returns the export file name for the given day.
func FileName(now time.Time) string {
	return "leave-history-" + string(model.DateOf(now)) + ".csv"
}

// Row flattens one request in header order. Absent optional fields are empty.
func Row(r *model.LeaveRequest) []string {
	return []string{
		string(r.AppliedDate),
		r.StudentName,
		r.HostelName,
		r.RoomNumber,
		r.Reason,
		string(r.StartDate),
		string(r.EndDate),
		string(r.Status),
		r.ReviewedBy,
		r.Comments,
	}
}

// WriteCSV writes the header and one record per request. Every field is
// quoted and records are separated by a bare "\n" with no trailing newline.
func WriteCSV(w io.Writer, recs []*model.LeaveRequest) error {
	if err := writeRecord(w, Header); err != nil {
		return err
	}
	for _, r := range recs {
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
		if err := writeRecord(w, Row(r)); err != nil {
			return err
		}
	}
	return nil
}

// CSV renders recs to a byte slice.
func CSV(recs []*model.LeaveRequest) []byte {
	var buf bytes.Buffer
	_ = WriteCSV(&buf, recs) // bytes.Buffer writes do not fail
	return buf.Bytes()
}

func writeRecord(w io.Writer, fields []string) error {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	_, err := io.WriteString(w, b.String())
	return err
}
