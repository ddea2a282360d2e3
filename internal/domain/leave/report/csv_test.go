// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package report

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/ManuGH/leavegate/internal/domain/leave/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSV_HeaderOnly(t *testing.T) {
	got := string(CSV(nil))
	want := `"Applied Date","Student Name","Hostel","Room","Reason","Start Date","End Date","Status","Reviewed By","Comments"`
	assert.Equal(t, want, got)
}

func TestCSV_QuotesEveryField(t *testing.T) {
	recs := []*model.LeaveRequest{
		{
			AppliedDate: "2025-03-01", StudentName: "John Doe", HostelName: "Krishna Hostel", RoomNumber: "A-201",
			Reason: `Sister's "big day", family, travel`, StartDate: "2025-03-10", EndDate: "2025-03-12",
			Status: model.StatusApproved, ReviewedBy: "Dr. Sarah Wilson", Comments: "Approved",
		},
		{
			AppliedDate: "2025-03-02", StudentName: "John Doe", HostelName: "Krishna Hostel", RoomNumber: "A-201",
			Reason: "Medical\ncheckup", StartDate: "2025-03-04", EndDate: "2025-03-05", Status: model.StatusPending,
		},
	}
	out := string(CSV(recs))

	lines := strings.SplitN(out, "\n", 2)
	require.Len(t, lines, 2)
	assert.False(t, strings.HasSuffix(out, "\n"), "no trailing newline")
	assert.Contains(t, out, `"Sister's ""big day"", family, travel"`)
	assert.Contains(t, out, `"pending","",""`)

	r := csv.NewReader(strings.NewReader(out))
	rows, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for _, row := range rows {
		assert.Len(t, row, len(Header))
	}
	assert.Equal(t, `Sister's "big day", family, travel`, rows[1][4])
	assert.Equal(t, "Medical\ncheckup", rows[2][4])
	assert.Equal(t, "", rows[2][8])
}

func TestWriteCSV_MatchesCSV(t *testing.T) {
	recs := []*model.LeaveRequest{{AppliedDate: "2025-01-01", Status: model.StatusRejected, ReviewedBy: "w", Comments: "Rejected"}}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, recs))
	assert.Equal(t, CSV(recs), buf.Bytes())
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "leave-history-2025-07-04.csv", FileName(time.Date(2025, 7, 4, 18, 0, 0, 0, time.UTC)))
}
