// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ManuGH/leavegate/internal/domain/leave/model"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type backendFactory func(t *testing.T) StateStore

func backends() map[string]backendFactory {
	return map[string]backendFactory{
		BackendMemory: func(t *testing.T) StateStore { return NewMemoryStore() },
		BackendSqlite: func(t *testing.T) StateStore {
			s, err := NewSqliteStore(filepath.Join(t.TempDir(), "leave.sqlite"))
			require.NoError(t, err)
			return s
		},
		BackendBadger: func(t *testing.T) StateStore {
			s, err := OpenInMemoryBadgerStore()
			require.NoError(t, err)
			return s
		},
		"instrumented": func(t *testing.T) StateStore { return NewInstrumentedStore(NewMemoryStore(), "memory") },
	}
}

func sampleRequest(id, student string, applied model.Date) *model.LeaveRequest {
	return &model.LeaveRequest{
		ID:             id,
		StudentID:      student,
		StudentName:    "John Doe",
		HostelName:     "Krishna Hostel",
		RoomNumber:     "A-201",
		Reason:         "Family function",
		StartDate:      "2025-05-01",
		EndDate:        "2025-05-03",
		ContactDetails: "+91 98765 43210",
		Status:         model.StatusPending,
		AppliedDate:    applied,
		CreatedAtUnix:  1746000000,
		UpdatedAtUnix:  1746000000,
	}
}

func TestStateStore_Contract(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("put get roundtrip", func(t *testing.T) {
				s := open(t)
				defer s.Close()

				in := sampleRequest("r1", "1", "2025-04-20")
				require.NoError(t, s.PutRequest(ctx, in))
				require.Greater(t, in.Seq, int64(0))

				got, err := s.GetRequest(ctx, "r1")
				require.NoError(t, err)
				require.NotNil(t, got)
				if diff := cmp.Diff(in, got); diff != "" {
					t.Fatalf("roundtrip mismatch (-want +got):\n%s", diff)
				}
			})

			t.Run("missing returns nil nil", func(t *testing.T) {
				s := open(t)
				defer s.Close()
				got, err := s.GetRequest(ctx, "nope")
				require.NoError(t, err)
				require.Nil(t, got)

				_, err = s.UpdateRequest(ctx, "nope", func(*model.LeaveRequest) error { return nil })
				require.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("duplicate id rejected", func(t *testing.T) {
				s := open(t)
				defer s.Close()
				require.NoError(t, s.PutRequest(ctx, sampleRequest("dup", "1", "2025-04-20")))
				err := s.PutRequest(ctx, sampleRequest("dup", "2", "2025-04-21"))
				require.ErrorIs(t, err, ErrDuplicateID)

				got, err := s.GetRequest(ctx, "dup")
				require.NoError(t, err)
				require.Equal(t, "1", got.StudentID)
			})

			t.Run("update applies and aborts", func(t *testing.T) {
				s := open(t)
				defer s.Close()
				require.NoError(t, s.PutRequest(ctx, sampleRequest("u1", "1", "2025-04-20")))

				updated, err := s.UpdateRequest(ctx, "u1", func(r *model.LeaveRequest) error {
					r.Status = model.StatusApproved
					r.ReviewedBy = "Dr. Sarah Wilson"
					r.ReviewedDate = "2025-04-21"
					r.Comments = "Approved"
					return nil
				})
				require.NoError(t, err)
				require.Equal(t, model.StatusApproved, updated.Status)

				boom := errors.New("boom")
				_, err = s.UpdateRequest(ctx, "u1", func(r *model.LeaveRequest) error {
					r.Status = model.StatusRejected
					return boom
				})
				require.ErrorIs(t, err, boom)

				got, err := s.GetRequest(ctx, "u1")
				require.NoError(t, err)
				require.Equal(t, model.StatusApproved, got.Status)
				require.Equal(t, "Dr. Sarah Wilson", got.ReviewedBy)
			})

			t.Run("immutable fields guarded", func(t *testing.T) {
				s := open(t)
				defer s.Close()
				require.NoError(t, s.PutRequest(ctx, sampleRequest("i1", "1", "2025-04-20")))
				_, err := s.UpdateRequest(ctx, "i1", func(r *model.LeaveRequest) error {
					r.AppliedDate = "2030-01-01"
					return nil
				})
				require.ErrorIs(t, err, ErrImmutableField)
			})

			t.Run("list keeps insertion order and filters", func(t *testing.T) {
				s := open(t)
				defer s.Close()
				ids := []string{"zeta", "alpha", "mike", "bravo"}
				for i, id := range ids {
					student := "1"
					if i%2 == 1 {
						student = "2"
					}
					require.NoError(t, s.PutRequest(ctx, sampleRequest(id, student, "2025-04-20")))
				}
				_, err := s.UpdateRequest(ctx, "mike", func(r *model.LeaveRequest) error {
					r.Status = model.StatusRejected
					r.ReviewedBy = "w"
					r.ReviewedDate = "2025-04-21"
					return nil
				})
				require.NoError(t, err)

				all, err := s.ListRequests(ctx)
				require.NoError(t, err)
				require.Equal(t, ids, idsOf(all))

				own, err := s.QueryRequests(ctx, RequestFilter{StudentID: "1"})
				require.NoError(t, err)
				require.Equal(t, []string{"zeta", "mike"}, idsOf(own))

				pending, err := s.QueryRequests(ctx, RequestFilter{StudentID: "1", Statuses: []model.Status{model.StatusPending}})
				require.NoError(t, err)
				require.Equal(t, []string{"zeta"}, idsOf(pending))
			})

			t.Run("concurrent updates serialize", func(t *testing.T) {
				s := open(t)
				defer s.Close()
				require.NoError(t, s.PutRequest(ctx, sampleRequest("c1", "1", "2025-04-20")))

				var (
					wg      sync.WaitGroup
					mu      sync.Mutex
					winners int
				)
				for i := 0; i < 8; i++ {
					wg.Add(1)
					go func(i int) {
						defer wg.Done()
						_, err := s.UpdateRequest(ctx, "c1", func(r *model.LeaveRequest) error {
							if r.Status != model.StatusPending {
								return fmt.Errorf("already %s", r.Status)
							}
							r.Status = model.StatusApproved
							r.ReviewedBy = fmt.Sprintf("w%d", i)
							r.ReviewedDate = "2025-04-21"
							return nil
						})
						if err == nil {
							mu.Lock()
							winners++
							mu.Unlock()
						}
					}(i)
				}
				wg.Wait()
				require.Equal(t, 1, winners)
			})
		})
	}
}

func TestOpenStateStore(t *testing.T) {
	dir := t.TempDir()

	s, err := OpenStateStore(BackendSqlite, filepath.Join(dir, "nested", "leave.sqlite"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenStateStore(BackendBadger, filepath.Join(dir, "badger"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenStateStore(BackendMemory, "")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = OpenStateStore("bolt", "")
	require.ErrorContains(t, err, "unknown store backend")
}

func TestSqliteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "leave.sqlite")

	s, err := NewSqliteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.PutRequest(ctx, sampleRequest("p1", "1", "2025-04-20")))
	require.NoError(t, s.Close())

	s, err = NewSqliteStore(path)
	require.NoError(t, err)
	defer s.Close()

	var version int
	require.NoError(t, s.DB.QueryRow("PRAGMA user_version").Scan(&version))
	require.Equal(t, schemaVersion, version)

	got, err := s.GetRequest(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "Family function", got.Reason)

	// Seq keeps growing after reopen.
	next := sampleRequest("p2", "1", "2025-04-20")
	require.NoError(t, s.PutRequest(ctx, next))
	require.Greater(t, next.Seq, got.Seq)
}

func idsOf(list []*model.LeaveRequest) []string {
	out := make([]string, len(list))
	for i, r := range list {
		out[i] = r.ID
	}
	return out
}
