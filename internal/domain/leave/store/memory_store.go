// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"sync"

	"github.com/ManuGH/leavegate/internal/domain/leave/model"
)

// MemoryStore is an in-memory StateStore intended for tests and local iteration.
// Not durable; not suitable for production.
type MemoryStore struct {
	mu sync.RWMutex

	requests map[string]*model.LeaveRequest
	order    []string
	seq      int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		requests: make(map[string]*model.LeaveRequest),
	}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

func (m *MemoryStore) PutRequest(ctx context.Context, rec *model.LeaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.requests[rec.ID]; exists {
		return ErrDuplicateID
	}
	m.seq++
	rec.Seq = m.seq
	m.requests[rec.ID] = rec.Clone()
	m.order = append(m.order, rec.ID)
	return nil
}

func (m *MemoryStore) GetRequest(ctx context.Context, id string) (*model.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.requests[id]
	if !ok {
		return nil, nil
	}
	return rec.Clone(), nil
}

func (m *MemoryStore) UpdateRequest(ctx context.Context, id string, fn func(*model.LeaveRequest) error) (*model.LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	// Work on a copy so a failing fn leaves the stored record untouched.
	cpy := rec.Clone()
	if err := fn(cpy); err != nil {
		return nil, err
	}
	if err := checkImmutable(rec, cpy); err != nil {
		return nil, err
	}
	m.requests[id] = cpy
	return cpy.Clone(), nil
}

func (m *MemoryStore) ListRequests(ctx context.Context) ([]*model.LeaveRequest, error) {
	return m.QueryRequests(ctx, RequestFilter{})
}

func (m *MemoryStore) QueryRequests(ctx context.Context, filter RequestFilter) ([]*model.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.LeaveRequest, 0, len(m.order))
	for _, id := range m.order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec := m.requests[id]
		if filter.matches(rec) {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}
