// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"errors"
	"time"

	"github.com/ManuGH/leavegate/internal/domain/leave/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storeOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leavegate_store_ops_total",
			Help: "Total store operations",
		},
		[]string{"backend", "op", "result"}, // result=success/error
	)
	storeLat = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leavegate_store_op_seconds",
			Help:    "Store operation latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "op"},
	)
)

// instrumentedStore wraps any StateStore to capture metrics.
type instrumentedStore struct {
	inner   StateStore
	backend string
}

func NewInstrumentedStore(inner StateStore, backend string) StateStore {
	return &instrumentedStore{inner: inner, backend: backend}
}

func (i *instrumentedStore) observe(op string, start time.Time, err error) {
	dur := time.Since(start).Seconds()
	res := "success"
	if err != nil {
		res = "error"
	}
	storeOps.WithLabelValues(i.backend, op, res).Inc()
	storeLat.WithLabelValues(i.backend, op).Observe(dur)
}

func (i *instrumentedStore) PutRequest(ctx context.Context, rec *model.LeaveRequest) (err error) {
	start := time.Now()
	defer func() { i.observe("put_request", start, err) }()
	return i.inner.PutRequest(ctx, rec)
}

func (i *instrumentedStore) GetRequest(ctx context.Context, id string) (rec *model.LeaveRequest, err error) {
	start := time.Now()
	defer func() { i.observe("get_request", start, err) }()
	return i.inner.GetRequest(ctx, id)
}

func (i *instrumentedStore) UpdateRequest(ctx context.Context, id string, fn func(*model.LeaveRequest) error) (rec *model.LeaveRequest, err error) {
	start := time.Now()
	defer func() { i.observe("update_request", start, err) }()
	return i.inner.UpdateRequest(ctx, id, fn)
}

func (i *instrumentedStore) ListRequests(ctx context.Context) (list []*model.LeaveRequest, err error) {
	start := time.Now()
	defer func() { i.observe("list_requests", start, err) }()
	return i.inner.ListRequests(ctx)
}

func (i *instrumentedStore) QueryRequests(ctx context.Context, filter RequestFilter) (list []*model.LeaveRequest, err error) {
	start := time.Now()
	defer func() { i.observe("query_requests", start, err) }()
	return i.inner.QueryRequests(ctx, filter)
}

func (i *instrumentedStore) Ping(ctx context.Context) error {
	if p, ok := i.inner.(Pinger); ok {
		return p.Ping(ctx)
	}
	return errors.New("store: ping not supported")
}

func (i *instrumentedStore) Close() error {
	return i.inner.Close()
}
