// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"github.com/ManuGH/leavegate/internal/domain/leave/model"
	"github.com/dgraph-io/badger/v4"
)

const (
	badgerRequestPrefix = "leave:"
	badgerSeqKey        = "seq:leave"
)

// BadgerStore keeps each request as JSON under "leave:<id>".
// Seq comes from a badger sequence, so gaps after restarts are expected.
type BadgerStore struct {
	db  *badger.DB
	seq *badger.Sequence
}

func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	return openBadger(opts)
}

// OpenInMemoryBadgerStore is used by tests.
func OpenInMemoryBadgerStore() (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	return openBadger(opts)
}

func openBadger(opts badger.Options) (*BadgerStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	seq, err := db.GetSequence([]byte(badgerSeqKey), 64)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BadgerStore{db: db, seq: seq}, nil
}

func (s *BadgerStore) Close() error {
	if err := s.seq.Release(); err != nil {
		_ = s.db.Close()
		return err
	}
	return s.db.Close()
}

func (s *BadgerStore) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger: closed")
	}
	return nil
}

func (s *BadgerStore) PutRequest(ctx context.Context, rec *model.LeaveRequest) error {
	key := []byte(badgerRequestPrefix + rec.ID)
	next, err := s.seq.Next()
	if err != nil {
		return err
	}
	cpy := rec.Clone()
	// Sequence starts at 0; keep Seq positive like the other backends.
	cpy.Seq = int64(next) + 1
	buf, err := json.Marshal(cpy)
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return ErrDuplicateID
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, buf)
	})
	if err != nil {
		return err
	}
	rec.Seq = cpy.Seq
	return nil
}

func (s *BadgerStore) GetRequest(ctx context.Context, id string) (*model.LeaveRequest, error) {
	key := []byte(badgerRequestPrefix + id)
	var out model.LeaveRequest
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (s *BadgerStore) UpdateRequest(ctx context.Context, id string, fn func(*model.LeaveRequest) error) (*model.LeaveRequest, error) {
	key := []byte(badgerRequestPrefix + id)
	var out model.LeaveRequest
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		}); err != nil {
			return err
		}
		before := out
		if err := fn(&out); err != nil {
			return err
		}
		if err := checkImmutable(&before, &out); err != nil {
			return err
		}
		buf, err := json.Marshal(out)
		if err != nil {
			return err
		}
		return txn.Set(key, buf)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *BadgerStore) ListRequests(ctx context.Context) ([]*model.LeaveRequest, error) {
	return s.QueryRequests(ctx, RequestFilter{})
}

func (s *BadgerStore) QueryRequests(ctx context.Context, filter RequestFilter) ([]*model.LeaveRequest, error) {
	var list []*model.LeaveRequest
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(badgerRequestPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rec model.LeaveRequest
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			if filter.matches(&rec) {
				list = append(list, &rec)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Keys iterate in id order; callers expect insertion order.
	sort.Slice(list, func(i, j int) bool { return list[i].Seq < list[j].Seq })
	return list, nil
}
