// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// Backend names accepted by OpenStateStore.
const (
	BackendMemory = "memory"
	BackendSqlite = "sqlite"
	BackendBadger = "badger"
)

// OpenStateStore creates a StateStore based on the backend configuration.
// Durable backends create the parent directory of path if needed.
func OpenStateStore(backend, path string) (StateStore, error) {
	if backend == "" {
		backend = BackendSqlite
	}

	switch backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendSqlite:
		if err := ensureDir(filepath.Dir(path)); err != nil {
			return nil, err
		}
		return NewSqliteStore(path)
	case BackendBadger:
		if err := ensureDir(path); err != nil {
			return nil, err
		}
		return OpenBadgerStore(path)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", backend)
	}
}

func ensureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create store dir %s: %w", dir, err)
	}
	return nil
}
