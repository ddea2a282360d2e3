// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package testutil

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
)

var (
	rootOnce sync.Once
	root     string
	rootErr  error
)

// RepoRoot finds the module root: the nearest go.mod above this file.
// The walk runs once per test binary.
func RepoRoot() (string, error) {
	rootOnce.Do(func() {
		_, file, _, ok := runtime.Caller(0)
		if !ok {
			rootErr = errors.New("testutil: caller unknown")
			return
		}
		for dir := filepath.Dir(file); ; dir = filepath.Dir(dir) {
			if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
				root = dir
				return
			}
			if filepath.Dir(dir) == dir {
				rootErr = errors.New("testutil: no go.mod above " + file)
				return
			}
		}
	})
	return root, rootErr
}

// MustRepoRoot returns the repo root or fails the test.
func MustRepoRoot(t testing.TB) string {
	t.Helper()
	r, err := RepoRoot()
	if err != nil {
		t.Fatalf("repo root: %v", err)
	}
	return r
}

// OpenAPISpecPath is the contract both the router and the capability
// policy are checked against.
func OpenAPISpecPath(t testing.TB) string {
	t.Helper()
	p := filepath.Join(MustRepoRoot(t), "api", "openapi.yaml")
	if _, err := os.Stat(p); err != nil {
		t.Fatalf("openapi contract: %v", err)
	}
	return p
}
