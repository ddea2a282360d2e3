// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ManuGH/leavegate/internal/config"
	"github.com/ManuGH/leavegate/internal/domain/leave/store"
	"github.com/ManuGH/leavegate/internal/persistence/sqlite"
)

func runStorageCLI(args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printStorageUsage(os.Stdout)
		return 0
	}

	switch args[0] {
	case "verify":
		return runStorageVerify(args[1:], os.Stdout, os.Stderr)
	default:
		fmt.Fprintf(os.Stderr, "Unknown subcommand: %s\n\n", args[0])
		printStorageUsage(os.Stderr)
		return 2
	}
}

func printStorageUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Usage:")
	_, _ = fmt.Fprintln(w, "  leavegate storage verify [--path PATH | --config FILE] [--mode quick|full]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "Flags:")
	_, _ = fmt.Fprintln(w, "  --path string    Path to the SQLite leave database")
	_, _ = fmt.Fprintln(w, "  --config string  Resolve the database from this config (default: env + defaults)")
	_, _ = fmt.Fprintln(w, "  --mode string    Verification mode: quick (default) or full")
}

func runStorageVerify(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("leavegate storage verify", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var path, configPath, mode string
	fs.StringVar(&path, "path", "", "Path to the SQLite database file")
	fs.StringVar(&configPath, "config", "", "path to config file (YAML)")
	fs.StringVar(&mode, "mode", "quick", "Verification mode: quick or full")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	checkMode, err := sqlite.ParseCheckMode(mode)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	if path == "" {
		resolved, err := storePathFromConfig(configPath)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		path = resolved
	}
	if _, err := os.Stat(path); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	return doVerify(context.Background(), path, checkMode, stdout, stderr)
}

// storePathFromConfig resolves the sqlite database the daemon would open.
func storePathFromConfig(configPath string) (string, error) {
	cfg, err := config.NewLoader(strings.TrimSpace(configPath), version).Load()
	if err != nil {
		return "", err
	}
	if cfg.Store.Backend != store.BackendSqlite {
		return "", errors.New("integrity checks need the sqlite store backend, configured: " + cfg.Store.Backend)
	}
	return cfg.Store.Path, nil
}

func doVerify(ctx context.Context, path string, mode sqlite.CheckMode, stdout, stderr io.Writer) int {
	_, _ = fmt.Fprintf(stderr, "Verifying integrity of %s (mode: %s)...\n", path, mode)

	rep, err := sqlite.Check(ctx, path, mode)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Verification could not run: %v\n", err)
		return 1
	}
	if !rep.Healthy() {
		_, _ = fmt.Fprintln(stderr, "CORRUPTION DETECTED!")
		for _, f := range rep.Findings {
			_, _ = fmt.Fprintf(stderr, "  - %s\n", f)
		}
		return 1
	}

	_, _ = fmt.Fprintln(stdout, "Integrity verified: ok")
	return 0
}
