// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command leavectl is the operator tool for a leavegate data directory.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	xglog "github.com/ManuGH/leavegate/internal/log"
)

var version = "v0.1.0"

func main() {
	xglog.Configure(xglog.Config{Level: "warn", Service: "leavectl", Version: version, Output: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
