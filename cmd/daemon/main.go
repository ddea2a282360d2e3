// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ManuGH/leavegate/internal/audit"
	"github.com/ManuGH/leavegate/internal/config"
	"github.com/ManuGH/leavegate/internal/daemon"
	xglog "github.com/ManuGH/leavegate/internal/log"
	"github.com/ManuGH/leavegate/internal/metrics"
	"github.com/ManuGH/leavegate/internal/telemetry"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			os.Exit(runConfigCLI(os.Args[2:]))
		case "storage":
			os.Exit(runStorageCLI(os.Args[2:]))
		case "healthcheck":
			os.Exit(runHealthcheckCLI(os.Args[2:]))
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	envFile := flag.String("env-file", ".env", "dotenv file loaded before the environment is read")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	xglog.Configure(xglog.Config{Level: "info", Service: "leavegate", Version: version})
	logger := xglog.WithComponent("daemon")

	if err := config.LoadDotEnv(*envFile); err != nil {
		logger.Fatal().Err(err).Str("event", "config.dotenv_failed").Msg("failed to load env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	effectiveConfigPath := strings.TrimSpace(*configPath)
	if effectiveConfigPath == "" {
		effectiveConfigPath = resolveDefaultConfigPath()
	}
	loader := config.NewLoader(effectiveConfigPath, version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", effectiveConfigPath).
			Msg("failed to load configuration")
	}

	xglog.Reconfigure(xglog.Config{Level: cfg.Log.Level, Service: cfg.Log.Service, Version: cfg.Version})
	logger = xglog.WithComponent("daemon")
	if effectiveConfigPath != "" {
		logger.Info().Str("event", "config.loaded").Str("source", "file").Str("path", effectiveConfigPath).Msg("loaded configuration from file")
	} else {
		logger.Info().Str("event", "config.loaded").Str("source", "env+defaults").Msg("loaded configuration from environment and defaults")
	}

	if err := run(ctx, cfg, loader, logger); err != nil {
		logger.Fatal().Err(err).Str("event", "daemon.failed").Msg("daemon failed")
	}
	logger.Info().Msg("server exiting")
}

// run serves until ctx is cancelled.
func run(ctx context.Context, cfg config.AppConfig, loader *config.Loader, logger zerolog.Logger) error {
	var tp *telemetry.Provider
	if cfg.Telemetry.Enabled {
		var err error
		tp, err = telemetry.NewProvider(ctx, telemetry.Config{
			Enabled:        true,
			ServiceName:    cfg.Log.Service,
			ServiceVersion: cfg.Version,
			Environment:    cfg.Telemetry.Environment,
			ExporterType:   cfg.Telemetry.Exporter,
			Endpoint:       cfg.Telemetry.Endpoint,
			SamplingRate:   cfg.Telemetry.SamplingRate,
		})
		if err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
	}

	a, err := buildApp(ctx, cfg)
	if err != nil {
		if tp != nil {
			_ = tp.Shutdown(context.WithoutCancel(ctx))
		}
		return err
	}

	serverCfg := daemon.DefaultServerConfig(cfg.API.Listen)
	serverCfg.ShutdownTimeout = cfg.API.ShutdownTimeout
	mgr, err := daemon.NewManager(serverCfg, a.server.Handler(), logger)
	if err != nil {
		_ = a.close(context.WithoutCancel(ctx))
		return err
	}
	if tp != nil {
		mgr.RegisterShutdownHook("telemetry_shutdown", tp.Shutdown)
	}
	a.registerHooks(mgr)

	logger.Info().
		Str("event", "startup").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Str("addr", cfg.API.Listen).
		Str("store", cfg.Store.Backend).
		Str("otp_backend", cfg.OTP.Backend).
		Str("session_backend", cfg.Session.Backend).
		Str("parent_gate", cfg.Policy.ParentGate.Mode).
		Msg("starting leavegate")

	holder := config.NewConfigHolder(cfg, loader)
	if err := holder.StartWatcher(ctx); err != nil {
		logger.Warn().Err(err).Msg("config watcher unavailable, reload with SIGHUP")
	}
	reloads := make(chan config.AppConfig, 1)
	holder.RegisterListener(reloads)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return mgr.Start(gctx) })
	g.Go(func() error {
		watchReloads(gctx, holder, reloads, a)
		return nil
	})
	err = g.Wait()
	if done := holder.Done(); done != nil {
		<-done
	}
	return err
}

// watchReloads applies hot-reloadable settings and reloads on SIGHUP.
func watchReloads(ctx context.Context, holder *config.ConfigHolder, reloads <-chan config.AppConfig, a *app) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	logger := xglog.WithComponent("config")

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := holder.Reload(ctx); err != nil {
				metrics.RecordConfigReload(false)
				a.audit.ConfigReload(audit.ResultFailure, map[string]string{"error": err.Error()})
			}
		case cfg := <-reloads:
			if err := a.applyConfig(cfg); err != nil {
				logger.Error().Err(err).Str("event", "config.apply_failed").Msg("reloaded configuration not applied")
				metrics.RecordConfigReload(false)
				a.audit.ConfigReload(audit.ResultFailure, map[string]string{"error": err.Error()})
				continue
			}
			metrics.RecordConfigReload(true)
			a.audit.ConfigReload(audit.ResultSuccess, map[string]string{
				"log_level":   cfg.Log.Level,
				"parent_gate": cfg.Policy.ParentGate.Mode,
			})
		}
	}
}

// resolveDefaultConfigPath returns ${LEAVEGATE_DATA_DIR}/config.yaml when it exists.
func resolveDefaultConfigPath() string {
	dataDir := strings.TrimSpace(os.Getenv(config.EnvPrefix + "DATA_DIR"))
	if dataDir == "" {
		dataDir = "data"
	}
	autoPath := filepath.Join(dataDir, "config.yaml")
	if _, err := os.Stat(autoPath); err == nil {
		return autoPath
	}
	return ""
}
