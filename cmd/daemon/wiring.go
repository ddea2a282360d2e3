// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/leavegate/internal/api"
	"github.com/ManuGH/leavegate/internal/audit"
	"github.com/ManuGH/leavegate/internal/cache"
	"github.com/ManuGH/leavegate/internal/config"
	"github.com/ManuGH/leavegate/internal/daemon"
	"github.com/ManuGH/leavegate/internal/domain/leave/manager"
	"github.com/ManuGH/leavegate/internal/domain/leave/store"
	"github.com/ManuGH/leavegate/internal/health"
	"github.com/ManuGH/leavegate/internal/identity"
	xglog "github.com/ManuGH/leavegate/internal/log"
	"github.com/ManuGH/leavegate/internal/otp"
	"github.com/ManuGH/leavegate/internal/session"
	"github.com/redis/go-redis/v9"
)

const (
	sessionRedisPrefix = "leavegate:session:"
	otpRedisPrefix     = "leavegate:otp:"
)

// closer is a named resource released at shutdown.
type closer struct {
	name string
	fn   daemon.ShutdownHook
}

// app is the wired service graph.
type app struct {
	engine  *manager.Engine
	server  *api.Server
	health  *health.Manager
	audit   *audit.Logger
	closers []closer
}

// gatePolicy maps the configured parent gate onto the engine policy.
func gatePolicy(c config.ParentGateConfig) manager.GatePolicy {
	return manager.GatePolicy{Mode: manager.GateMode(c.Mode), MinDays: c.MinDays}
}

// buildApp wires every component from cfg. On error, resources opened so far
// are closed.
func buildApp(ctx context.Context, cfg config.AppConfig) (a *app, err error) {
	a = &app{
		health: health.NewManager(cfg.Version),
		audit:  audit.NewLogger(),
	}
	defer func() {
		if err != nil {
			a.close(context.WithoutCancel(ctx))
			a = nil
		}
	}()
	logger := xglog.WithComponent("daemon")

	inner, err := store.OpenStateStore(cfg.Store.Backend, cfg.Store.Path)
	if err != nil {
		return a, fmt.Errorf("open store: %w", err)
	}
	st := store.NewInstrumentedStore(inner, cfg.Store.Backend)
	a.closers = append(a.closers, closer{"store_close", func(context.Context) error { return st.Close() }})
	if p, ok := st.(store.Pinger); ok {
		a.health.RegisterChecker(health.PingChecker{CheckName: "store", Ping: p.Ping, Critical: true})
	}

	var rdb *redis.Client
	if cfg.UsesRedis() {
		rdb, err = cache.NewRedisClient(ctx, cache.RedisConfig{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			return a, err
		}
		a.closers = append(a.closers, closer{"redis_close", func(context.Context) error { return rdb.Close() }})
		a.health.RegisterChecker(health.PingChecker{
			CheckName: "redis",
			Ping:      func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			Critical:  true,
		})
	}

	var sessionCache cache.Cache
	if cfg.Session.Backend == config.BackendRedis {
		sessionCache = cache.NewRedisCache(rdb, sessionRedisPrefix, xglog.WithComponent("session"))
	} else {
		sessionCache = cache.NewMemoryCache(time.Minute)
	}
	a.closers = append(a.closers, closer{"session_cache_close", func(context.Context) error { return sessionCache.Close() }})
	sessions := session.NewManager(sessionCache, cfg.Session.TTL)

	otpOpts := otp.Options{TTL: cfg.OTP.TTL, MaxAttempts: cfg.OTP.MaxAttempts, DevCode: cfg.OTP.DevCode}
	var otpSvc otp.Service
	if cfg.OTP.Backend == config.BackendRedis {
		otpSvc, err = otp.NewRedisService(rdb, otpRedisPrefix, otpOpts)
	} else {
		otpSvc, err = otp.NewMemoryService(otpOpts)
	}
	if err != nil {
		return a, fmt.Errorf("otp service: %w", err)
	}
	if cfg.OTP.DevCode != "" {
		logger.Warn().
			Str("security", "weak").
			Msg("OTP dev code configured: every challenge uses the same code")
	}

	var dir *identity.Directory
	if cfg.Identity.UsersFile != "" {
		dir, err = identity.LoadDirectory(cfg.Identity.UsersFile)
	} else {
		logger.Warn().Msg("no users file configured, serving the demo accounts")
		dir, err = identity.DemoDirectory()
	}
	if err != nil {
		return a, fmt.Errorf("identity: %w", err)
	}

	engineLogger := xglog.WithComponent("leave")
	a.engine, err = manager.New(manager.Deps{
		Store: st,
		OTP:   otpSvc,
		Notifier: otp.LogNotifier{
			Logger:     xglog.WithComponent("otp"),
			RevealCode: cfg.OTP.DevCode != "",
		},
		Parents: dir,
		Audit:   a.audit,
		Policy:  gatePolicy(cfg.Policy.ParentGate),
		Logger:  &engineLogger,
	})
	if err != nil {
		return a, fmt.Errorf("engine: %w", err)
	}

	tracing := ""
	if cfg.Telemetry.Enabled {
		tracing = cfg.Log.Service
	}
	a.server, err = api.New(api.Config{
		AllowedOrigins: cfg.API.AllowedOrigins,
		LoginRateLimit: cfg.API.LoginRateLimit,
		OTPRate:        cfg.API.OTPRate,
		OTPBurst:       cfg.API.OTPBurst,
		CookieSecure:   cfg.Session.CookieSecure,
		TracingService: tracing,
	}, api.Deps{
		Engine:   a.engine,
		Sessions: sessions,
		Identity: dir,
		Audit:    a.audit,
		Health:   a.health,
	})
	if err != nil {
		return a, fmt.Errorf("api: %w", err)
	}
	return a, nil
}

// close releases resources in reverse order of acquisition.
func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", a.closers[i].name, err))
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// registerHooks hands the closers to the daemon manager.
func (a *app) registerHooks(mgr *daemon.Manager) {
	for _, c := range a.closers {
		mgr.RegisterShutdownHook(c.name, c.fn)
	}
	a.closers = nil
}

// applyConfig applies the hot-reloadable settings of a new configuration.
func (a *app) applyConfig(cfg config.AppConfig) error {
	var errs []error
	if err := xglog.SetLevel(cfg.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log level: %w", err))
	}
	if err := a.engine.SetParentGatePolicy(gatePolicy(cfg.Policy.ParentGate)); err != nil {
		errs = append(errs, fmt.Errorf("parent gate: %w", err))
	}
	return errors.Join(errs...)
}
