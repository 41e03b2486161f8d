// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/tomtom215/traveal/internal/alert"
	"github.com/tomtom215/traveal/internal/api"
	"github.com/tomtom215/traveal/internal/auth"
	"github.com/tomtom215/traveal/internal/config"
	"github.com/tomtom215/traveal/internal/credential"
	"github.com/tomtom215/traveal/internal/events"
	"github.com/tomtom215/traveal/internal/logging"
	"github.com/tomtom215/traveal/internal/notify"
	"github.com/tomtom215/traveal/internal/route"
	"github.com/tomtom215/traveal/internal/sos"
	"github.com/tomtom215/traveal/internal/store"
	"github.com/tomtom215/traveal/internal/supervisor"
	"github.com/tomtom215/traveal/internal/supervisor/services"
	ws "github.com/tomtom215/traveal/internal/websocket"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
		File: logging.FileConfig{
			Path:       cfg.Logging.FilePath,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
			Compress:   cfg.Logging.Compress,
		},
	})
	defer func() {
		if err := logging.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing log file")
		}
	}()

	logging.Info().
		Str("version", version).
		Str("environment", cfg.Server.Environment).
		Str("store", cfg.Store.Backend).
		Str("auth_mode", cfg.Security.AuthMode).
		Msg("Starting Traveal")

	if err := run(cfg); err != nil {
		logging.Error().Err(err).Msg("Server stopped with error")
		// Deferred log close does not run after os.Exit.
		_ = logging.Close()
		os.Exit(1)
	}
	logging.Info().Msg("Application stopped gracefully")
}

func run(cfg *config.Config) error {
	db, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	hub := ws.NewHub()

	notifyOpts, err := notify.FromConfig(cfg.Notify, hub)
	if err != nil {
		return err
	}
	dispatcher := notify.NewDispatcher(notifyOpts)

	bus := events.NewBus(cfg.Events.BufferSize)
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	hasher := credential.NewHasher(credential.Params{
		Time:       cfg.Credential.Time,
		MemoryKiB:  cfg.Credential.MemoryKiB,
		Threads:    cfg.Credential.Threads,
		KeyLength:  cfg.Credential.KeyLength,
		SaltLength: cfg.Credential.SaltLength,
	})
	scheduler := sos.NewTimerScheduler()

	svc := sos.New(sos.Deps{
		Profiles: db,
		Monitor: route.NewMonitor(db, route.Config{
			DefaultThreshold: cfg.SOS.DefaultThreshold,
			MinThreshold:     cfg.SOS.MinThreshold,
			MaxThreshold:     cfg.SOS.MaxThreshold,
		}),
		Alerts: alert.NewMachine(db, hasher, alert.Config{
			MaxPasswordAttempts: cfg.SOS.MaxPasswordAttempts,
			EscalationTimeout:   cfg.SOS.EscalationTimeout,
		}),
		Hasher:    hasher,
		Notifier:  dispatcher,
		Events:    bus,
		Scheduler: scheduler,
	}, sos.Config{VerifyLatencyFloor: cfg.SOS.VerifyLatencyFloor})

	authMiddleware, err := newAuthMiddleware(&cfg.Security)
	if err != nil {
		return err
	}

	handler := api.NewHandler(svc, hub, cfg.Security.CORSOrigins,
		api.WithVersion(version),
		api.WithTimerCount(scheduler.Pending),
		api.WithHealthChecks(storeCheck{profiles: db}, breakerCheck{dispatcher: dispatcher}),
	)
	router := api.NewRouter(handler, authMiddleware, api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(&cfg.Security)))

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	sweeper, err := store.NewSweeper(db, cfg.SOS.RetentionSchedule, cfg.SOS.RetentionAge)
	if err != nil {
		return err
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return err
	}
	tree.AddDataService(events.NewRecorder(bus, db, hub, events.DefaultRecorderConfig()))
	tree.AddDataService(sweeper)
	tree.AddMessagingService(services.NewPushHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout, svc.Shutdown))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := tree.ServeBackground(ctx)
	<-ctx.Done()
	logging.Info().Msg("Shutdown signal received, stopping services")

	var serveErr error
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			serveErr = err
		}
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, s := range unstopped {
			logging.Warn().Str("service", s.Name).Msg("Service failed to stop within timeout")
		}
	}
	return serveErr
}

func openStore(cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case "badger":
		db, err := store.OpenBadger(store.BadgerConfig{Path: cfg.Path, InMemory: cfg.InMemory})
		if err != nil {
			return nil, err
		}
		logging.Info().Str("path", cfg.Path).Bool("in_memory", cfg.InMemory).Msg("BadgerDB store opened")
		return db, nil
	default:
		logging.Warn().Msg("Using the in-memory store: data is lost on restart")
		return store.NewMemory(), nil
	}
}

func newAuthMiddleware(cfg *config.SecurityConfig) (*auth.Middleware, error) {
	mode, err := auth.ParseAuthMode(cfg.AuthMode)
	if err != nil {
		return nil, err
	}
	if mode == auth.AuthModeNone {
		return auth.NewMiddleware(nil, mode), nil
	}
	jwtManager, err := auth.NewJWTManager(cfg)
	if err != nil {
		return nil, err
	}
	return auth.NewMiddleware(jwtManager, mode), nil
}
