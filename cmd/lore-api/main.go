// Package main 世界设定服务入口
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"z-novel-lore-api/internal/config"
	"z-novel-lore-api/internal/wire"
	apperrors "z-novel-lore-api/pkg/errors"
	"z-novel-lore-api/pkg/logger"
	"z-novel-lore-api/pkg/tracer"
)

// Version 版本信息，构建时注入
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.App.Version == "" {
		cfg.App.Version = Version
	}

	logger.Init(
		cfg.Observability.Logging.Level,
		cfg.Observability.Logging.Format,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, logger.WorldIDKey, cfg.Persistence.WorldID)

	logger.Info(ctx, "starting lore-api",
		"version", Version,
		"build_time", BuildTime,
		"env", cfg.App.Env,
	)

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName:    cfg.App.Name,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Env,
		Endpoint:       cfg.Observability.Tracing.Endpoint,
		SampleRate:     cfg.Observability.Tracing.SampleRate,
		Enabled:        cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error(ctx, "failed to shutdown tracer", err)
		}
	}()

	app, cleanup, err := wire.InitializeApp(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize app", err)
	}
	defer cleanup()

	if app.Postgres != nil && cfg.Database.Postgres.AutoMigrate {
		if err := app.Postgres.Migrate(ctx); err != nil {
			logger.Fatal(ctx, "failed to migrate archive schema", err)
		}
	}

	if cfg.Persistence.RestoreOnStart {
		snap, err := app.Service.LoadSnapshot(ctx)
		switch {
		case err == nil:
			logger.Info(ctx, "registry restored", "revision", snap.Revision, "entities", len(snap.Entities))
		case errors.Is(err, apperrors.ErrSnapshotNotFound):
			logger.Info(ctx, "no snapshot to restore, starting empty")
		default:
			logger.Warn(ctx, "snapshot restore failed, starting empty", "error", err.Error())
		}
	}

	srv := &http.Server{
		Addr:         cfg.Server.HTTP.Addr(),
		Handler:      app.Router.Engine(),
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
		IdleTimeout:  cfg.Server.HTTP.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		app.Service.RunPublisher(gctx)
		return nil
	})
	g.Go(func() error {
		app.Service.RunAutosave(gctx, cfg.Persistence.AutosaveInterval)
		return nil
	})
	g.Go(func() error {
		logger.Info(gctx, "http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info(ctx, "shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error(ctx, "server exited with error", err)
		return
	}
	logger.Info(ctx, "server exited")
}
