// Package main 快照归档 worker：消费 snapshot_saved 通知，把热存储中的快照镜像到 PostgreSQL
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"z-novel-lore-api/internal/config"
	"z-novel-lore-api/internal/wire"
	"z-novel-lore-api/pkg/logger"
	"z-novel-lore-api/pkg/tracer"
)

// 死信流告警阈值
const dlqAlertThreshold = 100

// Version 版本信息，构建时注入
var Version = "dev"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(
		cfg.Observability.Logging.Level,
		cfg.Observability.Logging.Format,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "starting sync-worker", "version", Version, "env", cfg.App.Env)

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName:    cfg.App.Name + "-sync-worker",
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
		_ = shutdown(context.Background())
	}()

	worker, cleanup, err := wire.InitializeWorker(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize worker", err)
	}
	defer cleanup()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Consumer.Run(gctx)
	})
	g.Go(func() error {
		worker.Consumer.MonitorDLQ(gctx, dlqAlertThreshold)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		worker.Consumer.Stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error(ctx, "sync-worker exited with error", err)
		return
	}
	logger.Info(ctx, "sync-worker exited")
}
