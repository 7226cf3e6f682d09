// Package main provides the combat daemon: it owns the session registry and
// serves it over gRPC.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/cory-johannsen/fieldops/internal/bootstrap"
	"github.com/cory-johannsen/fieldops/internal/combatserver"
	"github.com/cory-johannsen/fieldops/internal/config"
	"github.com/cory-johannsen/fieldops/internal/observability"
	"github.com/cory-johannsen/fieldops/internal/server"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting combat daemon",
		zap.String("grpc_addr", cfg.GRPC.Addr()),
		zap.String("storage", cfg.Storage.Driver),
	)

	storeStart := time.Now()
	store, err := bootstrap.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("opening store", zap.Error(err))
	}
	logger.Info("store ready", zap.Duration("elapsed", time.Since(storeStart)))

	reg, err := bootstrap.NewRegistry(ctx, cfg, store, logger)
	if err != nil {
		logger.Fatal("building session registry", zap.Error(err))
	}

	grpcServer := grpc.NewServer()
	combatserver.Register(grpcServer, combatserver.NewService(reg, logger))

	// Stopped in reverse: grpc, registry, store monitor, then store.
	lifecycle := server.NewLifecycle(logger)

	lifecycle.Add("store", server.NewIdleService(func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing store", zap.Error(err))
		}
	}))

	lifecycle.Add("store-health", bootstrap.NewStoreMonitor(store, nil,
		bootstrap.DefaultHealthInterval, cfg.Storage.WriteTimeout, logger))

	lifecycle.Add("registry", server.NewIdleService(reg.Close))

	lifecycle.Add("grpc", &server.FuncService{
		StartFn: func() error {
			lis, err := net.Listen("tcp", cfg.GRPC.Addr())
			if err != nil {
				return fmt.Errorf("listening on %s: %w", cfg.GRPC.Addr(), err)
			}
			logger.Info("gRPC server listening",
				zap.String("addr", lis.Addr().String()),
			)
			return grpcServer.Serve(lis)
		},
		StopFn: func() {
			// Open WatchSession streams can hold GracefulStop indefinitely.
			done := make(chan struct{})
			go func() {
				grpcServer.GracefulStop()
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(5 * time.Second):
				grpcServer.Stop()
			}
		},
	})

	logger.Info("combat daemon initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("grpc_addr", cfg.GRPC.Addr()),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
