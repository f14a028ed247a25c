package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"price-stream/src/config"
	"price-stream/src/grpc_control"
	"price-stream/src/logger"
	"price-stream/src/server"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newRunCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to the feed and serve the status and control APIs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runService(cmd.Context(), *configPath)
		},
	}
}

// -----------------------------------------------------------------------------

func runService(parent context.Context, configPath string) error {
	if parent == nil {
		parent = context.Background()
	}

	conf, err := config.NewConfig(configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	appLogger, err := logger.NewLogger(conf.MConfig, conf.Name)
	if err != nil {
		return fmt.Errorf("error creating logger: %w", err)
	}
	defer func() { _ = appLogger.Sync() }()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := setupTracing(ctx, conf, appLogger)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(flushCtx)
	}()

	reg, m := setupMetrics()
	ctrl := setupSession(conf, m, appLogger)

	srv := server.NewStatusServer(conf.MConfig, ctrl, reg, m, appLogger.Named("server"))
	ctrl.SetObserver(srv)

	grpcSrv := grpc_control.NewServer(grpc_control.NewControlService(ctrl, appLogger.Named("grpc")), appLogger.Named("grpc"))
	grpcAddr := fmt.Sprintf("%s:%d", conf.GrpcHost, conf.GrpcPort)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ctrl.Run(gctx) })
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return grpc_control.Serve(gctx, grpcAddr, grpcSrv, appLogger.Named("grpc")) })
	g.Go(func() error {
		if err := ctrl.Start(gctx); err != nil {
			appLogger.Error("Initial start failed: %v", err)
		}
		return nil
	})

	appLogger.Info("%s %s running (status http://%s:%d, grpc %s)", conf.Name, version, conf.Host, conf.Port, grpcAddr)
	if err := g.Wait(); err != nil {
		appLogger.Error("Service stopped with error: %v", err)
		return err
	}
	appLogger.Info("Service stopped")
	return nil
}
