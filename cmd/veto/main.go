package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/veto/internal/app"
	"github.com/danielpatrickdp/veto/internal/config"
	"github.com/danielpatrickdp/veto/internal/logging"
	"github.com/danielpatrickdp/veto/internal/rpc"
	"github.com/danielpatrickdp/veto/internal/tools"
)

var version = "dev"

// #region main
func main() {
	configPath := flag.String("config", envOr("VETO_CONFIG", "veto.yaml"), "path to YAML or JSON config")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "veto: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Development: cfg.Log.Development})
	if err != nil {
		return err
	}
	defer logger.Sync()

	a, err := app.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.GRPC.Addr != "" {
		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.GRPC.Addr, err)
		}
		gs := rpc.NewGRPCServer(a.Tools, logger.Named("rpc"))
		logger.Info("grpc listening", zap.String("addr", lis.Addr().String()))
		g.Go(func() error { return rpc.Serve(gctx, gs, lis) })
	}

	// stdin closing ends the session and takes the gRPC listener down with it
	g.Go(func() error {
		defer cancel()
		stdio := server.NewStdioServer(tools.NewMCPServer(a.Tools, version))
		err := stdio.Listen(gctx, os.Stdin, os.Stdout)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	logger.Info("serving mcp over stdio", zap.String("version", version), zap.String("db", cfg.DBPath))
	return g.Wait()
}

// #endregion main

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
