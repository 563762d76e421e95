package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hijjiri/echo-form/internal/config"
	"github.com/hijjiri/echo-form/internal/server"
	"github.com/hijjiri/echo-form/internal/telemetry"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ---- Config 読み込み（ロガーの前に debug を決めるため一度 Nop で読む）----
	cfg, err := config.Load(zap.NewNop())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 2
	}

	// ---- Logger ----
	logger, err := telemetry.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	// warn を出すためにもう一度読む
	cfg, _ = config.Load(logger)

	logger.Info("loaded config",
		zap.String("http_addr", cfg.Server.HTTPAddr),
		zap.String("grpc_addr", cfg.Server.GRPCAddr),
		zap.String("metrics_addr", cfg.Server.MetricsAddr),
		zap.String("echo_prefix", cfg.Server.Prefix()),
		zap.Strings("cors_allow_origins", cfg.Server.CORSAllowOrigins),
		zap.Duration("grpc_request_timeout", cfg.Server.GRPCRequestTimeout),
		zap.Float64("rate_limit_rps", cfg.Server.RateLimitRPS),
		zap.Int("rate_limit_burst", cfg.Server.RateLimitBurst),
		zap.Bool("traces_stdout", cfg.TracesStdout),
	)

	// ---- Tracing ----
	_, shutdownTracing, err := telemetry.SetupTracing(cfg.TracesStdout)
	if err != nil {
		logger.Error("failed to setup tracing", zap.Error(err))
		return 1
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn("failed to shutdown tracer provider", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg.Server, logger, telemetry.NewMetrics())
	if err := srv.Run(ctx); err != nil {
		logger.Error("server exited with error", zap.Error(err))
		return 1
	}
	return 0
}
