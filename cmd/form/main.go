package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/hijjiri/echo-form/internal/config"
	"github.com/hijjiri/echo-form/internal/domain/echo"
	"github.com/hijjiri/echo-form/internal/infrastructure/grpcecho"
	"github.com/hijjiri/echo-form/internal/infrastructure/httpecho"
	"github.com/hijjiri/echo-form/internal/telemetry"
	"github.com/hijjiri/echo-form/internal/tui"
	"github.com/hijjiri/echo-form/internal/usecase/submission"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load(zap.NewNop())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 2
	}

	fs := flag.NewFlagSet("form", flag.ContinueOnError)
	transport := fs.String("transport", string(cfg.Client.Transport), "transport: http or grpc")
	addr := fs.String("addr", "", "echo service address (http base URL or grpc target)")
	logPath := fs.String("log", os.Getenv("ECHO_FORM_LOG"), "log file (empty = no logs)")
	tracesPath := fs.String("traces", os.Getenv("ECHO_FORM_TRACES"), "trace file (empty = no traces)")
	metricsAddr := fs.String("metrics-addr", "", "serve /metrics on this address while the form runs (empty = off)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	// TUI なので stdout/stderr には出さない
	logger, err := telemetry.NewFileLogger(*logPath, cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	// warn をログファイルに残すためにもう一度読む
	if reloaded, err := config.Load(logger); err == nil {
		cfg = reloaded
	}

	shutdownTracing, err := setupTracing(*tracesPath, cfg.TracesStdout, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to setup tracing: %v\n", err)
		return 1
	}
	defer shutdownTracing()

	metrics := telemetry.NewMetrics()
	if *metricsAddr != "" {
		stop, err := serveMetrics(*metricsAddr, metrics, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to listen metrics %s: %v\n", *metricsAddr, err)
			return 1
		}
		defer stop()
	}

	svc, cleanup, err := newService(config.Transport(*transport), *addr, cfg.Client, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create echo client: %v\n", err)
		return 2
	}
	defer cleanup()

	ctrl := submission.New(svc,
		submission.WithLogger(logger),
		submission.WithRecorder(metrics),
	)

	prog := tea.NewProgram(tui.New(context.Background(), ctrl))
	if _, err := prog.Run(); err != nil {
		logger.Error("form exited with error", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// setupTracing は span をファイルに書き出す。端末は TUI が使うので stdout には出さない。
func setupTracing(path string, stdoutRequested bool, logger *zap.Logger) (func(), error) {
	var out io.Writer
	var file *os.File
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open trace file: %w", err)
		}
		out, file = f, f
	} else if stdoutRequested {
		logger.Warn("OTEL_TRACES_STDOUT is ignored by the form; use -traces to write spans to a file")
	}

	_, shutdown, err := telemetry.SetupTracingTo(out)
	if err != nil {
		if file != nil {
			_ = file.Close()
		}
		return nil, err
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			logger.Warn("failed to shutdown tracer provider", zap.Error(err))
		}
		if file != nil {
			_ = file.Close()
		}
	}, nil
}

func serveMetrics(addr string, metrics *telemetry.Metrics, logger *zap.Logger) (func(), error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

func newService(t config.Transport, addr string, cc config.ClientConfig, logger *zap.Logger) (echo.Service, func(), error) {
	switch t {
	case config.TransportHTTP:
		if addr == "" {
			addr = cc.ServiceURL
		}
		svc := httpecho.New(addr,
			httpecho.WithHTTPClient(&http.Client{Timeout: cc.Timeout}),
			httpecho.WithLogger(logger),
		)
		return svc, func() {}, nil

	case config.TransportGRPC:
		if addr == "" {
			addr = cc.GRPCTarget
		}
		conn, err := grpcecho.Dial(addr)
		if err != nil {
			return nil, nil, err
		}
		return grpcecho.New(conn, logger), func() { _ = conn.Close() }, nil

	default:
		return nil, nil, errors.New("unknown transport " + string(t))
	}
}
