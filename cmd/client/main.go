package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/hijjiri/echo-form/internal/config"
	"github.com/hijjiri/echo-form/internal/domain/echo"
	"github.com/hijjiri/echo-form/internal/infrastructure/grpcecho"
	"github.com/hijjiri/echo-form/internal/infrastructure/httpecho"
	"github.com/hijjiri/echo-form/internal/telemetry"
	"github.com/hijjiri/echo-form/internal/usecase/submission"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load(nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 2
	}

	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	addr := fs.String("addr", "", "echo service address (http base URL or grpc target)")
	transport := fs.String("transport", string(cfg.Client.Transport), "transport: http or grpc")
	msg := fs.String("msg", "", "message to send")
	timeout := fs.Duration("timeout", cfg.Client.Timeout, "request timeout (0 = none)")
	debug := fs.Bool("debug", cfg.Debug, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	// 空の入力は送らない
	if !submission.CanSubmit(*msg) {
		fmt.Fprintln(os.Stderr, "-msg must not be empty")
		fs.Usage()
		return 2
	}

	logger, err := telemetry.NewLogger(*debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	// 不正な env の warn を出すためにロガー付きで読み直す
	if reloaded, err := config.Load(logger); err == nil {
		cfg = reloaded
	}

	// stdout は応答用なので span は stderr に出す
	var traceOut io.Writer
	if cfg.TracesStdout {
		traceOut = os.Stderr
	}
	_, shutdownTracing, err := telemetry.SetupTracingTo(traceOut)
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

	svc, cleanup, err := newService(config.Transport(*transport), *addr, *timeout, cfg.Client, logger)
	if err != nil {
		logger.Error("failed to create echo client", zap.Error(err))
		return 1
	}
	defer cleanup()

	ctx := context.Background()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	ctrl := submission.New(svc, submission.WithLogger(logger))
	state, err := ctrl.Submit(ctx, *msg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	if state.Error != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", *state.Error)
		return 1
	}
	fmt.Println(state.ResponseText())
	return 0
}

func newService(t config.Transport, addr string, timeout time.Duration, cc config.ClientConfig, logger *zap.Logger) (echo.Service, func(), error) {
	switch t {
	case config.TransportHTTP:
		if addr == "" {
			addr = cc.ServiceURL
		}
		hc := &http.Client{Timeout: timeout}
		return httpecho.New(addr, httpecho.WithHTTPClient(hc), httpecho.WithLogger(logger)), func() {}, nil

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
