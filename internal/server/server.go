// internal/server/server.go
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	echov1 "github.com/hijjiri/echo-form/api/echo/v1"
	"github.com/hijjiri/echo-form/internal/config"
	grpcadapter "github.com/hijjiri/echo-form/internal/interface/grpc"
	httpadapter "github.com/hijjiri/echo-form/internal/interface/http"
	"github.com/hijjiri/echo-form/internal/ratelimit"
	"github.com/hijjiri/echo-form/internal/telemetry"
	echo_usecase "github.com/hijjiri/echo-form/internal/usecase/echo"
)

// Server は echo サービスの HTTP / gRPC / metrics リスナーをまとめて動かす。
type Server struct {
	cfg     config.ServerConfig
	logger  *zap.Logger
	metrics *telemetry.Metrics

	httpSrv    *http.Server
	grpcSrv    *grpc.Server
	metricsSrv *http.Server
	health     *health.Server
}

func New(cfg config.ServerConfig, logger *zap.Logger, metrics *telemetry.Metrics) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = telemetry.NewMetrics()
	}

	uc := echo_usecase.New(logger, cfg.Prefix())

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}
	s.httpSrv = s.buildHTTP(uc)
	s.grpcSrv, s.health = s.buildGRPC(uc)
	s.metricsSrv = &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           s.metricsMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// ---- HTTP (/echo, /test) ----
func (s *Server) buildHTTP(uc echo_usecase.Usecase) *http.Server {
	limiter := ratelimit.New(s.cfg.RateLimitRPS, s.cfg.RateLimitBurst, 10*time.Minute)

	handler := httpadapter.Chain(
		httpadapter.NewHandler(uc, s.logger).Routes(),
		httpadapter.Recovery(s.logger),
		httpadapter.Logging(s.logger, s.metrics),
		httpadapter.CORS(s.cfg.CORSAllowOrigins),
		httpadapter.RateLimit(limiter),
	)

	return &http.Server{
		Addr:         s.cfg.HTTPAddr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
}

// ---- gRPC Server + Interceptor ----
func (s *Server) buildGRPC(uc echo_usecase.Usecase) (*grpc.Server, *health.Server) {
	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(grpcadapter.UnaryInterceptors(s.logger, s.cfg.GRPCRequestTimeout)...),
		grpc.ChainStreamInterceptor(grpcadapter.StreamInterceptors(s.logger)...),
	)

	// ---- Health & Reflection ----
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	reflection.Register(grpcServer)

	echov1.RegisterEchoServiceServer(grpcServer, grpcadapter.NewEchoHandler(uc))
	healthSrv.SetServingStatus(echov1.ServiceName, healthpb.HealthCheckResponse_SERVING)

	return grpcServer, healthSrv
}

func (s *Server) metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metrics.Handler())
	return mux
}

// HTTPHandler はテスト用に HTTP ハンドラを公開する。
func (s *Server) HTTPHandler() http.Handler {
	return s.httpSrv.Handler
}

// Run は 3 つのリスナーを開き、ctx が終わるか、どれかが落ちるまでブロックする。
func (s *Server) Run(ctx context.Context) error {
	httpLis, err := net.Listen("tcp", s.cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("failed to listen http %s: %w", s.cfg.HTTPAddr, err)
	}
	grpcLis, err := net.Listen("tcp", s.cfg.GRPCAddr)
	if err != nil {
		_ = httpLis.Close()
		return fmt.Errorf("failed to listen grpc %s: %w", s.cfg.GRPCAddr, err)
	}
	var metricsLis net.Listener
	if s.cfg.MetricsAddr != "" {
		metricsLis, err = net.Listen("tcp", s.cfg.MetricsAddr)
		if err != nil {
			_ = httpLis.Close()
			_ = grpcLis.Close()
			return fmt.Errorf("failed to listen metrics %s: %w", s.cfg.MetricsAddr, err)
		}
	}

	return s.Serve(ctx, httpLis, grpcLis, metricsLis)
}

// Serve は渡されたリスナーで動かす。metricsLis は nil でもよい。
func (s *Server) Serve(ctx context.Context, httpLis, grpcLis, metricsLis net.Listener) error {
	errCh := make(chan error, 3)
	var wg sync.WaitGroup

	serve := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- fmt.Errorf("%s server: %w", name, err)
			}
		}()
	}

	s.logger.Info("HTTP server is starting", zap.String("addr", httpLis.Addr().String()))
	serve("http", func() error { return s.httpSrv.Serve(httpLis) })

	s.logger.Info("gRPC server is starting", zap.String("addr", grpcLis.Addr().String()))
	serve("grpc", func() error { return s.grpcSrv.Serve(grpcLis) })

	if metricsLis != nil {
		s.logger.Info("metrics server started", zap.String("addr", metricsLis.Addr().String()))
		serve("metrics", func() error { return s.metricsSrv.Serve(metricsLis) })
	}

	var runErr error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown requested")
	case runErr = <-errCh:
		s.logger.Error("server exited with error", zap.Error(runErr))
	}

	s.shutdown()
	wg.Wait()
	return runErr
}

func (s *Server) shutdown() {
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.health.Shutdown()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Warn("http shutdown", zap.Error(err))
	}
	if err := s.metricsSrv.Shutdown(ctx); err != nil {
		s.logger.Warn("metrics shutdown", zap.Error(err))
	}

	// GracefulStop が終わらなければ Stop で打ち切る
	done := make(chan struct{})
	go func() {
		s.grpcSrv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("grpc graceful stop timed out, forcing stop")
		s.grpcSrv.Stop()
		<-done
	}

	s.logger.Info("servers stopped")
}
