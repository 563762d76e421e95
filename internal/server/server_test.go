package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	reflectionpb "google.golang.org/grpc/reflection/grpc_reflection_v1"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"

	echov1 "github.com/hijjiri/echo-form/api/echo/v1"
	"github.com/hijjiri/echo-form/internal/config"
	"github.com/hijjiri/echo-form/internal/infrastructure/grpcecho"
	"github.com/hijjiri/echo-form/internal/infrastructure/httpecho"
	"github.com/hijjiri/echo-form/internal/telemetry"
	"github.com/hijjiri/echo-form/internal/usecase/submission"
)

func listen(t *testing.T) net.Listener {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	return lis
}

func startServer(t *testing.T, cfg config.ServerConfig) (httpURL, grpcTarget string, metricsURL string) {
	t.Helper()

	httpLis, grpcLis, metricsLis := listen(t), listen(t), listen(t)
	srv := New(cfg, zap.NewNop(), telemetry.NewMetrics())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, httpLis, grpcLis, metricsLis) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Serve returned error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("server did not stop in time")
		}
	})

	return "http://" + httpLis.Addr().String(), grpcLis.Addr().String(), "http://" + metricsLis.Addr().String()
}

func testConfig() config.ServerConfig {
	cfg := config.Default().Server
	cfg.ShutdownTimeout = 2 * time.Second
	return cfg
}

func strPtr(s string) *string { return &s }

func TestServer_SubmitOverHTTP(t *testing.T) {
	t.Parallel()

	httpURL, _, metricsURL := startServer(t, testConfig())

	ctrl := submission.New(httpecho.New(httpURL))
	got, err := ctrl.Submit(context.Background(), "ping")
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	want := submission.FormState{Response: strPtr("Api says: ping")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}

	res, err := http.Get(metricsURL + "/metrics")
	if err != nil {
		t.Fatalf("failed to scrape metrics: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Errorf("expected metrics 200, got %d", res.StatusCode)
	}
}

func TestServer_SubmitOverGRPC(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	prefix := ""
	cfg.EchoPrefix = &prefix
	_, grpcTarget, _ := startServer(t, cfg)

	conn, err := grpcecho.Dial(grpcTarget)
	if err != nil {
		t.Fatalf("Dial returned error: %v", err)
	}
	defer conn.Close()

	ctrl := submission.New(grpcecho.New(conn, nil))
	got, _ := ctrl.Submit(context.Background(), "hello")

	if diff := cmp.Diff(submission.FormState{Response: strPtr("hello")}, got); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}

	hc := healthpb.NewHealthClient(conn)
	hres, err := hc.Check(context.Background(), &healthpb.HealthCheckRequest{Service: echov1.ServiceName})
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	if hres.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("expected SERVING, got %v", hres.GetStatus())
	}
}

func TestServer_ReflectionDescribesEchoService(t *testing.T) {
	t.Parallel()

	_, grpcTarget, _ := startServer(t, testConfig())

	conn, err := grpcecho.Dial(grpcTarget)
	if err != nil {
		t.Fatalf("Dial returned error: %v", err)
	}
	defer conn.Close()

	stream, err := reflectionpb.NewServerReflectionClient(conn).ServerReflectionInfo(context.Background())
	if err != nil {
		t.Fatalf("ServerReflectionInfo returned error: %v", err)
	}
	err = stream.Send(&reflectionpb.ServerReflectionRequest{
		MessageRequest: &reflectionpb.ServerReflectionRequest_FileContainingSymbol{
			FileContainingSymbol: echov1.ServiceName,
		},
	})
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	res, err := stream.Recv()
	if err != nil {
		t.Fatalf("Recv returned error: %v", err)
	}
	_ = stream.CloseSend()

	if e := res.GetErrorResponse(); e != nil {
		t.Fatalf("reflection error: %s", e.GetErrorMessage())
	}
	files := res.GetFileDescriptorResponse().GetFileDescriptorProto()
	if len(files) == 0 {
		t.Fatal("expected at least one file descriptor")
	}
	var fdp descriptorpb.FileDescriptorProto
	if err := proto.Unmarshal(files[0], &fdp); err != nil {
		t.Fatalf("unmarshal descriptor: %v", err)
	}
	if fdp.GetName() != echov1.ProtoFile {
		t.Errorf("expected %q, got %q", echov1.ProtoFile, fdp.GetName())
	}
}

func TestServer_HTTPHandlerCORS(t *testing.T) {
	t.Parallel()

	srv := New(testConfig(), zap.NewNop(), nil)

	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"message":"x"}`))
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	srv.HTTPHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("unexpected Allow-Origin %q", got)
	}
}

func TestServer_HTTPMetricsPathLabelIsBounded(t *testing.T) {
	t.Parallel()

	metrics := telemetry.NewMetrics()
	srv := New(testConfig(), zap.NewNop(), metrics)

	for i := 0; i < 200; i++ {
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/scan-%d", i), nil)
		srv.HTTPHandler().ServeHTTP(httptest.NewRecorder(), req)
	}

	families, err := metrics.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	paths := map[string]struct{}{}
	for _, mf := range families {
		if mf.GetName() != "echo_http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "path" {
					paths[lp.GetValue()] = struct{}{}
				}
			}
		}
	}
	if diff := cmp.Diff(map[string]struct{}{"other": {}}, paths); diff != "" {
		t.Errorf("path labels mismatch (-want +got):\n%s", diff)
	}
}

func TestServer_RunFailsOnBusyPort(t *testing.T) {
	t.Parallel()

	busy := listen(t)
	defer busy.Close()

	cfg := testConfig()
	cfg.HTTPAddr = busy.Addr().String()
	cfg.GRPCAddr = "127.0.0.1:0"
	cfg.MetricsAddr = ""

	if err := New(cfg, zap.NewNop(), nil).Run(context.Background()); err == nil {
		t.Fatal("expected listen error, got nil")
	}
}
