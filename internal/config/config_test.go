package config

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
)

func envMap(m map[string]string) lookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func noFile(string) ([]byte, error) { return nil, os.ErrNotExist }

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := load(zap.NewNop(), envMap(nil), noFile)
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	if cfg.Server.Prefix() != "Api says: " {
		t.Errorf("unexpected default prefix %q", cfg.Server.Prefix())
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Parallel()

	cfg, err := load(zap.NewNop(), envMap(map[string]string{
		"HTTP_ADDR":            ":9000",
		"GRPC_ADDR":            ":6000",
		"ECHO_PREFIX":          "",
		"CORS_ALLOW_ORIGINS":   "http://a.example, http://b.example",
		"GRPC_REQUEST_TIMEOUT": "500ms",
		"RATE_LIMIT_RPS":       "0",
		"ECHO_TRANSPORT":       "GRPC",
		"ECHO_CLIENT_TIMEOUT":  "2s",
		"DEBUG":                "true",
		"OTEL_TRACES_STDOUT":   "1",
	}), noFile)
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}

	if cfg.Server.HTTPAddr != ":9000" || cfg.Server.GRPCAddr != ":6000" {
		t.Errorf("unexpected addrs %q %q", cfg.Server.HTTPAddr, cfg.Server.GRPCAddr)
	}
	if cfg.Server.Prefix() != "" {
		t.Errorf("expected empty prefix, got %q", cfg.Server.Prefix())
	}
	if diff := cmp.Diff([]string{"http://a.example", "http://b.example"}, cfg.Server.CORSAllowOrigins); diff != "" {
		t.Errorf("origins mismatch (-want +got):\n%s", diff)
	}
	if cfg.Server.GRPCRequestTimeout != 500*time.Millisecond {
		t.Errorf("unexpected timeout %v", cfg.Server.GRPCRequestTimeout)
	}
	if cfg.Server.RateLimitRPS != 0 {
		t.Errorf("expected rate limit disabled, got %v", cfg.Server.RateLimitRPS)
	}
	if cfg.Client.Transport != TransportGRPC {
		t.Errorf("expected grpc transport, got %q", cfg.Client.Transport)
	}
	if cfg.Client.Timeout != 2*time.Second {
		t.Errorf("unexpected client timeout %v", cfg.Client.Timeout)
	}
	if !cfg.Debug || !cfg.TracesStdout {
		t.Errorf("expected debug and traces enabled, got %+v", cfg)
	}
}

func TestLoad_InvalidEnvFallsBack(t *testing.T) {
	t.Parallel()

	cfg, err := load(zap.NewNop(), envMap(map[string]string{
		"GRPC_REQUEST_TIMEOUT": "soon",
		"RATE_LIMIT_BURST":     "-3",
		"RATE_LIMIT_RPS":       "fast",
		"DEBUG":                "maybe",
	}), noFile)
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}

	def := Default()
	if cfg.Server.GRPCRequestTimeout != def.Server.GRPCRequestTimeout {
		t.Errorf("expected fallback timeout, got %v", cfg.Server.GRPCRequestTimeout)
	}
	if cfg.Server.RateLimitBurst != def.Server.RateLimitBurst || cfg.Server.RateLimitRPS != def.Server.RateLimitRPS {
		t.Errorf("expected fallback rate limit, got %v/%v", cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	}
	if cfg.Debug {
		t.Error("expected debug=false")
	}
}

func TestLoad_InvalidTransport(t *testing.T) {
	t.Parallel()

	_, err := load(zap.NewNop(), envMap(map[string]string{"ECHO_TRANSPORT": "carrier-pigeon"}), noFile)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestLoad_YAMLFileThenEnv(t *testing.T) {
	t.Parallel()

	yamlDoc := []byte(`
server:
  httpAddr: ":8080"
  echoPrefix: "echo: "
  shutdownTimeout: 3s
  corsAllowOrigins: ["http://localhost:3000"]
client:
  transport: grpc
  serviceURL: "http://echo.internal:8000"
`)
	readFile := func(path string) ([]byte, error) {
		if path != "/etc/echo.yaml" {
			t.Errorf("unexpected path %q", path)
		}
		return yamlDoc, nil
	}

	cfg, err := load(zap.NewNop(), envMap(map[string]string{
		EnvConfigPath: "/etc/echo.yaml",
		"HTTP_ADDR":   ":9999",
	}), readFile)
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}

	if cfg.Server.HTTPAddr != ":9999" {
		t.Errorf("env should win over file, got %q", cfg.Server.HTTPAddr)
	}
	if cfg.Server.Prefix() != "echo: " {
		t.Errorf("unexpected prefix %q", cfg.Server.Prefix())
	}
	if cfg.Server.ShutdownTimeout != 3*time.Second {
		t.Errorf("unexpected shutdown timeout %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Server.GRPCAddr != ":50051" {
		t.Errorf("unspecified field should keep default, got %q", cfg.Server.GRPCAddr)
	}
	if cfg.Client.Transport != TransportGRPC || cfg.Client.ServiceURL != "http://echo.internal:8000" {
		t.Errorf("unexpected client config %+v", cfg.Client)
	}
}

func TestLoad_FileErrors(t *testing.T) {
	t.Parallel()

	_, err := load(zap.NewNop(), envMap(map[string]string{EnvConfigPath: "/missing.yaml"}), noFile)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}

	bad := func(string) ([]byte, error) { return []byte("server: [unclosed"), nil }
	if _, err := load(zap.NewNop(), envMap(map[string]string{EnvConfigPath: "/bad.yaml"}), bad); err == nil {
		t.Error("expected parse error, got nil")
	}
}
