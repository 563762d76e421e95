package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// 設定ファイルのパスを指す環境変数
const EnvConfigPath = "ECHO_CONFIG"

// Transport は client / form が使う EchoService の種類。
type Transport string

const (
	TransportHTTP Transport = "http"
	TransportGRPC Transport = "grpc"
)

//----------------------
// Config struct
//----------------------

type ServerConfig struct {
	HTTPAddr           string        `yaml:"httpAddr"`
	GRPCAddr           string        `yaml:"grpcAddr"`
	MetricsAddr        string        `yaml:"metricsAddr"`
	EchoPrefix         *string       `yaml:"echoPrefix"`
	CORSAllowOrigins   []string      `yaml:"corsAllowOrigins"`
	GRPCRequestTimeout time.Duration `yaml:"grpcRequestTimeout"`
	ShutdownTimeout    time.Duration `yaml:"shutdownTimeout"`
	RateLimitRPS       float64       `yaml:"rateLimitRPS"`
	RateLimitBurst     int           `yaml:"rateLimitBurst"`
}

type ClientConfig struct {
	Transport  Transport     `yaml:"transport"`
	ServiceURL string        `yaml:"serviceURL"`
	GRPCTarget string        `yaml:"grpcTarget"`
	Timeout    time.Duration `yaml:"timeout"`
}

type Config struct {
	Server       ServerConfig `yaml:"server"`
	Client       ClientConfig `yaml:"client"`
	Debug        bool         `yaml:"debug"`
	TracesStdout bool         `yaml:"tracesStdout"`
}

// Prefix は EchoPrefix を値で返す（未設定なら既定値）。
func (s ServerConfig) Prefix() string {
	if s.EchoPrefix == nil {
		return defaultPrefix
	}
	return *s.EchoPrefix
}

const defaultPrefix = "Api says: "

// Default is the configuration used when neither a file nor env vars set a value.
func Default() Config {
	return Config{
		Server: ServerConfig{
			HTTPAddr:           ":8000",
			GRPCAddr:           ":50051",
			MetricsAddr:        ":9464",
			CORSAllowOrigins:   []string{"*"},
			GRPCRequestTimeout: 3 * time.Second,
			ShutdownTimeout:    10 * time.Second,
			RateLimitRPS:       30,
			RateLimitBurst:     60,
		},
		Client: ClientConfig{
			Transport:  TransportHTTP,
			ServiceURL: "http://localhost:8000",
			GRPCTarget: "localhost:50051",
			// 0 はトランスポート任せ（タイムアウト無し）
			Timeout: 0,
		},
	}
}

// Load は 既定値 → YAML ファイル（ECHO_CONFIG、指定時のみ）→ 環境変数 の順で読み込む。
// 数値や duration が不正な環境変数は warn して無視する。
func Load(logger *zap.Logger) (Config, error) {
	return load(logger, os.LookupEnv, os.ReadFile)
}

type lookupFunc func(string) (string, bool)
type readFileFunc func(string) ([]byte, error)

func load(logger *zap.Logger, lookupEnv lookupFunc, readFile readFileFunc) (Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	getenv := func(key string) string {
		v, _ := lookupEnv(key)
		return v
	}

	cfg := Default()

	if path := strings.TrimSpace(getenv(EnvConfigPath)); path != "" {
		data, err := readFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := mergeYAML(&cfg, data); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg, logger, lookupEnv)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// mergeYAML はファイルに書かれた項目だけを上書きする。
func mergeYAML(cfg *Config, data []byte) error {
	return yaml.Unmarshal(data, cfg)
}

func applyEnv(cfg *Config, logger *zap.Logger, lookupEnv lookupFunc) {
	env := envReader{lookup: lookupEnv, logger: logger}
	getenv := env.get

	env.str("HTTP_ADDR", &cfg.Server.HTTPAddr)
	env.str("GRPC_ADDR", &cfg.Server.GRPCAddr)
	env.str("METRICS_ADDR", &cfg.Server.MetricsAddr)
	// ECHO_PREFIX= （空）は「接頭辞無し」として扱う
	if v, ok := lookupEnv("ECHO_PREFIX"); ok {
		cfg.Server.EchoPrefix = &v
	}
	if v := strings.TrimSpace(getenv("CORS_ALLOW_ORIGINS")); v != "" {
		cfg.Server.CORSAllowOrigins = splitList(v)
	}
	env.duration("GRPC_REQUEST_TIMEOUT", &cfg.Server.GRPCRequestTimeout)
	env.duration("SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	env.float("RATE_LIMIT_RPS", &cfg.Server.RateLimitRPS)
	env.int("RATE_LIMIT_BURST", &cfg.Server.RateLimitBurst)

	if v := strings.TrimSpace(getenv("ECHO_TRANSPORT")); v != "" {
		cfg.Client.Transport = Transport(strings.ToLower(v))
	}
	env.str("ECHO_SERVICE_URL", &cfg.Client.ServiceURL)
	env.str("ECHO_GRPC_TARGET", &cfg.Client.GRPCTarget)
	env.duration("ECHO_CLIENT_TIMEOUT", &cfg.Client.Timeout)

	env.bool("DEBUG", &cfg.Debug)
	if strings.EqualFold(strings.TrimSpace(getenv("LOG_LEVEL")), "debug") {
		cfg.Debug = true
	}
	env.bool("OTEL_TRACES_STDOUT", &cfg.TracesStdout)
}

// Validate は起動できない設定だけを弾く。
func (c Config) Validate() error {
	switch c.Client.Transport {
	case TransportHTTP, TransportGRPC:
	default:
		return fmt.Errorf("invalid ECHO_TRANSPORT %q (expected http or grpc)", c.Client.Transport)
	}
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("http address must not be empty")
	}
	if c.Server.GRPCAddr == "" {
		return fmt.Errorf("grpc address must not be empty")
	}
	return nil
}

//----------------------
// env helpers
//----------------------

type envReader struct {
	lookup lookupFunc
	logger *zap.Logger
}

func (e envReader) get(key string) string {
	v, _ := e.lookup(key)
	return v
}

func (e envReader) str(key string, dst *string) {
	if v := strings.TrimSpace(e.get(key)); v != "" {
		*dst = v
	}
}

func (e envReader) duration(key string, dst *time.Duration) {
	raw := strings.TrimSpace(e.get(key))
	if raw == "" {
		return
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		// 起動失敗にせず、warn して既定値のまま
		e.logger.Warn("invalid duration env, keep current value",
			zap.String("key", key),
			zap.String("raw", raw),
			zap.Duration("value", *dst),
			zap.Error(err),
		)
		return
	}
	*dst = d
}

func (e envReader) float(key string, dst *float64) {
	raw := strings.TrimSpace(e.get(key))
	if raw == "" {
		return
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		e.logger.Warn("invalid number env, keep current value", zap.String("key", key), zap.String("raw", raw))
		return
	}
	*dst = v
}

func (e envReader) int(key string, dst *int) {
	raw := strings.TrimSpace(e.get(key))
	if raw == "" {
		return
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		e.logger.Warn("invalid integer env, keep current value", zap.String("key", key), zap.String("raw", raw))
		return
	}
	*dst = v
}

func (e envReader) bool(key string, dst *bool) {
	raw := strings.TrimSpace(e.get(key))
	if raw == "" {
		return
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		e.logger.Warn("invalid bool env, keep current value", zap.String("key", key), zap.String("raw", raw))
		return
	}
	*dst = v
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
