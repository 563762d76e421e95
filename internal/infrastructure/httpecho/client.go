package httpecho

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/hijjiri/echo-form/internal/domain/echo"
	"github.com/hijjiri/echo-form/internal/telemetry"
)

// DefaultBaseURL は元のフロントエンドが叩いていた URL。
const DefaultBaseURL = "http://localhost:8000"

// 1MB を超える返答は読まない
const maxResponseBytes = 1 << 20

// Client は POST /echo を叩く echo.Service 実装。
type Client struct {
	baseURL string
	hc      *http.Client
	logger  *zap.Logger
	tracer  trace.Tracer
}

var _ echo.Service = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient はタイムアウト等を持つ *http.Client を差し込む。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.hc = hc
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// New は baseURL（例: http://localhost:8000）向けのクライアントを作る。
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      http.DefaultClient,
		logger:  zap.NewNop(),
		tracer:  otel.Tracer(telemetry.TracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// echoBody は返答のデコード用。message が無いことを検出するためにポインタにする。
type echoBody struct {
	Message *string `json:"message"`
}

// Echo sends message to POST {baseURL}/echo and returns the echoed message.
func (c *Client) Echo(ctx context.Context, message string) (string, error) {
	endpoint := c.baseURL + "/echo"

	ctx, span := c.tracer.Start(ctx, "echo.http.Echo",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", http.MethodPost),
			attribute.String("url.full", endpoint),
		),
	)
	defer span.End()

	reply, err := c.do(ctx, endpoint, message, span)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "echo request failed")
		c.logger.Debug("echo request failed", zap.String("url", endpoint), zap.Error(err))
		return "", err
	}

	c.logger.Debug("echo request succeeded", zap.String("url", endpoint))
	return reply, nil
}

func (c *Client) do(ctx context.Context, endpoint, message string, span trace.Span) (string, error) {
	payload, err := json.Marshal(echo.Request{Message: message})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	res, err := c.hc.Do(req)
	if err != nil {
		return "", echo.Transport(err)
	}
	defer res.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", res.StatusCode))

	// エラー時のボディは見ない
	if res.StatusCode < 200 || res.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, maxResponseBytes))
		return "", &echo.HTTPStatusError{StatusCode: res.StatusCode}
	}

	var body echoBody
	dec := json.NewDecoder(io.LimitReader(res.Body, maxResponseBytes))
	if err := dec.Decode(&body); err != nil {
		// ボディ読み取り中の切断はトランスポート側
		var ue interface{ Timeout() bool }
		if errors.As(err, &ue) {
			return "", echo.Transport(err)
		}
		return "", echo.Parse(err)
	}
	// 1 つ目の値の後ろに何か残っていれば壊れたボディとみなす
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("unexpected data after JSON value")
		}
		return "", echo.Parse(err)
	}
	if body.Message == nil {
		return "", echo.Parse(errors.New(`response has no "message" field`))
	}

	return *body.Message, nil
}
