package grpcecho

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	echov1 "github.com/hijjiri/echo-form/api/echo/v1"
	"github.com/hijjiri/echo-form/internal/domain/echo"
)

// DefaultTarget は cmd/server の gRPC listen アドレス。
const DefaultTarget = "localhost:50051"

// Client は gRPC 経由の echo.Service 実装。
type Client struct {
	rpc    echov1.EchoServiceClient
	logger *zap.Logger
}

var _ echo.Service = (*Client)(nil)

// New は既存のコネクションから Client を作る。
func New(cc grpc.ClientConnInterface, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		rpc:    echov1.NewEchoServiceClient(cc),
		logger: logger,
	}
}

// Dial は insecure + otelgrpc のコネクションを作る。接続は遅延で張られる。
func Dial(target string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	if target == "" {
		target = DefaultTarget
	}
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}
	conn, err := grpc.NewClient(target, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client for %s: %w", target, err)
	}
	return conn, nil
}

func (c *Client) Echo(ctx context.Context, message string) (string, error) {
	resp, err := c.rpc.Echo(ctx, wrapperspb.String(message))
	if err != nil {
		c.logger.Debug("echo rpc failed", zap.Error(err))
		return "", classify(err)
	}
	if resp == nil {
		return "", echo.Parse(errors.New("empty echo response"))
	}
	return resp.GetValue(), nil
}

// classify は gRPC の status を echo のエラー分類に寄せる。
func classify(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return echo.Transport(err)
	}

	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return echo.Transport(errors.New(st.Message()))
	default:
		return &echo.HTTPStatusError{StatusCode: httpStatusFromCode(st.Code())}
	}
}

// grpc-gateway と同じ対応表（使うものだけ）
func httpStatusFromCode(code codes.Code) int {
	switch code {
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists, codes.Aborted:
		return http.StatusConflict
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Unimplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
