package grpcadapter

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	echov1 "github.com/hijjiri/echo-form/api/echo/v1"
	echo_usecase "github.com/hijjiri/echo-form/internal/usecase/echo"
)

// EchoService の実装
type EchoHandler struct {
	echov1.UnimplementedEchoServiceServer
	uc echo_usecase.Usecase
}

func NewEchoHandler(uc echo_usecase.Usecase) *EchoHandler {
	return &EchoHandler{uc: uc}
}

func (h *EchoHandler) Echo(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	msg, err := h.uc.Echo(ctx, req.GetValue())
	if err != nil {
		return nil, toGRPCError(err)
	}

	return wrapperspb.String(msg), nil
}

// --- error mapper ---
func toGRPCError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request canceled")

	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request timeout")

	default:
		// Internal詳細はログ側にだけ残す（interceptor で）
		return status.Error(codes.Internal, "internal error")
	}
}
