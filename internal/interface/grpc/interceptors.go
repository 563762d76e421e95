package grpcadapter

import (
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// UnaryInterceptors はサーバに積む unary interceptor を外側から順に返す。
// request_id を先に付けるので recovery / logging のログにも載る。
func UnaryInterceptors(logger *zap.Logger, timeout time.Duration) []grpc.UnaryServerInterceptor {
	return []grpc.UnaryServerInterceptor{
		NewRequestIDUnaryInterceptor(),
		NewRecoveryUnaryInterceptor(logger),
		NewTimeoutUnaryInterceptor(logger, timeout),
		NewLoggingUnaryInterceptor(logger),
	}
}

func StreamInterceptors(logger *zap.Logger) []grpc.StreamServerInterceptor {
	return []grpc.StreamServerInterceptor{
		NewRecoveryStreamInterceptor(logger),
		NewLoggingStreamInterceptor(logger),
	}
}
