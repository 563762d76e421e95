// internal/usecase/echo/usecase.go
package echo

import (
	"context"

	"go.uber.org/zap"
)

// 元の backend が返していた接頭辞
const DefaultPrefix = "Api says: "

// Echo のユースケースが満たすインターフェース
type Usecase interface {
	Echo(ctx context.Context, msg string) (string, error)
}

type usecase struct {
	logger *zap.Logger
	prefix string
}

// New は prefix 付きで返す usecase を作る。prefix="" なら入力をそのまま返す。
func New(logger *zap.Logger, prefix string) Usecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &usecase{logger: logger, prefix: prefix}
}

func (u *usecase) Echo(ctx context.Context, msg string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	u.logger.Debug("echo usecase called", zap.Int("len", len(msg)))

	return u.prefix + msg, nil
}
