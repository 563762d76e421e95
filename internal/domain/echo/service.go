package echo

import "context"

// Service は echo サービスへのポート。
// 失敗時は ErrTransport / ErrHTTP / ErrParse のいずれかに errors.Is で一致するエラーを返す。
type Service interface {
	Echo(ctx context.Context, message string) (string, error)
}

// ServiceFunc は関数を Service として扱うためのアダプタ。
type ServiceFunc func(ctx context.Context, message string) (string, error)

func (f ServiceFunc) Echo(ctx context.Context, message string) (string, error) {
	return f(ctx, message)
}
