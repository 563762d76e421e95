package echo

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ---- エラー分類（sentinel error） ----

var (
	// 接続拒否・名前解決失敗・トランスポート層のタイムアウトなど。
	ErrTransport = errors.New("transport error")
	// 2xx 以外のステータスが返ってきた。
	ErrHTTP = errors.New("request failed")
	// 2xx だがボディが JSON として読めない、または message が無い。
	ErrParse = errors.New("invalid response body")
)

const (
	// HTTP / Parse エラー時にユーザーへ見せる文言
	MessageRequestFailed = "Request failed"
	// 原因の文字列が取れないときの文言
	MessageUnknown = "Unknown error"
)

// HTTPStatusError は非 2xx ステータスを表す。errors.Is(err, ErrHTTP) が true になる。
type HTTPStatusError struct {
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	text := http.StatusText(e.StatusCode)
	if text == "" {
		return fmt.Sprintf("request failed: status %d", e.StatusCode)
	}
	return fmt.Sprintf("request failed: status %d %s", e.StatusCode, text)
}

func (e *HTTPStatusError) Is(target error) bool {
	return target == ErrHTTP
}

// Transport は cause を ErrTransport として包む。
func Transport(cause error) error {
	if cause == nil {
		return ErrTransport
	}
	return &kindError{kind: ErrTransport, cause: cause}
}

// Parse は cause を ErrParse として包む。
func Parse(cause error) error {
	if cause == nil {
		return ErrParse
	}
	return &kindError{kind: ErrParse, cause: cause}
}

type kindError struct {
	kind  error
	cause error
}

func (e *kindError) Error() string {
	return e.kind.Error() + ": " + e.cause.Error()
}

func (e *kindError) Unwrap() []error {
	return []error{e.kind, e.cause}
}

// UserMessage は err を画面に表示する文字列に変換する。
//   - Transport: 原因のメッセージをそのまま見せる（*url.Error の場合は内側の原因）
//   - HTTP / Parse: "Request failed"
//   - それ以外: err.Error()、空なら "Unknown error"
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrHTTP), errors.Is(err, ErrParse):
		return MessageRequestFailed
	case errors.Is(err, ErrTransport):
		var ke *kindError
		if errors.As(err, &ke) && ke.kind == ErrTransport {
			return causeMessage(ke.cause)
		}
		return MessageUnknown
	default:
		return causeMessage(err)
	}
}

func causeMessage(err error) string {
	var ue *url.Error
	if errors.As(err, &ue) && ue.Err != nil {
		err = ue.Err
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return MessageUnknown
	}
	return msg
}
