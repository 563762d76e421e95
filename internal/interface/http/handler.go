package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	echo_usecase "github.com/hijjiri/echo-form/internal/usecase/echo"
)

// リクエストボディの上限
const maxBodyBytes = 1 << 20

const (
	pathEcho = "/echo"
	pathTest = "/test"

	// 登録外のパスはメトリクス上すべてこれにまとめる
	pathOther = "other"
)

// routeLabel はメトリクスの path ラベルを既知のルートに限定する。
func routeLabel(path string) string {
	switch path {
	case pathEcho, pathTest:
		return path
	default:
		return pathOther
	}
}

// Handler は POST /echo と GET /test を提供する。
type Handler struct {
	uc     echo_usecase.Usecase
	logger *zap.Logger
}

func NewHandler(uc echo_usecase.Usecase, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{uc: uc, logger: logger}
}

// Routes はメソッド付きパターンで登録する。違うメソッドは ServeMux が 405 を返す。
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodPost+" "+pathEcho, h.echo)
	mux.HandleFunc(http.MethodGet+" "+pathTest, h.test)
	return mux
}

type echoRequest struct {
	Message *string `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// --- POST /echo ---
func (h *Handler) echo(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req echoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Detail: "request body too large"})
			return
		}
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: "body must be a JSON object with a string \"message\" field"})
		return
	}
	if req.Message == nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: "field \"message\" is required"})
		return
	}

	msg, err := h.uc.Echo(r.Context(), *req.Message)
	if err != nil {
		// 詳細はログにだけ残す
		h.logger.Error("echo usecase failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}

// --- GET /test ---
func (h *Handler) test(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: "Hello, World!"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
