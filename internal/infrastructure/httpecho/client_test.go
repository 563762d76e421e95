package httpecho

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hijjiri/echo-form/internal/domain/echo"
)

func TestClient_Echo_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/echo" {
			t.Errorf("expected path /echo, got %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected Content-Type application/json, got %q", ct)
		}

		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		if req["message"] != "ping" {
			t.Errorf("expected message=ping, got %q", req["message"])
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"message":"ping"}`)
	}))
	defer srv.Close()

	c := New(srv.URL + "/")

	got, err := c.Echo(context.Background(), "ping")
	if err != nil {
		t.Fatalf("Echo returned error: %v", err)
	}
	if got != "ping" {
		t.Errorf("expected %q, got %q", "ping", got)
	}
}

func TestClient_Echo_EmptyMessageField(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"message":""}`)
	}))
	defer srv.Close()

	got, err := New(srv.URL).Echo(context.Background(), "x")
	if err != nil {
		t.Fatalf("Echo returned error: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty message, got %q", got)
	}
}

func TestClient_Echo_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"server error", http.StatusInternalServerError, `{"message":"ignored"}`, echo.ErrHTTP},
		{"not found", http.StatusNotFound, `not json`, echo.ErrHTTP},
		{"unprocessable", http.StatusUnprocessableEntity, `{"detail":"bad"}`, echo.ErrHTTP},
		{"malformed json", http.StatusOK, `{"message":`, echo.ErrParse},
		{"not json", http.StatusOK, `<html></html>`, echo.ErrParse},
		{"missing field", http.StatusOK, `{"msg":"x"}`, echo.ErrParse},
		{"null field", http.StatusOK, `{"message":null}`, echo.ErrParse},
		{"wrong type", http.StatusOK, `{"message":42}`, echo.ErrParse},
		{"trailing garbage", http.StatusOK, `{"message":"ping"} <html>oops</html>`, echo.ErrParse},
		{"two values", http.StatusOK, `{"message":"a"}{"message":"b"}`, echo.ErrParse},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := New(srv.URL).Echo(context.Background(), "x")
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if echo.UserMessage(err) != echo.MessageRequestFailed {
				t.Errorf("expected user message %q, got %q", echo.MessageRequestFailed, echo.UserMessage(err))
			}
		})
	}
}

func TestClient_Echo_StatusCodeKept(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Echo(context.Background(), "x")

	var se *echo.HTTPStatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected HTTPStatusError, got %v", err)
	}
	if se.StatusCode != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", se.StatusCode)
	}
}

func TestClient_Echo_ConnectionRefused(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := New(addr).Echo(context.Background(), "x")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, echo.ErrTransport) {
		t.Errorf("expected ErrTransport, got %v", err)
	}
	if msg := echo.UserMessage(err); msg == "" || msg == echo.MessageRequestFailed {
		t.Errorf("expected transport cause in user message, got %q", msg)
	}
}

func TestClient_Echo_ClientTimeout(t *testing.T) {
	t.Parallel()

	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-done:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(done)

	c := New(srv.URL, WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))

	_, err := c.Echo(context.Background(), "x")
	if !errors.Is(err, echo.ErrTransport) {
		t.Errorf("expected ErrTransport, got %v", err)
	}
}
