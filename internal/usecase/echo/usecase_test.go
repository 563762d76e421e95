package echo

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestUsecase_Echo_DefaultPrefix(t *testing.T) {
	t.Parallel()

	uc := New(zap.NewNop(), DefaultPrefix)

	got, err := uc.Echo(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Echo returned error: %v", err)
	}
	if got != "Api says: hello" {
		t.Errorf("expected %q, got %q", "Api says: hello", got)
	}
}

func TestUsecase_Echo_NoPrefix(t *testing.T) {
	t.Parallel()

	uc := New(nil, "")

	got, err := uc.Echo(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Echo returned error: %v", err)
	}
	if got != "hello" {
		t.Errorf("expected %q, got %q", "hello", got)
	}
}

func TestUsecase_Echo_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(zap.NewNop(), "").Echo(ctx, "hello")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
