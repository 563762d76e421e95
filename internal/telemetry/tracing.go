package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracerName は各パッケージが otel.Tracer に渡す instrumentation 名。
const TracerName = "github.com/hijjiri/echo-form"

// ShutdownFunc は tracer provider の後片付け。
type ShutdownFunc func(ctx context.Context) error

// SetupTracing は global tracer provider を設定する。
// stdout=false の場合は noop provider（exporter を持たない）にする。
func SetupTracing(stdout bool) (trace.TracerProvider, ShutdownFunc, error) {
	if !stdout {
		return SetupTracingTo(nil)
	}
	return SetupTracingTo(os.Stdout)
}

// SetupTracingTo は span を w に書き出す。w が nil なら noop provider。
// stdout を使えない CLI / TUI は stderr やファイルを渡す。
func SetupTracingTo(w io.Writer) (trace.TracerProvider, ShutdownFunc, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if w == nil {
		tp := noop.NewTracerProvider()
		otel.SetTracerProvider(tp)
		return tp, func(context.Context) error { return nil }, nil
	}

	exp, err := stdouttrace.New(
		stdouttrace.WithWriter(w),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
	)
	otel.SetTracerProvider(tp)

	return tp, tp.Shutdown, nil
}
