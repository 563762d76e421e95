// Package submission implements the request lifecycle of the echo form:
// input capture, a single echo call per submit, and resolution into
// exactly one of response / error while the pending flag brackets the call.
package submission

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/hijjiri/echo-form/internal/domain/echo"
	"github.com/hijjiri/echo-form/internal/telemetry"
)

// 呼び出し側が前提条件（空でない入力）を守らなかったとき。
var ErrEmptyInput = errors.New("input is empty")

// Recorder は送信結果のメトリクスを受け取る。
type Recorder interface {
	ObserveSubmission(outcome string, d time.Duration)
	ObserveStale()
}

// Ticket は 1 回の送信（世代）を表す。Seq が最新のものだけが状態に反映される。
type Ticket struct {
	Seq     uint64
	Message string

	startedAt time.Time
}

// Controller は FormState を所有し、EchoService との仲介をする。
type Controller struct {
	svc      echo.Service
	logger   *zap.Logger
	tracer   trace.Tracer
	recorder Recorder
	observer func(FormState)

	mu    sync.Mutex
	state FormState
	seq   uint64
}

// Option configures a Controller.
type Option func(*Controller)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(c *Controller) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithObserver は状態が変わるたびに呼ばれる関数を登録する（UI の再描画用）。
// 呼び出しはロックの外で、変更直後のスナップショットを渡す。
func WithObserver(fn func(FormState)) Option {
	return func(c *Controller) { c.observer = fn }
}

// New は初期状態（Idle）の Controller を作る。
func New(svc echo.Service, opts ...Option) *Controller {
	c := &Controller{
		svc:    svc,
		logger: zap.NewNop(),
		tracer: otel.Tracer(telemetry.TracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CanSubmit reports whether input satisfies the submit precondition.
func CanSubmit(input string) bool {
	return strings.TrimSpace(input) != ""
}

// State returns a snapshot of the current form state.
func (c *Controller) State() FormState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// SetInput はユーザーの入力を反映する。送信中でも変更できる。
func (c *Controller) SetInput(input string) {
	c.mu.Lock()
	c.state.Input = input
	snap := c.state.clone()
	c.mu.Unlock()

	c.notify(snap)
}

// Begin は送信開始の遷移（pending=true, response/error をクリア）を同期で行う。
// ネットワーク呼び出しの前に UI が "送信中" を表示できる。
func (c *Controller) Begin(input string) (Ticket, error) {
	if !CanSubmit(input) {
		c.logger.Warn("submit called with empty input")
		return Ticket{}, ErrEmptyInput
	}

	c.mu.Lock()
	c.seq++
	t := Ticket{Seq: c.seq, Message: input, startedAt: time.Now()}
	c.state.Pending = true
	c.state.Response = nil
	c.state.Error = nil
	snap := c.state.clone()
	c.mu.Unlock()

	c.logger.Debug("submission started", zap.Uint64("seq", t.Seq), zap.Int("len", len(input)))
	c.notify(snap)
	return t, nil
}

// Call は ticket の echo 呼び出しを 1 回だけ行う。状態は変更しない。
// サービス側の panic はエラーとして返す。
func (c *Controller) Call(ctx context.Context, t Ticket) (reply string, err error) {
	ctx, span := c.tracer.Start(ctx, "submission.Submit",
		trace.WithAttributes(attribute.Int64("submission.seq", int64(t.Seq))),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("panic recovered in echo service",
				zap.Any("panic", r),
				zap.Uint64("seq", t.Seq),
				zap.ByteString("stacktrace", debug.Stack()),
			)
			err = fmt.Errorf("echo service panic: %v", r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "echo failed")
		}
	}()

	return c.svc.Echo(ctx, t.Message)
}

// Resolve は ticket の結果を反映して pending を落とす。
// ticket が最新でなければ何もせず false を返す（古い結果は捨てる）。
func (c *Controller) Resolve(t Ticket, reply string, err error) bool {
	c.mu.Lock()
	if t.Seq == 0 || t.Seq != c.seq {
		latest := c.seq
		c.mu.Unlock()

		c.logger.Info("discarded stale submission result",
			zap.Uint64("seq", t.Seq),
			zap.Uint64("latest", latest),
		)
		if c.recorder != nil {
			c.recorder.ObserveStale()
		}
		return false
	}

	outcome := "success"
	if err != nil {
		msg := echo.UserMessage(err)
		c.state.Error = &msg
		c.state.Response = nil
		outcome = "error"
	} else {
		c.state.Response = &reply
		c.state.Error = nil
	}
	c.state.Pending = false
	snap := c.state.clone()
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("submission failed", zap.Uint64("seq", t.Seq), zap.Error(err))
	} else {
		c.logger.Debug("submission succeeded", zap.Uint64("seq", t.Seq))
	}
	if c.recorder != nil {
		c.recorder.ObserveSubmission(outcome, time.Since(t.startedAt))
	}
	c.notify(snap)
	return true
}

// Submit は Begin → Call → Resolve を順に行い、解決後の状態を返す。
// 入力が空のときは状態を変えずに ErrEmptyInput を返す。
// echo の失敗は error ではなく FormState.Error に入る。
func (c *Controller) Submit(ctx context.Context, input string) (FormState, error) {
	t, err := c.Begin(input)
	if err != nil {
		return c.State(), err
	}

	reply, callErr := c.Call(ctx, t)
	c.Resolve(t, reply, callErr)

	return c.State(), nil
}

func (c *Controller) notify(s FormState) {
	if c.observer != nil {
		c.observer(s)
	}
}
