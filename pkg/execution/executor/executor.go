package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/inngest/inngestsdk/pkg/consts"
	"github.com/inngest/inngestsdk/pkg/enums"
	"github.com/inngest/inngestsdk/pkg/event"
	"github.com/inngest/inngestsdk/pkg/execution"
	"github.com/inngest/inngestsdk/pkg/execution/state"
	"github.com/inngest/inngestsdk/pkg/logger"
	"github.com/inngest/inngestsdk/pkg/metrics"
	"github.com/inngest/inngestsdk/pkg/sdkerrors"
	"github.com/inngest/inngestsdk/pkg/sdkrequest"
	"github.com/inngest/inngestsdk/pkg/servertiming"
	"github.com/inngest/inngestsdk/pkg/syscode"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrNoFunction = fmt.Errorf("no function provided")
)

// NewExecutor returns a new executor, responsible for running a single tick of
// a function.
func NewExecutor(opts ...ExecutorOpt) (execution.Executor, error) {
	m := &executor{
		log:       logger.VoidLogger(),
		clock:     clockwork.NewRealClock(),
		boundary:  consts.DefaultAsyncBoundary,
		immediate: true,
		tracer:    otel.Tracer("executor"),
	}

	for _, o := range opts {
		if err := o(m); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// ExecutorOpt modifies the built in executor on creation.
type ExecutorOpt func(m execution.Executor) error

// WithLogger sets the logger which receives both the executor's logs and the
// logs written by functions.
func WithLogger(l logger.Logger) ExecutorOpt {
	return func(e execution.Executor) error {
		e.(*executor).log = l
		return nil
	}
}

// WithClock sets the clock used for event timestamps, sleep logging and step
// durations.  The async boundary always uses wall time.
func WithClock(c clockwork.Clock) ExecutorOpt {
	return func(e execution.Executor) error {
		e.(*executor).clock = c
		return nil
	}
}

// WithAsyncBoundary sets how long a function may run without reaching a step
// before the executor considers it to be waiting on work outside of a step.
func WithAsyncBoundary(d time.Duration) ExecutorOpt {
	return func(e execution.Executor) error {
		if d <= 0 {
			return fmt.Errorf("async boundary must be positive, got %s", d)
		}
		e.(*executor).boundary = d
		return nil
	}
}

// WithEventSender sets the sender used by step.Send.
func WithEventSender(s event.Sender) ExecutorOpt {
	return func(e execution.Executor) error {
		e.(*executor).sender = s
		return nil
	}
}

func WithMetrics(r *metrics.Recorder) ExecutorOpt {
	return func(e execution.Executor) error {
		e.(*executor).metrics = r
		return nil
	}
}

// WithImmediateExecution controls whether a single discovered step is executed
// within the same tick, instead of being reported for the orchestrator to
// schedule.  This is enabled by default.
func WithImmediateExecution(enabled bool) ExecutorOpt {
	return func(e execution.Executor) error {
		e.(*executor).immediate = enabled
		return nil
	}
}

// executor represents a built-in executor for running ticks.
type executor struct {
	log       logger.Logger
	clock     clockwork.Clock
	boundary  time.Duration
	sender    event.Sender
	metrics   *metrics.Recorder
	immediate bool
	tracer    trace.Tracer
}

// tick holds the state of a single Execute call.
type tick struct {
	mgr   *sdkrequest.Manager
	proxy *logger.Proxy
	req   execution.Request
}

func (e *executor) Execute(ctx context.Context, fn execution.Invocable, r execution.Request) (out *execution.Outcome, err error) {
	if fn == nil {
		return nil, ErrNoFunction
	}

	ctx, span := e.tracer.Start(ctx, "tick", trace.WithAttributes(
		attribute.String("function.id", fn.Slug()),
		attribute.Int("stack.size", len(r.Steps)),
		attribute.Bool("failure_handler", r.IsFailureHandler),
	))
	stop := r.Timer.Start("tick", "")
	defer func() {
		stop()
		e.finish(span, out, err)
	}()

	mgr, err := sdkrequest.NewManager(sdkrequest.ManagerOpts{
		Request: &sdkrequest.Request{
			Event:   r.Event,
			Events:  r.Events,
			CallCtx: r.CallCtx,
		},
		Stack:    r.Steps,
		Clock:    e.clock,
		Boundary: e.boundary,
	})
	if err != nil {
		return nil, &syscode.Error{
			Code:    syscode.CodeRequestInvalid,
			Message: fmt.Sprintf("invalid op stack: %s", err),
		}
	}

	fctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Logs are flushed once the outcome is final, after every parked routine
	// has unwound.
	proxy := logger.NewProxy(e.log.Handler())
	defer func() {
		if ferr := proxy.Flush(); ferr != nil {
			e.log.Warn("error flushing function logs", "error", ferr)
		}
	}()
	defer mgr.End()

	if len(r.Steps) == 0 {
		proxy.Enable()
	}

	fctx = sdkrequest.SetManager(fctx, mgr)
	fctx = logger.WithStdlib(fctx, logger.FromSlog(slog.New(proxy), e.log.Level()))
	if e.sender != nil {
		fctx = event.WithSender(fctx, e.sender)
	}

	in := execution.Input{
		Event:            r.Event,
		Events:           r.Events,
		CallCtx:          r.CallCtx,
		IsFailureHandler: r.IsFailureHandler,
	}
	mgr.Start(fctx, func(ctx context.Context) (any, error) {
		return fn.Invoke(ctx, in)
	})

	return e.drive(ctx, &tick{mgr: mgr, proxy: proxy, req: r})
}

// drive replays the op stack one entry at a time.  Each memoized op is
// resolved only once every routine has parked, so that ops are declared in
// the same order on each tick.
func (e *executor) drive(ctx context.Context, t *tick) (*execution.Outcome, error) {
	stack := t.req.Steps

	for pos := 0; ; pos++ {
		idle, err := t.mgr.Settle(ctx)
		if err != nil {
			return nil, err
		}
		if err := e.aborted(t.mgr); err != nil {
			return nil, err
		}

		if pos == len(stack) {
			return e.final(ctx, t, idle)
		}

		if t.mgr.Done() && len(t.mgr.PhaseOps()) == 0 {
			// The function returned before using every memoized op.
			return e.complete(t.mgr)
		}

		if pos == len(stack)-1 {
			// Code from this point on has never ran before.
			t.proxy.Enable()
		}

		id := stack[pos].ID
		if t.mgr.Resolve(id) {
			continue
		}

		reason := "it was never declared"
		if !idle {
			reason = "the function awaited work outside of a step"
		}
		return nil, syscode.NewNonDeterministicFunction(pos, id, reason)
	}
}

// final decides the outcome once the op stack has been replayed.
func (e *executor) final(ctx context.Context, t *tick, idle bool) (*execution.Outcome, error) {
	runStep := t.req.RunStep
	if runStep == consts.DefaultStepID {
		runStep = ""
	}

	if runStep != "" {
		if p, ok := t.mgr.Pending(runStep); ok {
			return e.run(ctx, t, p)
		}
	}

	ops := t.mgr.PhaseOps()
	if t.mgr.Done() && len(ops) == 0 {
		return e.complete(t.mgr)
	}

	if len(ops) == 0 && !idle {
		if len(t.req.Steps) > 0 || t.mgr.Declared() > 0 {
			return nil, syscode.NewAsyncDetectedAfterMemoization(t.mgr.Resolved())
		}

		// A plain asynchronous function is fine as long as it never
		// declares a step.
		if err := t.mgr.AwaitCompletion(ctx); err != nil {
			return nil, err
		}
		if err := e.aborted(t.mgr); err != nil {
			return nil, err
		}
		return e.complete(t.mgr)
	}

	if runStep != "" {
		return nil, &syscode.Error{
			Code:    syscode.CodeStepNotFound,
			Message: fmt.Sprintf("step %s was requested but was not found", runStep),
			Data:    map[string]any{"step_id": runStep},
		}
	}

	if len(ops) == 1 && ops[0].Runnable() && e.immediate && !t.req.CallCtx.DisableImmediateExecution {
		return e.run(ctx, t, ops[0])
	}

	now := e.clock.Now()
	planned := make([]state.GeneratorOpcode, len(ops))
	for i, op := range ops {
		planned[i] = op.Planned()
		e.log.Debug("discovered op", opAttrs(now, planned[i])...)
	}
	return execution.NewDiscovery(planned), nil
}

// opAttrs returns log attributes for a discovered op, including when the
// function resumes for sleeps and waits.
func opAttrs(now time.Time, op state.GeneratorOpcode) []any {
	attrs := []any{"id", op.ID, "op", op.Op.String(), "name", op.Name}
	switch op.Op {
	case enums.OpcodeSleep:
		if d, err := op.SleepDuration(now); err == nil {
			attrs = append(attrs, "resume_in", d.String())
		}
	case enums.OpcodeWaitForEvent:
		opts, err := op.WaitForEventOpts()
		if err != nil {
			break
		}
		if at, err := opts.Expires(now); err == nil {
			attrs = append(attrs, "expires", at.UTC().Format(time.RFC3339))
		}
	}
	return attrs
}

// run executes the callback of a discovered step.
func (e *executor) run(ctx context.Context, t *tick, p *sdkrequest.PendingOp) (*execution.Outcome, error) {
	_, span := e.tracer.Start(ctx, "step", trace.WithAttributes(
		attribute.String("step.id", p.ID),
		attribute.String("step.name", p.Name),
	))
	defer span.End()

	stop := t.req.Timer.Start("step", p.Name)
	start := e.clock.Now()
	val, err := p.Execute()
	dur := e.clock.Since(start)
	stop()

	op := state.GeneratorOpcode{
		ID:   p.ID,
		Op:   enums.OpcodeStep,
		Name: p.Name,
		Opts: p.Opts,
	}

	if err != nil {
		e.metrics.ObserveStep("error", dur)
		span.SetStatus(codes.Error, err.Error())
		op.Error = state.NewUserError(err)
		out := execution.NewRun(op)
		out.RetryAt = sdkerrors.GetRetryAtTime(err)
		return out, nil
	}

	byt, err := json.Marshal(val)
	if err != nil {
		return nil, sdkerrors.NewOutgoingResultError(
			sdkerrors.NoRetryError(fmt.Errorf("unable to marshal output for step '%s': %w", p.Name, err)),
		)
	}
	e.metrics.ObserveStep("success", dur)
	op.Data = byt
	return execution.NewRun(op), nil
}

func (e *executor) complete(mgr *sdkrequest.Manager) (*execution.Outcome, error) {
	val, err := mgr.Result()
	if err != nil {
		return nil, sdkerrors.NewOutgoingResultError(err)
	}
	return execution.NewComplete(val), nil
}

// aborted returns the error which aborts the tick, if any.
func (e *executor) aborted(mgr *sdkrequest.Manager) error {
	if err := mgr.Violation(); err != nil {
		return err
	}
	if err := mgr.Err(); err != nil {
		return sdkerrors.NewOutgoingResultError(sdkerrors.NoRetryError(err))
	}
	if err := mgr.Panic(); err != nil {
		return sdkerrors.NewOutgoingResultError(err)
	}
	return nil
}

func (e *executor) finish(span trace.Span, out *execution.Outcome, err error) {
	defer span.End()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("outcome", "error"))
		e.metrics.IncrTick("error")

		if syscode.IsDeterminismViolation(err) {
			code := syscode.Code(err)
			e.metrics.IncrViolation(code)
			e.log.Warn("function is non-deterministic", "code", code, "error", err)
		}
		return
	}

	span.SetAttributes(attribute.String("outcome", string(out.Type)))
	e.metrics.IncrTick(string(out.Type))
}

// NewTimer returns a timer for a tick using the executor's clock.
func NewTimer(e execution.Executor) *servertiming.Timer {
	if ex, ok := e.(*executor); ok {
		return servertiming.New(ex.clock)
	}
	return servertiming.New(nil)
}
