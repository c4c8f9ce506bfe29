package execution

import (
	"context"
	"encoding/json"

	"github.com/inngest/inngestsdk/pkg/execution/state"
	"github.com/inngest/inngestsdk/pkg/sdkrequest"
	"github.com/inngest/inngestsdk/pkg/servertiming"
)

const (
	StateErrorKey = "error"
	StateDataKey  = "data"
)

// Executor runs a single tick of a function.
//
// # Ticks
//
// A tick is one request from the orchestrator.  The executor replays the
// function against the op stack, which holds every op completed so far, then
// reports what the function needs next: either the function completed, a
// step was executed, or a set of new steps was discovered.  Nothing is
// persisted between ticks; the orchestrator calls again with a longer stack
// until the function completes.
//
// # Determinism
//
// Replay relies on the function declaring the same steps, in the same order,
// on every tick.  Functions which wait on work outside of a step abort the
// tick with a determinism violation, which is never retried.
type Executor interface {
	// Execute runs a tick of fn for the given request.  The returned error is
	// non-nil if the tick was aborted: the function returned an error, or
	// panicked, or broke determinism.
	Execute(ctx context.Context, fn Invocable, r Request) (*Outcome, error)
}

// Invocable is a function which can be invoked by the executor.
type Invocable interface {
	// Slug returns the function's ID.
	Slug() string
	// Invoke calls the function body, or its failure handler if in.IsFailureHandler
	// is set.  Step tools are available via ctx.
	Invoke(ctx context.Context, in Input) (any, error)
}

// InvocableFunc adapts a plain func into an Invocable.
type InvocableFunc func(ctx context.Context, in Input) (any, error)

func (f InvocableFunc) Slug() string {
	return ""
}

func (f InvocableFunc) Invoke(ctx context.Context, in Input) (any, error) {
	return f(ctx, in)
}

// Input is passed to a function on invocation.
type Input struct {
	Event            json.RawMessage
	Events           []json.RawMessage
	CallCtx          sdkrequest.CallCtx
	IsFailureHandler bool
}

// Request is a single tick of a function.
type Request struct {
	Event  json.RawMessage
	Events []json.RawMessage
	// Steps is the op stack: completed ops in completion order.
	Steps state.OpStack
	// RunStep is the ID of a discovered step to execute, if any.
	RunStep string
	// Timer records timings for the tick.  It may be nil.
	Timer *servertiming.Timer
	// IsFailureHandler invokes the function's failure handler.
	IsFailureHandler bool
	CallCtx          sdkrequest.CallCtx
}

// NewRequest creates a Request from the orchestrator's request body.
func NewRequest(r *sdkrequest.Request, runStep string, failure bool) (Request, error) {
	stack, err := r.OpStack()
	if err != nil {
		return Request{}, err
	}
	return Request{
		Event:            r.Event,
		Events:           r.Events,
		Steps:            stack,
		RunStep:          runStep,
		IsFailureHandler: failure,
		CallCtx:          r.CallCtx,
	}, nil
}
