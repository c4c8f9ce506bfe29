// Package function defines the functions served by an app: their
// configuration, their triggers and the handlers invoked by the executor.
package function

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	"github.com/hashicorp/go-multierror"
	"github.com/inngest/inngestsdk/pkg/consts"
	"github.com/inngest/inngestsdk/pkg/event"
	"github.com/inngest/inngestsdk/pkg/execution"
	"github.com/inngest/inngestsdk/pkg/inngest"
	"github.com/inngest/inngestsdk/pkg/sdkerrors"
	"github.com/inngest/inngestsdk/pkg/sdkrequest"
)

var (
	ErrNoName           = fmt.Errorf("a function must have a name or an ID")
	ErrNoFailureHandler = fmt.Errorf("function has no failure handler")
)

// Opts configures a function.
type Opts struct {
	// ID is the function's immutable slug.  It defaults to the slugged Name.
	ID string
	// Name is the human-readable name of the function.
	Name string
	// Retries is the number of times each step is retried.  If nil, the
	// orchestrator's default is used.
	Retries *int
	// Cancel lists the events which cancel a run.
	Cancel      []inngest.Cancel
	Concurrency []inngest.Concurrency
	// OnFailure is called once the function has permanently failed.
	OnFailure FailureHandler
}

// GetID returns the function's ID, defaulting to a slug of its name.
func (o Opts) GetID() string {
	if o.ID != "" {
		return o.ID
	}
	return strings.ToLower(slug.Make(o.Name))
}

// InputCtx holds run metadata passed to every handler.
type InputCtx struct {
	Env        string
	FunctionID string
	RunID      string
	StepID     string
	Attempt    int
}

func newInputCtx(fnID string, c sdkrequest.CallCtx) InputCtx {
	return InputCtx{
		Env:        c.Env,
		FunctionID: fnID,
		RunID:      c.RunID,
		StepID:     c.StepID,
		Attempt:    c.Attempt,
	}
}

// Input is the input for a function's handler.  T is the type of the
// triggering event.
type Input[T any] struct {
	Event    T
	Events   []T
	InputCtx InputCtx
}

// FailureInput is the input for a failure handler.
type FailureInput struct {
	// Event is the event which triggered the failed run.
	Event event.Event
	// Failure is the inngest/function.failed event.
	Failure  event.FailureEvent
	Error    error
	InputCtx InputCtx
}

// Handler is the body of a function.  Step tools are available via ctx.
type Handler[T any] func(ctx context.Context, input Input[T]) (any, error)

// FailureHandler is called when a function has permanently failed.  Step
// tools are available via ctx.
type FailureHandler func(ctx context.Context, input FailureInput) (any, error)

// ServableFunction is a function which can be registered and invoked.
type ServableFunction interface {
	execution.Invocable

	// Name returns the function's human-readable name.
	Name() string
	// Config returns the function's options with defaults applied.
	Config() Opts
	// Trigger returns the events or schedules which start the function.
	Trigger() inngest.Triggerable
	// HasFailureHandler returns whether OnFailure is set.
	HasFailureHandler() bool
}

// New returns a function which is invoked by trigger.
func New[T any](opts Opts, trigger inngest.Triggerable, handler Handler[T]) (ServableFunction, error) {
	fn := &servableFunc[T]{
		opts:    opts,
		trigger: trigger,
		handler: handler,
	}
	fn.opts.ID = opts.GetID()
	if fn.opts.Name == "" {
		fn.opts.Name = fn.opts.ID
	}

	if err := fn.validate(context.Background()); err != nil {
		return nil, err
	}
	return fn, nil
}

type servableFunc[T any] struct {
	opts    Opts
	trigger inngest.Triggerable
	handler Handler[T]
}

func (s *servableFunc[T]) Slug() string {
	return s.opts.ID
}

func (s *servableFunc[T]) Name() string {
	return s.opts.Name
}

func (s *servableFunc[T]) Config() Opts {
	return s.opts
}

func (s *servableFunc[T]) Trigger() inngest.Triggerable {
	return s.trigger
}

func (s *servableFunc[T]) HasFailureHandler() bool {
	return s.opts.OnFailure != nil
}

func (s *servableFunc[T]) validate(ctx context.Context) error {
	var err error

	if s.opts.ID == "" {
		err = multierror.Append(err, ErrNoName)
	}
	if s.handler == nil {
		err = multierror.Append(err, fmt.Errorf("function '%s' has no handler", s.opts.ID))
	}
	if s.trigger == nil {
		err = multierror.Append(err, fmt.Errorf("function '%s' has no trigger", s.opts.ID))
	} else if terr := inngest.MultipleTriggers(s.trigger.Triggers()).Validate(ctx); terr != nil {
		err = multierror.Append(err, terr)
	}

	if len(s.opts.Cancel) > consts.MaxCancellations {
		err = multierror.Append(err, fmt.Errorf("function '%s' exceeds the max number of cancellation events: %d", s.opts.ID, consts.MaxCancellations))
	}
	for _, c := range s.opts.Cancel {
		if cerr := c.Validate(ctx); cerr != nil {
			err = multierror.Append(err, cerr)
		}
	}
	for _, c := range s.opts.Concurrency {
		if cerr := c.Validate(ctx); cerr != nil {
			err = multierror.Append(err, cerr)
		}
	}
	if s.opts.Retries != nil && (*s.opts.Retries < 0 || *s.opts.Retries > consts.MaxRetries) {
		err = multierror.Append(err, fmt.Errorf("retries must be between 0 and %d", consts.MaxRetries))
	}

	return err
}

// Invoke decodes the input then calls the handler, or the failure handler
// for failure dispatches.
func (s *servableFunc[T]) Invoke(ctx context.Context, in execution.Input) (any, error) {
	if in.IsFailureHandler {
		return s.invokeFailure(ctx, in)
	}

	input := Input[T]{
		InputCtx: newInputCtx(s.opts.ID, in.CallCtx),
	}
	if err := json.Unmarshal(in.Event, &input.Event); err != nil {
		return nil, sdkerrors.NoRetryError(fmt.Errorf("error unmarshalling event for function '%s': %w", s.opts.ID, err))
	}

	input.Events = make([]T, len(in.Events))
	for i, raw := range in.Events {
		if err := json.Unmarshal(raw, &input.Events[i]); err != nil {
			return nil, sdkerrors.NoRetryError(fmt.Errorf("error unmarshalling event %d for function '%s': %w", i, s.opts.ID, err))
		}
	}
	if len(input.Events) == 0 {
		input.Events = []T{input.Event}
	}

	return s.handler(ctx, input)
}

func (s *servableFunc[T]) invokeFailure(ctx context.Context, in execution.Input) (any, error) {
	if s.opts.OnFailure == nil {
		return nil, sdkerrors.NoRetryError(ErrNoFailureHandler)
	}

	fe, err := event.ParseFailureEvent(in.Event)
	if err != nil {
		return nil, sdkerrors.NoRetryError(err)
	}

	input := FailureInput{
		Failure:  *fe,
		Error:    fe.Data.Error,
		InputCtx: newInputCtx(inngest.GetFailureHandlerSlug(s.opts.ID), in.CallCtx),
	}
	if len(fe.Data.Event) > 0 {
		if err := json.Unmarshal(fe.Data.Event, &input.Event); err != nil {
			return nil, sdkerrors.NoRetryError(fmt.Errorf("error unmarshalling failed event: %w", err))
		}
	}

	return s.opts.OnFailure(ctx, input)
}
