package step

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/inngest/inngestsdk/pkg/enums"
	"github.com/inngest/inngestsdk/pkg/execution/state"
	"github.com/inngest/inngestsdk/pkg/sdkerrors"
	str2duration "github.com/xhit/go-str2duration/v2"
)

type InvokeOpts struct {
	// FunctionID is the ID of the function to invoke.
	FunctionID string
	// Data is the data to pass to the invoked function.
	Data map[string]any
	// User is the user data to pass to the invoked function.
	User any
	// Timeout is an optional duration specifying when the invoked function will be
	// considered timed out
	Timeout time.Duration
}

// Invoke another function using its ID, returning the value returned from
// that function.
//
// If the invoked function can't be found or otherwise errors, the step fails
// and Invoke returns a StepError wrapped in a NoRetryError.
func Invoke[T any](ctx context.Context, id string, opts InvokeOpts) (T, error) {
	mgr := preflight(ctx)
	var zero T

	if opts.FunctionID == "" {
		abort(mgr, fmt.Errorf("invoke '%s' requires a function id", id))
	}

	payload, err := json.Marshal(map[string]any{
		"data": opts.Data,
		"user": opts.User,
	})
	if err != nil {
		abort(mgr, fmt.Errorf("error marshalling invoke payload for '%s': %w", opts.FunctionID, err))
	}

	args := state.InvokeFunctionOpts{
		FunctionID: opts.FunctionID,
		Payload:    payload,
	}
	if opts.Timeout > 0 {
		args.Timeout = str2duration.String(opts.Timeout)
	}

	res := mgr.Declare(ctx, enums.OpcodeInvokeFunction, id, args.Map(), nil).Envelope()
	if res.HasError() {
		return zero, sdkerrors.NoRetryError(stepError(res))
	}
	return unmarshal[T](mgr, id, res.Data), nil
}
