package step

import (
	"context"

	"github.com/inngest/inngestsdk/pkg/enums"
)

// Run runs any code reliably, with retries, returning the resulting data.
// The callback runs at most once successfully: afterwards its result is
// returned from history.
//
// If the step failed and will not be retried, Run returns a
// sdkerrors.StepError.  Returning it from the function fails the run;
// handling it allows the function to continue.
func Run[T any](
	ctx context.Context,
	id string,
	f func(ctx context.Context) (T, error),
) (T, error) {
	mgr := preflight(ctx)
	res := mgr.Declare(ctx, enums.OpcodeStep, id, nil, func(ctx context.Context) (any, error) {
		return f(ctx)
	}).Envelope()

	if res.HasError() {
		var zero T
		return zero, stepError(res)
	}
	return unmarshal[T](mgr, id, res.Data), nil
}
