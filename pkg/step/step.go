// Package step contains the tools used within a function body.  Each tool
// declares a durable op; on replay the tool returns the memoized result
// instead of running again.
package step

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/inngest/inngestsdk/pkg/execution/state"
	"github.com/inngest/inngestsdk/pkg/sdkerrors"
	"github.com/inngest/inngestsdk/pkg/sdkrequest"
)

var (
	// ErrNotInFunction is raised when a step tool is executed outside of a
	// function invoked by the executor.
	//
	// If this is thrown, you're likely executing a function manually instead
	// of it being invoked by the executor.
	ErrNotInFunction = sdkrequest.ErrNotInFunction
	// ErrNestedStep is raised when a step tool is used within a Run callback.
	ErrNestedStep = sdkrequest.ErrNestedStep
)

func preflight(ctx context.Context) sdkrequest.InvocationManager {
	mgr, ok := sdkrequest.ManagerFromContext(ctx)
	if !ok {
		panic(ErrNotInFunction)
	}
	return mgr
}

// abort records err on the manager and unwinds the calling routine.
func abort(mgr sdkrequest.InvocationManager, err error) {
	mgr.SetErr(err)
	panic(sdkrequest.ControlHijack{})
}

func stepError(res state.MemoizedOp) error {
	ue := res.UserError()
	return sdkerrors.StepError{
		Name:    ue.Name,
		Message: ue.Message,
		Data:    ue.Data,
	}
}

func unmarshal[T any](mgr sdkrequest.InvocationManager, name string, data json.RawMessage) T {
	var out T
	if len(data) == 0 || string(data) == "null" {
		return out
	}
	if err := json.Unmarshal(data, &out); err != nil {
		abort(mgr, fmt.Errorf("error unmarshalling state for step '%s': %w", name, err))
	}
	return out
}
