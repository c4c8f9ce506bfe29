// Package group runs several step sequences concurrently within a function.
package group

import (
	"context"

	"github.com/inngest/inngestsdk/pkg/sdkrequest"
)

type Result struct {
	// Index is the position of the branch within the group.
	Index int
	Error error
	Value any
}

type Results []Result

// AnyError returns the first error within the results, in branch order.
func (r Results) AnyError() error {
	for _, result := range r {
		if result.Error != nil {
			return result.Error
		}
	}
	return nil
}

// Parallel runs each callback concurrently and waits for all of them to
// return.  Callbacks start in order, and each may use any step tool: steps
// declared by the callbacks at the same time are reported together.
func Parallel(
	ctx context.Context,
	fns ...func(ctx context.Context) (any, error),
) Results {
	mgr := preflight(ctx)
	res := mgr.Group(ctx, runFuncs(fns), func(r []*sdkrequest.GroupResult) bool {
		for _, g := range r {
			if !g.Finished {
				return false
			}
		}
		return true
	})

	out := make(Results, len(res))
	for i, g := range res {
		out[i] = Result{Index: g.Index, Error: g.Error, Value: g.Value}
	}
	return out
}

// Race runs each callback concurrently, returning the result of the first
// callback to return.  The remaining callbacks are abandoned: they are never
// resumed within this function run.
func Race(
	ctx context.Context,
	fns ...func(ctx context.Context) (any, error),
) Result {
	mgr := preflight(ctx)
	res := mgr.Group(ctx, runFuncs(fns), func(r []*sdkrequest.GroupResult) bool {
		for _, g := range r {
			if g.Finished {
				return true
			}
		}
		return len(r) == 0
	})

	var winner *sdkrequest.GroupResult
	for _, g := range res {
		if !g.Finished {
			continue
		}
		if winner == nil || g.Order() < winner.Order() {
			winner = g
		}
	}
	if winner == nil {
		return Result{Index: -1}
	}
	return Result{Index: winner.Index, Error: winner.Error, Value: winner.Value}
}

func preflight(ctx context.Context) sdkrequest.InvocationManager {
	mgr, ok := sdkrequest.ManagerFromContext(ctx)
	if !ok {
		panic(sdkrequest.ErrNotInFunction)
	}
	return mgr
}

func runFuncs(fns []func(ctx context.Context) (any, error)) []sdkrequest.RunFunc {
	out := make([]sdkrequest.RunFunc, len(fns))
	for i, fn := range fns {
		out[i] = fn
	}
	return out
}
