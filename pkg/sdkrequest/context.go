package sdkrequest

import "context"

type ctxKey int

const (
	managerCtxKey ctxKey = iota
	routineCtxKey
	inStepCtxKey
)

// SetManager stores the manager for the current tick in context.
func SetManager(ctx context.Context, r InvocationManager) context.Context {
	return context.WithValue(ctx, managerCtxKey, r)
}

// ManagerFromContext returns the manager for the current tick, if the
// context belongs to a function invoked by the executor.
func ManagerFromContext(ctx context.Context) (InvocationManager, bool) {
	mgr, ok := ctx.Value(managerCtxKey).(InvocationManager)
	return mgr, ok
}

// StepID returns the ID of the step whose callback is executing, if any.
func StepID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(inStepCtxKey).(string)
	return id, ok
}
