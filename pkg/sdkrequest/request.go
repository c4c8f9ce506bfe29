package sdkrequest

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/inngest/inngestsdk/pkg/execution/state"
)

// Request represents an incoming run request used to call functions from the
// orchestrator.
type Request struct {
	// Event represents the input event.  If the input is a batch of events, this
	// represents the first event in the batch (for backwards compatibility).
	Event json.RawMessage `json:"event"`
	// Events represents the array of input events, if the function run is for
	// a batch of events.
	Events []json.RawMessage `json:"events"`
	// Steps holds the completed ops for the run, keyed by op ID.  Each value is
	// an object containing either "data" or "error".
	Steps map[string]json.RawMessage `json:"steps"`
	// CallCtx represents call context - metadata around the current function run.
	CallCtx CallCtx `json:"ctx"`
	// UseAPI indicates whether the input request is too large (> 4MB) to be pushed
	// to each function run, and should instead be fetched from the API on run.
	UseAPI bool `json:"use_api"`
}

// CallCtx represents context for individual function calls.  This logs the function ID, the
// specific run ID, and step information.
type CallCtx struct {
	DisableImmediateExecution bool      `json:"disable_immediate_execution"`
	Env                       string    `json:"env"`
	FunctionID                uuid.UUID `json:"fn_id"`
	RunID                     string    `json:"run_id"`
	StepID                    string    `json:"step_id"`
	Stack                     CallStack `json:"stack"`
	Attempt                   int       `json:"attempt"`
	MaxAttempts               *int      `json:"max_attempts,omitempty"`
}

// CallStack lists op IDs in the order in which they completed.
type CallStack struct {
	Current uint     `json:"current"`
	Stack   []string `json:"stack"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

// OpStack returns the request's completed ops in completion order.  Ops
// present in Steps but missing from the call stack are appended in ID order.
func (r Request) OpStack() (state.OpStack, error) {
	stack := make(state.OpStack, 0, len(r.Steps))
	seen := make(map[string]struct{}, len(r.Steps))

	for _, id := range r.CallCtx.Stack.Stack {
		if _, ok := seen[id]; ok {
			return nil, fmt.Errorf("op %s appears in the stack more than once", id)
		}
		raw, ok := r.Steps[id]
		if !ok {
			return nil, fmt.Errorf("op %s is in the stack but has no state", id)
		}
		op, err := memoizedOp(id, raw)
		if err != nil {
			return nil, err
		}
		seen[id] = struct{}{}
		stack = append(stack, op)
	}

	rest := []string{}
	for id := range r.Steps {
		if _, ok := seen[id]; !ok {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	for _, id := range rest {
		op, err := memoizedOp(id, r.Steps[id])
		if err != nil {
			return nil, err
		}
		stack = append(stack, op)
	}

	return stack, nil
}

// memoizedOp keeps the recorded value as is.  Each step tool decodes its own
// shape:  run and invoke results use the {data}|{error} envelope, while
// waitForEvent results are the raw event.
func memoizedOp(id string, raw json.RawMessage) (state.MemoizedOp, error) {
	op := state.MemoizedOp{ID: id}
	if len(raw) == 0 || string(raw) == "null" {
		return op, nil
	}
	if !json.Valid(raw) {
		return op, fmt.Errorf("op %s has invalid state", id)
	}
	op.Data = raw
	return op, nil
}
