package syscode

import (
	"errors"
	"fmt"
)

// NewStepUsedAfterAsync is returned when a function waits on work outside of
// a step before declaring its first step.
func NewStepUsedAfterAsync(step string) *Error {
	return &Error{
		Code: CodeStepUsedAfterAsync,
		Message: fmt.Sprintf(
			"step %q was used after the function awaited work outside of a step; "+
				"wrap asynchronous work in step.Run so that it is memoized",
			step,
		),
		Data: map[string]any{"step": step},
	}
}

// NewAsyncDetectedAfterMemoization is returned when, after every memoized step
// has been replayed, the function waits on untracked work instead of
// declaring its next step.
func NewAsyncDetectedAfterMemoization(replayed int) *Error {
	return &Error{
		Code: CodeAsyncDetectedAfterMemoization,
		Message: fmt.Sprintf(
			"function awaited work outside of a step after replaying %d memoized steps; "+
				"the function's shape changed between requests",
			replayed,
		),
		Data: map[string]any{"replayed": replayed},
	}
}

// NewNonDeterministicFunction is returned when a replay diverges from the
// recorded history: the op at the given stack position was never declared.
func NewNonDeterministicFunction(pos int, id string, reason string) *Error {
	return &Error{
		Code: CodeNonDeterministicFunction,
		Message: fmt.Sprintf(
			"function is non-deterministic: expected step %s at position %d but %s",
			id, pos, reason,
		),
		Data: map[string]any{"position": pos, "id": id},
	}
}

// IsDeterminismViolation reports whether err is one of the determinism
// violation errors.
func IsDeterminismViolation(err error) bool {
	var e *Error
	if !errors.As(err, &e) || e == nil {
		return false
	}
	switch e.Code {
	case CodeStepUsedAfterAsync, CodeAsyncDetectedAfterMemoization, CodeNonDeterministicFunction:
		return true
	}
	return false
}

// Code returns the code of a syscode error, or CodeUnknown.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Code
	}
	var v Error
	if errors.As(err, &v) {
		return v.Code
	}
	return CodeUnknown
}
