// Package sdkerrors contains the errors which user code returns to control
// retries, and the errors which the executor returns when a tick is aborted.
package sdkerrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// StepError is an error returned when a memoized step failed.  It's returned
// from step tools so that functions can handle step failures.
type StepError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	// Data is any additional data recorded alongside the failure.
	Data json.RawMessage `json:"data,omitempty"`
}

func (e StepError) Error() string {
	return e.Message
}

func (e StepError) Is(err error) bool {
	switch err.(type) {
	case *StepError, StepError:
		return true
	default:
		return false
	}
}

func IsStepError(err error) bool {
	return errors.Is(err, StepError{})
}

// NoRetryError wraps an error, preventing retries in the orchestrator.  This
// permanently fails a step and function.
func NoRetryError(err error) error {
	return noRetryError{Err: err}
}

// IsNoRetryError returns whether an error is a NoRetryError
func IsNoRetryError(err error) bool {
	return errors.Is(err, noRetryError{})
}

// noRetryError represents an error that will not be retried.
type noRetryError struct {
	Err error
}

func (e noRetryError) Error() string {
	return e.Err.Error()
}

func (e noRetryError) Unwrap() error {
	return e.Err
}

func (e noRetryError) Is(target error) bool {
	switch target.(type) {
	case *noRetryError, noRetryError:
		return true
	default:
		return false
	}
}

// RetryAtError allows you to specify the time at which the next retry should occur. This
// wraps your error, leaving the original cause and error message available.
func RetryAtError(err error, at time.Time) error {
	return retryAtError{Err: err, At: at}
}

// GetRetryAtTime returns the time from a retryAtError, or nil.
func GetRetryAtTime(err error) *time.Time {
	retryAt := &retryAtError{}
	if ok := errors.As(err, retryAt); ok {
		return &retryAt.At
	}
	return nil
}

type retryAtError struct {
	Err error
	At  time.Time
}

func (e retryAtError) Error() string {
	return e.Err.Error()
}

func (e retryAtError) Unwrap() error {
	return e.Err
}

func (e retryAtError) Is(target error) bool {
	switch target.(type) {
	case *retryAtError, retryAtError:
		return true
	default:
		return false
	}
}

// PanicError is a recovered panic from user code.
type PanicError struct {
	Value any
	Stack string
}

func (p PanicError) Error() string {
	return fmt.Sprintf("function panicked: %v", p.Value)
}

// Unwrap returns the panic value if it's an error.
func (p PanicError) Unwrap() error {
	if err, ok := p.Value.(error); ok {
		return err
	}
	return nil
}

// FunctionResult is the structured result attached to an aborted tick.
type FunctionResult struct {
	Data  any   `json:"data,omitempty"`
	Error error `json:"-"`
}

// OutgoingResultError is returned by the executor when a tick is aborted with
// a structured result, eg. when a function returns an error or panics.
type OutgoingResultError struct {
	Result FunctionResult
}

func NewOutgoingResultError(err error) *OutgoingResultError {
	return &OutgoingResultError{Result: FunctionResult{Error: err}}
}

func (o *OutgoingResultError) Error() string {
	if o.Result.Error == nil {
		return "function aborted"
	}
	return o.Result.Error.Error()
}

func (o *OutgoingResultError) Unwrap() error {
	return o.Result.Error
}

// Retryable returns whether the orchestrator may retry the function.  Errors
// wrapped with NoRetryError and step errors left unhandled by the function
// are final.
func (o *OutgoingResultError) Retryable() bool {
	if o.Result.Error == nil {
		return true
	}
	return !IsNoRetryError(o.Result.Error) && !IsStepError(o.Result.Error)
}
