package expressions

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

var (
	ErrCompileFailed    = fmt.Errorf("expression compilation failed")
	ErrValidationFailed = fmt.Errorf("validation failed")
)

// CompileError is returned when an expression does not parse or references
// undeclared variables.
type CompileError struct {
	err error
	msg string
}

func NewCompileError(err error) *CompileError {
	return &CompileError{
		err: multierror.Append(ErrCompileFailed, err),
		msg: err.Error(),
	}
}

func (c *CompileError) Error() string {
	return fmt.Sprintf("error compiling expression: %s", c.msg)
}

func (c *CompileError) Unwrap() error {
	return c.err
}

// Message returns the compiler's message without the prefix.
func (c *CompileError) Message() string {
	return c.msg
}

func (c *CompileError) Is(tgt error) bool {
	_, ok := tgt.(*CompileError)
	return ok
}

// ValidationError is returned when a compiled expression can't be used, eg.
// because it never returns a boolean.
type ValidationError struct {
	err error
	msg string
}

func newValidationErr(err error) error {
	return &ValidationError{
		err: multierror.Append(ErrValidationFailed, err),
		msg: err.Error(),
	}
}

func (v *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", v.msg)
}

func (v *ValidationError) Unwrap() error {
	return v.err
}

func (v *ValidationError) Message() string {
	return v.msg
}
