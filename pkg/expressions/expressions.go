// Package expressions validates and evaluates the user-defined expressions
// used by function configuration: trigger expressions, cancellation `if`
// clauses and waitForEvent matches.  We use the Cel-Go package as a runtime
// to implement computationally bounded, non-turing complete expressions with
// a familiar c-like syntax.
//
// The orchestrator evaluates these expressions;  the SDK compiles them when
// a function is defined so that invalid configuration fails early.
package expressions

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/karlseguin/ccache/v2"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var (
	CacheExtendTime = time.Minute * 10
	CacheTTL        = time.Minute * 30

	ErrNoResult      = errors.New("expression did not return true or false")
	ErrInvalidResult = errors.New("expression errored")
)

var (
	// cache is a global cache of precompiled expressions.
	cache *ccache.Cache
)

func init() {
	cache = ccache.New(ccache.Configure().MaxSize(10_000))
}

// Expression is a compiled expression.  It's safe to share across
// goroutines.
type Expression struct {
	ast  *cel.Ast
	env  *cel.Env
	prog cel.Program

	// Source is the raw expression.
	Source string
}

// OutputType returns the type the expression evaluates to.  Expressions
// selecting fields from variables are dynamically typed.
func (e *Expression) OutputType() *types.Type {
	return e.ast.OutputType()
}

// Compile parses and type-checks an expression, loading it from the cache if
// it's been compiled before.
func Compile(ctx context.Context, expression string) (*Expression, error) {
	sha := sum(expression)

	if item := cache.Get(sha); item != nil {
		item.Extend(CacheExtendTime)
		return item.Value().(*Expression), nil
	}

	_, span := otel.Tracer("expressions").Start(ctx, "Compile")
	defer span.End()

	e, err := env()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	ast, issues := e.Compile(expression)
	if issues != nil && issues.Err() != nil {
		span.SetStatus(codes.Error, issues.Err().Error())
		return nil, NewCompileError(issues.Err())
	}

	prog, err := e.Program(ast)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrapf(err, "error creating program for '%s'", expression)
	}

	compiled := &Expression{
		ast:    ast,
		env:    e,
		prog:   prog,
		Source: expression,
	}
	cache.Set(sha, compiled, CacheTTL)
	return compiled, nil
}

// Validate returns an error if the expression can't be compiled or can never
// evaluate to a boolean.
func Validate(ctx context.Context, expression string) error {
	compiled, err := Compile(ctx, expression)
	if err != nil {
		return err
	}

	switch compiled.OutputType().Kind() {
	case types.BoolKind, types.DynKind:
		return nil
	default:
		return newValidationErr(fmt.Errorf("expression must return a boolean, got %s", compiled.OutputType()))
	}
}

// Evaluate tests the given data against the expression.  Missing attributes
// are errors.
func Evaluate(ctx context.Context, expression string, data map[string]any) (bool, error) {
	compiled, err := Compile(ctx, expression)
	if err != nil {
		return false, err
	}
	return compiled.Evaluate(data)
}

// Evaluate tests the given data against the compiled expression.
func (e *Expression) Evaluate(data map[string]any) (bool, error) {
	vars := map[string]any{}
	for _, key := range defaultKeys {
		vars[key] = map[string]any{}
	}
	for k, v := range data {
		vars[k] = v
	}

	result, _, err := e.prog.Eval(vars)
	if err != nil {
		return false, errors.Wrapf(ErrInvalidResult, "error evaluating expression '%s': %s", e.Source, err)
	}
	if result == nil {
		return false, ErrNoResult
	}

	b, ok := result.Value().(bool)
	if !ok {
		return false, errors.Wrapf(ErrNoResult, "returned type %T (%v)", result.Value(), result.Value())
	}
	return b, nil
}

// sum returns a checksum of the given expression, used as the cache key.
func sum(expression string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(expression)))
}
