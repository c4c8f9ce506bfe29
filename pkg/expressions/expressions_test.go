package expressions

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		expr        string
		expectValid bool
		compileErr  bool
	}{
		{expr: "event.data.foo == 1", expectValid: true},
		{expr: "event.data.function_id == 'test'", expectValid: true},
		{expr: "event.data.title == async.data.title", expectValid: true},
		{expr: "event.name.endsWith(\"foo\")", expectValid: true},
		{expr: "has(event.data.isPreview)", expectValid: true},
		{expr: "steps.a.ok == true", expectValid: true},
		{expr: "event.data.tags.exists(x, x == 'd') == false", expectValid: true},
		{expr: "event.data.issue in ['Bug', 'Issue', 'Epic']", expectValid: true},
		// Dynamically typed fields may be booleans at runtime.
		{expr: "event.data.enabled", expectValid: true},
		{expr: "5 + 4", expectValid: false},
		{expr: "'foo'", expectValid: false},
		{expr: "user.id == 1", expectValid: false, compileErr: true},
		{expr: "event.data.foo ==", expectValid: false, compileErr: true},
	}

	for i, tt := range tests {
		tt := tt
		t.Run(fmt.Sprintf("%d (expectValid: %v)", i, tt.expectValid), func(t *testing.T) {
			t.Parallel()

			err := Validate(context.Background(), tt.expr)
			if tt.expectValid {
				require.NoError(t, err, tt.expr)
				return
			}
			require.Error(t, err, tt.expr)
			if tt.compileErr {
				require.ErrorIs(t, err, ErrCompileFailed)
				var ce *CompileError
				require.True(t, errors.As(err, &ce))
				require.NotEmpty(t, ce.Message())
				return
			}
			require.ErrorIs(t, err, ErrValidationFailed)
		})
	}
}

func TestCompileIsCached(t *testing.T) {
	a, err := Compile(context.Background(), "event.data.cached == true")
	require.NoError(t, err)
	b, err := Compile(context.Background(), "event.data.cached == true")
	require.NoError(t, err)
	require.Same(t, a, b)
	require.Equal(t, "event.data.cached == true", a.Source)
}

func TestEvaluate(t *testing.T) {
	ctx := context.Background()

	ok, err := Evaluate(ctx, "event.data.function_id == 'test'", map[string]any{
		"event": map[string]any{"data": map[string]any{"function_id": "test"}},
	})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = Evaluate(ctx, "event.data.title == async.data.title", map[string]any{
		"event": map[string]any{"data": map[string]any{"title": "a"}},
		"async": map[string]any{"data": map[string]any{"title": "b"}},
	})
	require.NoError(t, err)
	require.False(t, ok)

	_, err = Evaluate(ctx, "event.data.name", map[string]any{
		"event": map[string]any{"data": map[string]any{"name": "x"}},
	})
	require.ErrorIs(t, err, ErrNoResult)

	_, err = Evaluate(ctx, "event.data.missing == 1", nil)
	require.ErrorIs(t, err, ErrInvalidResult)
}
