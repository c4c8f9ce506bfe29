package state

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewMemo(t *testing.T) {
	t.Run("lookups are idempotent", func(t *testing.T) {
		m, err := NewMemo(OpStack{
			{ID: "a", Data: json.RawMessage(`"A"`)},
			{ID: "b", Error: json.RawMessage(`{"name":"Error","message":"B"}`)},
		})
		require.NoError(t, err)
		require.Equal(t, 2, m.Len())

		first, ok := m.Lookup("a")
		require.True(t, ok)
		second, ok := m.Lookup("a")
		require.True(t, ok)
		require.Equal(t, first, second)

		_, ok = m.Lookup("c")
		require.False(t, ok)
	})

	t.Run("duplicate ids are rejected", func(t *testing.T) {
		_, err := NewMemo(OpStack{{ID: "a"}, {ID: "a"}})
		require.ErrorContains(t, err, "duplicate op a")
	})

	t.Run("empty ids are rejected", func(t *testing.T) {
		_, err := NewMemo(OpStack{{ID: "a"}, {}})
		require.ErrorContains(t, err, "position 1")
	})
}

func TestMemoizedOpUserError(t *testing.T) {
	tests := []struct {
		name     string
		op       MemoizedOp
		expected *UserError
	}{
		{
			name:     "no error",
			op:       MemoizedOp{ID: "a", Data: json.RawMessage(`1`)},
			expected: nil,
		},
		{
			name:     "null error",
			op:       MemoizedOp{ID: "a", Error: json.RawMessage(`null`)},
			expected: nil,
		},
		{
			name:     "string error",
			op:       MemoizedOp{ID: "a", Error: json.RawMessage(`"B"`)},
			expected: &UserError{Name: "Error", Message: "B"},
		},
		{
			name: "object error",
			op: MemoizedOp{
				ID:    "a",
				Error: json.RawMessage(`{"name":"TypeError","message":"nope","stack":"at x"}`),
			},
			expected: &UserError{Name: "TypeError", Message: "nope", Stack: "at x"},
		},
		{
			name:     "object error without a name",
			op:       MemoizedOp{ID: "a", Error: json.RawMessage(`{"message":"nope"}`)},
			expected: &UserError{Name: "Error", Message: "nope"},
		},
		{
			name:     "unknown shape",
			op:       MemoizedOp{ID: "a", Error: json.RawMessage(`[1,2]`)},
			expected: &UserError{Name: "Error", Message: "[1,2]"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expected, test.op.UserError())
		})
	}
}

func TestMemoizedOpEnvelope(t *testing.T) {
	tests := []struct {
		name     string
		op       MemoizedOp
		expected MemoizedOp
	}{
		{
			name:     "data",
			op:       MemoizedOp{ID: "a", Data: json.RawMessage(`{"data":{"ok":true}}`)},
			expected: MemoizedOp{ID: "a", Data: json.RawMessage(`{"ok":true}`)},
		},
		{
			name:     "error",
			op:       MemoizedOp{ID: "a", Data: json.RawMessage(`{"error":{"message":"nope"}}`)},
			expected: MemoizedOp{ID: "a", Error: json.RawMessage(`{"message":"nope"}`)},
		},
		{
			name:     "null error with data",
			op:       MemoizedOp{ID: "a", Data: json.RawMessage(`{"error":null,"data":1}`)},
			expected: MemoizedOp{ID: "a", Data: json.RawMessage(`1`)},
		},
		{
			name:     "plain values",
			op:       MemoizedOp{ID: "a", Data: json.RawMessage(`"A"`)},
			expected: MemoizedOp{ID: "a", Data: json.RawMessage(`"A"`)},
		},
		{
			name:     "objects without an envelope",
			op:       MemoizedOp{ID: "a", Data: json.RawMessage(`{"ok":true}`)},
			expected: MemoizedOp{ID: "a", Data: json.RawMessage(`{"ok":true}`)},
		},
		{
			name:     "existing errors",
			op:       MemoizedOp{ID: "a", Error: json.RawMessage(`"B"`)},
			expected: MemoizedOp{ID: "a", Error: json.RawMessage(`"B"`)},
		},
		{
			name:     "empty",
			op:       MemoizedOp{ID: "a"},
			expected: MemoizedOp{ID: "a"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expected, test.op.Envelope())
		})
	}
}
