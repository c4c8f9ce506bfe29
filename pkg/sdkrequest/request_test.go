package sdkrequest

import (
	"encoding/json"
	"testing"

	"github.com/inngest/inngestsdk/pkg/execution/state"
	"github.com/stretchr/testify/require"
)

func TestRequestOpStack(t *testing.T) {
	t.Run("orders ops by the call stack", func(t *testing.T) {
		r := Request{
			Steps: map[string]json.RawMessage{
				"a": json.RawMessage(`{"data":"A"}`),
				"b": json.RawMessage(`{"error":{"name":"Error","message":"B"}}`),
				"c": json.RawMessage(`{"data":null}`),
			},
			CallCtx: CallCtx{Stack: CallStack{Stack: []string{"b", "c", "a"}}},
		}

		stack, err := r.OpStack()
		require.NoError(t, err)
		require.Equal(t, []string{"b", "c", "a"}, stack.IDs())
		require.True(t, stack[0].Envelope().HasError())
		require.Equal(t, "null", string(stack[1].Envelope().Data))
		require.Equal(t, `"A"`, string(stack[2].Envelope().Data))
	})

	t.Run("values are kept as recorded", func(t *testing.T) {
		r := Request{
			Steps: map[string]json.RawMessage{
				"wait": json.RawMessage(`{"name":"foo","data":{"foo":"foo"}}`),
				"none": json.RawMessage(`null`),
			},
			CallCtx: CallCtx{Stack: CallStack{Stack: []string{"wait", "none"}}},
		}

		stack, err := r.OpStack()
		require.NoError(t, err)
		require.JSONEq(t, `{"name":"foo","data":{"foo":"foo"}}`, string(stack[0].Data))
		require.False(t, stack[0].HasError())
		require.Nil(t, stack[1].Data)
	})

	t.Run("appends ops missing from the call stack in id order", func(t *testing.T) {
		r := Request{
			Steps: map[string]json.RawMessage{
				"z": json.RawMessage(`{"data":1}`),
				"y": json.RawMessage(`{"data":2}`),
				"x": json.RawMessage(`{"data":3}`),
			},
			CallCtx: CallCtx{Stack: CallStack{Stack: []string{"z"}}},
		}

		stack, err := r.OpStack()
		require.NoError(t, err)
		require.Equal(t, []string{"z", "x", "y"}, stack.IDs())
	})

	t.Run("plain values are data", func(t *testing.T) {
		r := Request{
			Steps:   map[string]json.RawMessage{"a": json.RawMessage(`"A"`), "b": json.RawMessage(`{"ok":true}`)},
			CallCtx: CallCtx{Stack: CallStack{Stack: []string{"a", "b"}}},
		}

		stack, err := r.OpStack()
		require.NoError(t, err)
		require.Equal(t, state.OpStack{
			{ID: "a", Data: json.RawMessage(`"A"`)},
			{ID: "b", Data: json.RawMessage(`{"ok":true}`)},
		}, stack)
	})

	t.Run("stack entries must have state", func(t *testing.T) {
		r := Request{CallCtx: CallCtx{Stack: CallStack{Stack: []string{"a"}}}}
		_, err := r.OpStack()
		require.ErrorContains(t, err, "has no state")
	})

	t.Run("stack entries must be unique", func(t *testing.T) {
		r := Request{
			Steps:   map[string]json.RawMessage{"a": json.RawMessage(`{"data":1}`)},
			CallCtx: CallCtx{Stack: CallStack{Stack: []string{"a", "a"}}},
		}
		_, err := r.OpStack()
		require.ErrorContains(t, err, "more than once")
	})
}

func TestRequestUnmarshal(t *testing.T) {
	body := `{
		"event": {"name": "test/event", "data": {"a": 1}},
		"events": [{"name": "test/event", "data": {"a": 1}}],
		"steps": {"a": {"data": "A"}},
		"ctx": {
			"fn_id": "8e2b4dd4-6d1e-4e3b-8c1c-6c0e7a1f2a3b",
			"run_id": "01HXYZ",
			"step_id": "step",
			"attempt": 2,
			"disable_immediate_execution": true,
			"stack": {"stack": ["a"], "current": 1}
		}
	}`

	r := Request{}
	require.NoError(t, json.Unmarshal([]byte(body), &r))
	require.Equal(t, "01HXYZ", r.CallCtx.RunID)
	require.Equal(t, 2, r.CallCtx.Attempt)
	require.True(t, r.CallCtx.DisableImmediateExecution)
	require.Equal(t, "8e2b4dd4-6d1e-4e3b-8c1c-6c0e7a1f2a3b", r.CallCtx.FunctionID.String())
	require.Len(t, r.Events, 1)

	stack, err := r.OpStack()
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, stack.IDs())
}
