package event

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"
)

func TestEventValidate(t *testing.T) {
	require.ErrorIs(t, Event{}.Validate(), ErrMissingName)
	require.ErrorIs(t, Event{Name: "  "}.Validate(), ErrMissingName)
	require.NoError(t, Event{Name: "user/signed.up"}.Validate())
	require.True(t, Event{Name: "inngest/function.failed"}.IsInternal())
	require.False(t, Event{Name: "user/signed.up"}.IsInternal())
}

func TestNormalize(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	evts := []Event{
		{Name: "a"},
		{Name: "b", ID: "custom", Timestamp: 10},
	}

	first := Normalize("step-id", at, evts)
	second := Normalize("step-id", at, evts)
	require.Equal(t, first, second)

	id, err := ulid.Parse(first[0].ID)
	require.NoError(t, err)
	require.Equal(t, uint64(at.UnixMilli()), id.Time())
	require.Equal(t, at.UnixMilli(), first[0].Timestamp)
	require.NotNil(t, first[0].Data)

	require.Equal(t, "custom", first[1].ID)
	require.EqualValues(t, 10, first[1].Timestamp)

	other := Normalize("other-step", at, evts)
	require.NotEqual(t, first[0].ID, other[0].ID)

	// The input is left untouched.
	require.Empty(t, evts[0].ID)
}

func TestParseFailureEvent(t *testing.T) {
	byt := json.RawMessage(`{
		"name": "inngest/function.failed",
		"data": {
			"event": {"name": "foo", "data": {"a": 1}},
			"function_id": "test",
			"run_id": "01H",
			"error": {"name": "Error", "message": "boom"}
		}
	}`)

	require.True(t, IsFailureEvent(byt))
	fe, err := ParseFailureEvent(byt)
	require.NoError(t, err)
	require.Equal(t, "test", fe.Data.FunctionID)
	require.Equal(t, "Error: boom", fe.Data.Error.Error())
	require.JSONEq(t, `{"name": "foo", "data": {"a": 1}}`, string(fe.Data.Event))

	_, err = ParseFailureEvent(json.RawMessage(`{"name":"foo"}`))
	require.ErrorContains(t, err, "not a failure event")
	require.False(t, IsFailureEvent(json.RawMessage(`{"name":"foo"}`)))
}
