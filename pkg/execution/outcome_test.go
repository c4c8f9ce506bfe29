package execution

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/inngest/inngestsdk/pkg/enums"
	"github.com/inngest/inngestsdk/pkg/execution/state"
	"github.com/inngest/inngestsdk/pkg/headers"
	"github.com/inngest/inngestsdk/pkg/sdkerrors"
	"github.com/inngest/inngestsdk/pkg/syscode"
	"github.com/stretchr/testify/require"
)

func TestOutcomeHTTPResponse(t *testing.T) {
	retryAt := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name    string
		outcome *Outcome
		status  int
		body    string
		noRetry string
		retry   string
	}{
		{
			name:    "complete",
			outcome: NewComplete(map[string]any{"ok": true}),
			status:  http.StatusOK,
			body:    `{"ok":true}`,
		},
		{
			name:    "complete with no data",
			outcome: NewComplete(nil),
			status:  http.StatusOK,
			body:    `null`,
		},
		{
			name: "run",
			outcome: NewRun(state.GeneratorOpcode{
				ID:   "a",
				Op:   enums.OpcodeStep,
				Name: "A",
				Data: json.RawMessage(`"A"`),
			}),
			status:  http.StatusPartialContent,
			body:    `[{"id":"a","op":"Step","name":"A","data":"A"}]`,
			noRetry: "false",
		},
		{
			name: "run with a final error",
			outcome: NewRun(state.GeneratorOpcode{
				ID:    "a",
				Op:    enums.OpcodeStep,
				Name:  "A",
				Error: &state.UserError{Name: "NonRetriableError", Message: "no", NoRetry: true},
			}),
			status:  http.StatusPartialContent,
			body:    `[{"id":"a","op":"Step","name":"A","error":{"name":"NonRetriableError","message":"no","noRetry":true}}]`,
			noRetry: "true",
		},
		{
			name: "run with a retry time",
			outcome: &Outcome{
				Type: OutcomeRun,
				Op: &state.GeneratorOpcode{
					ID:    "a",
					Op:    enums.OpcodeStep,
					Name:  "A",
					Error: &state.UserError{Name: "Error", Message: "later"},
				},
				RetryAt: &retryAt,
			},
			status:  http.StatusPartialContent,
			body:    `[{"id":"a","op":"Step","name":"A","error":{"name":"Error","message":"later"}}]`,
			noRetry: "false",
			retry:   "2030-01-02T03:04:05Z",
		},
		{
			name: "discovery",
			outcome: NewDiscovery([]state.GeneratorOpcode{
				{ID: "a", Op: enums.OpcodeStepPlanned, Name: "A"},
				{ID: "b", Op: enums.OpcodeSleep, Name: "B", Opts: map[string]any{"duration": "1h"}},
			}),
			status: http.StatusPartialContent,
			body:   `[{"id":"a","op":"StepPlanned","name":"A"},{"id":"b","op":"Sleep","name":"B","opts":{"duration":"1h"}}]`,
		},
		{
			name:    "empty discovery",
			outcome: NewDiscovery(nil),
			status:  http.StatusPartialContent,
			body:    `[]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := tt.outcome.HTTPResponse()
			require.NoError(t, err)
			require.Equal(t, tt.status, resp.Status)
			require.JSONEq(t, tt.body, string(resp.Body))
			require.Equal(t, "application/json", resp.Header.Get(headers.HeaderKeyContentType))
			require.Equal(t, tt.noRetry, resp.Header.Get(headers.HeaderKeyNoRetry))
			require.Equal(t, tt.retry, resp.Header.Get(headers.HeaderKeyRetryAfter))
		})
	}

	t.Run("unknown outcomes error", func(t *testing.T) {
		_, err := Outcome{Type: "nope"}.HTTPResponse()
		require.Error(t, err)
	})
}

func TestErrorResponse(t *testing.T) {
	t.Run("determinism violations are never retried", func(t *testing.T) {
		resp := ErrorResponse(syscode.NewNonDeterministicFunction(1, "abc", "it was never declared"))
		require.Equal(t, http.StatusInternalServerError, resp.Status)
		require.Equal(t, "true", resp.Header.Get(headers.HeaderKeyNoRetry))

		body := map[string]any{}
		require.NoError(t, json.Unmarshal(resp.Body, &body))
		require.Equal(t, syscode.CodeNonDeterministicFunction, body["code"])
	})

	t.Run("function errors are retried", func(t *testing.T) {
		resp := ErrorResponse(sdkerrors.NewOutgoingResultError(errors.New("boom")))
		require.Equal(t, http.StatusInternalServerError, resp.Status)
		require.Equal(t, "false", resp.Header.Get(headers.HeaderKeyNoRetry))
		require.JSONEq(t, `{"name":"Error","message":"boom"}`, string(resp.Body))
	})

	t.Run("unhandled step errors are final", func(t *testing.T) {
		resp := ErrorResponse(sdkerrors.NewOutgoingResultError(sdkerrors.StepError{Name: "Error", Message: "step failed"}))
		require.Equal(t, "true", resp.Header.Get(headers.HeaderKeyNoRetry))
		require.JSONEq(t, `{"name":"Error","message":"step failed"}`, string(resp.Body))
	})

	t.Run("retry at errors set Retry-After", func(t *testing.T) {
		at := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
		resp := ErrorResponse(sdkerrors.NewOutgoingResultError(sdkerrors.RetryAtError(errors.New("later"), at)))
		require.Equal(t, "false", resp.Header.Get(headers.HeaderKeyNoRetry))
		require.Equal(t, "2030-01-02T03:04:05Z", resp.Header.Get(headers.HeaderKeyRetryAfter))
	})

	t.Run("system errors", func(t *testing.T) {
		resp := ErrorResponse(&syscode.Error{Code: syscode.CodeStepNotFound, Message: "missing"})
		require.Equal(t, "false", resp.Header.Get(headers.HeaderKeyNoRetry))
		require.JSONEq(t, `{"code":"step_not_found","message":"missing"}`, string(resp.Body))
	})

	t.Run("plain errors", func(t *testing.T) {
		resp := ErrorResponse(sdkerrors.NoRetryError(errors.New("stop")))
		require.Equal(t, "true", resp.Header.Get(headers.HeaderKeyNoRetry))
	})

	t.Run("writes to a response writer", func(t *testing.T) {
		w := httptest.NewRecorder()
		require.NoError(t, ErrorResponse(errors.New("boom")).Write(w))
		require.Equal(t, http.StatusInternalServerError, w.Code)
		require.Equal(t, "false", w.Header().Get(headers.HeaderKeyNoRetry))
		require.JSONEq(t, `{"name":"Error","message":"boom"}`, w.Body.String())
	})
}

func TestOutcomeTuple(t *testing.T) {
	byt, err := json.Marshal(NewDiscovery(nil))
	require.NoError(t, err)
	require.JSONEq(t, `["discovery",[]]`, string(byt))

	byt, err = json.Marshal(NewRun(state.GeneratorOpcode{ID: "a", Op: enums.OpcodeStep, Name: "A"}))
	require.NoError(t, err)
	require.JSONEq(t, `["run",{"id":"a","op":"Step","name":"A"}]`, string(byt))

	out := &Outcome{}
	require.NoError(t, json.Unmarshal([]byte(`["complete",{"ok":true}]`), out))
	require.Equal(t, OutcomeComplete, out.Type)
	require.Equal(t, map[string]any{"ok": true}, out.Data)

	require.Error(t, json.Unmarshal([]byte(`["complete"]`), &Outcome{}))
	require.Error(t, json.Unmarshal([]byte(`["other",1]`), &Outcome{}))
	_, err = json.Marshal(Outcome{Type: OutcomeRun})
	require.Error(t, err)
}
