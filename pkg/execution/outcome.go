package execution

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/inngest/inngestsdk/pkg/execution/state"
	"github.com/inngest/inngestsdk/pkg/headers"
	"github.com/inngest/inngestsdk/pkg/sdkerrors"
	"github.com/inngest/inngestsdk/pkg/syscode"
)

type OutcomeType string

const (
	// OutcomeComplete is returned when the function body returned and every
	// step it declared has resolved.
	OutcomeComplete OutcomeType = "complete"
	// OutcomeRun is returned when a single step was executed within the tick.
	OutcomeRun OutcomeType = "run"
	// OutcomeDiscovery reports the new steps found in the tick, which may be
	// empty.
	OutcomeDiscovery OutcomeType = "discovery"
)

// Outcome is the result of a tick.
type Outcome struct {
	Type OutcomeType
	// Data is the function's return value for OutcomeComplete.
	Data any
	// Op is the executed step for OutcomeRun.
	Op *state.GeneratorOpcode
	// Ops are the discovered steps for OutcomeDiscovery.
	Ops []state.GeneratorOpcode
	// RetryAt is the time at which a failed step asked to be retried.
	RetryAt *time.Time
}

func NewComplete(data any) *Outcome {
	return &Outcome{Type: OutcomeComplete, Data: data}
}

func NewRun(op state.GeneratorOpcode) *Outcome {
	return &Outcome{Type: OutcomeRun, Op: &op}
}

func NewDiscovery(ops []state.GeneratorOpcode) *Outcome {
	if ops == nil {
		ops = []state.GeneratorOpcode{}
	}
	return &Outcome{Type: OutcomeDiscovery, Ops: ops}
}

// NoRetry returns whether the outcome holds a step error which must not be
// retried.
func (o Outcome) NoRetry() bool {
	return o.Op != nil && o.Op.Error != nil && o.Op.Error.NoRetry
}

// MarshalJSON encodes the outcome as its wire tuple, eg. ["run", {...}].
func (o Outcome) MarshalJSON() ([]byte, error) {
	switch o.Type {
	case OutcomeComplete:
		return json.Marshal([]any{o.Type, o.Data})
	case OutcomeRun:
		if o.Op == nil {
			return nil, fmt.Errorf("run outcome has no op")
		}
		return json.Marshal([]any{o.Type, o.Op})
	case OutcomeDiscovery:
		ops := o.Ops
		if ops == nil {
			ops = []state.GeneratorOpcode{}
		}
		return json.Marshal([]any{o.Type, ops})
	default:
		return nil, fmt.Errorf("unknown outcome type: %q", o.Type)
	}
}

// UnmarshalJSON decodes an outcome from its wire tuple.
func (o *Outcome) UnmarshalJSON(byt []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(byt, &tuple); err != nil {
		return err
	}
	if len(tuple) != 2 {
		return fmt.Errorf("outcome must have two elements, got %d", len(tuple))
	}
	if err := json.Unmarshal(tuple[0], &o.Type); err != nil {
		return err
	}

	switch o.Type {
	case OutcomeComplete:
		return json.Unmarshal(tuple[1], &o.Data)
	case OutcomeRun:
		o.Op = &state.GeneratorOpcode{}
		return json.Unmarshal(tuple[1], o.Op)
	case OutcomeDiscovery:
		return json.Unmarshal(tuple[1], &o.Ops)
	default:
		return fmt.Errorf("unknown outcome type: %q", o.Type)
	}
}

// Response is an HTTP response for the orchestrator.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Write writes the response to w.
func (r Response) Write(w http.ResponseWriter) error {
	for k, v := range r.Header {
		for _, val := range v {
			w.Header().Add(k, val)
		}
	}
	w.WriteHeader(r.Status)
	_, err := w.Write(r.Body)
	return err
}

// HTTPResponse maps the outcome to the response sent to the orchestrator.
// Completed functions return 200 with their output.  Steps are returned as an
// array of ops with a 206.
func (o Outcome) HTTPResponse() (Response, error) {
	resp := Response{Header: http.Header{}}
	resp.Header.Set(headers.HeaderKeyContentType, "application/json")

	var (
		body any
		err  error
	)
	switch o.Type {
	case OutcomeComplete:
		resp.Status = http.StatusOK
		body = o.Data
	case OutcomeRun:
		resp.Status = http.StatusPartialContent
		body = []state.GeneratorOpcode{*o.Op}
		resp.Header.Set(headers.HeaderKeyNoRetry, strconv.FormatBool(o.NoRetry()))
		if o.RetryAt != nil {
			resp.Header.Set(headers.HeaderKeyRetryAfter, o.RetryAt.UTC().Format(time.RFC3339))
		}
	case OutcomeDiscovery:
		resp.Status = http.StatusPartialContent
		body = o.Ops
		if o.Ops == nil {
			body = []state.GeneratorOpcode{}
		}
	default:
		return resp, fmt.Errorf("unknown outcome type: %q", o.Type)
	}

	resp.Body, err = json.Marshal(body)
	return resp, err
}

// ErrorResponse maps an error returned from Execute to the response sent to
// the orchestrator.
func ErrorResponse(err error) Response {
	resp := Response{
		Status: http.StatusInternalServerError,
		Header: http.Header{},
	}
	resp.Header.Set(headers.HeaderKeyContentType, "application/json")

	var (
		body    any
		noRetry bool
		sysErr  *syscode.Error
		result  *sdkerrors.OutgoingResultError
	)

	switch {
	case syscode.IsDeterminismViolation(err):
		errors.As(err, &sysErr)
		body = sysErr
		noRetry = true
	case errors.As(err, &result):
		body = state.NewUserError(result.Result.Error)
		noRetry = !result.Retryable()
		if at := sdkerrors.GetRetryAtTime(result.Result.Error); at != nil {
			resp.Header.Set(headers.HeaderKeyRetryAfter, at.UTC().Format(time.RFC3339))
		}
	case errors.As(err, &sysErr):
		body = sysErr
	default:
		body = state.NewUserError(err)
		noRetry = sdkerrors.IsNoRetryError(err)
	}

	resp.Header.Set(headers.HeaderKeyNoRetry, strconv.FormatBool(noRetry))
	byt, merr := json.Marshal(body)
	if merr != nil {
		byt, _ = json.Marshal(map[string]string{"message": err.Error()})
	}
	resp.Body = byt
	return resp
}
