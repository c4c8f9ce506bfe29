package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/inngest/inngestsdk/pkg/enums"
	"github.com/inngest/inngestsdk/pkg/sdkerrors"
	"github.com/xhit/go-str2duration/v2"
)

// GeneratorOpcode is a single op reported to the orchestrator, either as a
// discovered op or as a step which was executed during the tick.
type GeneratorOpcode struct {
	// Op represents the type of operation invoked in the function.
	Op enums.Opcode `json:"op"`
	// ID represents a hashed unique ID for the operation.  This acts
	// as the generated step ID for the state store.
	ID string `json:"id"`
	// Name represents the user-supplied name of the step.
	Name string `json:"name"`
	// Opts indicate options for the operation, eg. matching expressions
	// when setting up async event listeners via `waitForEvent`, or the
	// duration of a sleep.
	Opts map[string]any `json:"opts,omitempty"`
	// Data is the resulting data from the operation, eg. the step
	// output.
	Data json.RawMessage `json:"data,omitempty"`
	// Error is set when the step's callback failed.
	Error *UserError `json:"error,omitempty"`
}

// Planned returns the op as it's reported within a discovery batch.  Run ops
// are reported as planned steps;  everything else keeps its own opcode.
func (g GeneratorOpcode) Planned() GeneratorOpcode {
	if g.Op.IsRunnable() {
		g.Op = enums.OpcodeStepPlanned
	}
	g.Data = nil
	g.Error = nil
	return g
}

func (g GeneratorOpcode) WaitForEventOpts() (*WaitForEventOpts, error) {
	if g.Op != enums.OpcodeWaitForEvent {
		return nil, fmt.Errorf("unable to return wait opts for opcode %s", g.Op)
	}
	opts := &WaitForEventOpts{}
	if err := g.decodeOpts(opts); err != nil {
		return nil, err
	}
	if opts.Event == "" {
		return nil, fmt.Errorf("An event name must be provided when waiting for an event")
	}
	return opts, nil
}

func (g GeneratorOpcode) InvokeFunctionOpts() (*InvokeFunctionOpts, error) {
	if g.Op != enums.OpcodeInvokeFunction {
		return nil, fmt.Errorf("unable to return invoke opts for opcode %s", g.Op)
	}
	opts := &InvokeFunctionOpts{}
	if err := g.decodeOpts(opts); err != nil {
		return nil, err
	}
	if opts.FunctionID == "" {
		return nil, fmt.Errorf("A function ID must be provided when invoking a function")
	}
	return opts, nil
}

// SleepDuration returns how long the op sleeps for, relative to now.
func (g GeneratorOpcode) SleepDuration(now time.Time) (time.Duration, error) {
	if g.Op != enums.OpcodeSleep {
		return 0, fmt.Errorf("unable to return sleep duration for opcode %s", g.Op.String())
	}
	opts := SleepOpts{}
	if err := g.decodeOpts(&opts); err != nil {
		return 0, err
	}
	if opts.Until != "" {
		t, err := time.Parse(time.RFC3339, opts.Until)
		if err != nil {
			return 0, err
		}
		return t.Sub(now).Round(time.Second), nil
	}
	return str2duration.ParseDuration(opts.Duration)
}

func (g GeneratorOpcode) decodeOpts(v any) error {
	byt, err := json.Marshal(g.Opts)
	if err != nil {
		return err
	}
	return json.Unmarshal(byt, v)
}

type SleepOpts struct {
	// Duration is a duration string, eg. "2h30m".
	Duration string `json:"duration,omitempty"`
	// Until is an RFC3339 timestamp.
	Until string `json:"until,omitempty"`
}

func (s SleepOpts) Map() map[string]any {
	m := map[string]any{}
	if s.Duration != "" {
		m["duration"] = s.Duration
	}
	if s.Until != "" {
		m["until"] = s.Until
	}
	return m
}

type WaitForEventOpts struct {
	Event   string  `json:"event"`
	Timeout string  `json:"timeout"`
	If      *string `json:"if,omitempty"`
}

func (w WaitForEventOpts) Map() map[string]any {
	m := map[string]any{
		"event":   w.Event,
		"timeout": w.Timeout,
	}
	if w.If != nil {
		m["if"] = *w.If
	}
	return m
}

func (w WaitForEventOpts) Expires(now time.Time) (time.Time, error) {
	dur, err := str2duration.ParseDuration(w.Timeout)
	if err != nil {
		return time.Time{}, err
	}
	return now.Add(dur), nil
}

type InvokeFunctionOpts struct {
	FunctionID string          `json:"function_id"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Timeout    string          `json:"timeout,omitempty"`
}

func (i InvokeFunctionOpts) Map() map[string]any {
	m := map[string]any{
		"function_id": i.FunctionID,
	}
	if len(i.Payload) > 0 {
		m["payload"] = i.Payload
	}
	if i.Timeout != "" {
		m["timeout"] = i.Timeout
	}
	return m
}

// UserError is the error recorded for a failed step.
type UserError struct {
	Name    string          `json:"name"`
	Message string          `json:"message"`
	Stack   string          `json:"stack,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	// NoRetry is set when the error must not be retried.
	NoRetry bool `json:"noRetry,omitempty"`
}

func (u UserError) Error() string {
	return u.Message
}

// NewUserError converts an error returned from user code into a UserError.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}

	ue := &UserError{
		Name:    "Error",
		Message: err.Error(),
		NoRetry: sdkerrors.IsNoRetryError(err),
	}
	if ue.NoRetry {
		ue.Name = "NonRetriableError"
	}

	var se sdkerrors.StepError
	if errors.As(err, &se) {
		ue.Name = se.Name
		ue.Data = se.Data
	}

	var pe sdkerrors.PanicError
	if errors.As(err, &pe) {
		ue.Name = "Panic"
		ue.Stack = pe.Stack
	}
	return ue
}
