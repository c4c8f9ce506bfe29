package event

import (
	"encoding/json"
	"fmt"

	"github.com/inngest/inngestsdk/pkg/consts"
)

// FailureEvent is the event which triggers a function's failure handler once
// the function has exhausted all retries.
type FailureEvent struct {
	Name string           `json:"name"`
	Data FailureEventData `json:"data"`
	ID   string           `json:"id,omitempty"`
	// Timestamp is the time the failure was recorded, in milliseconds.
	Timestamp int64 `json:"ts,omitempty"`
}

type FailureEventData struct {
	// Event is the event which triggered the failed run.
	Event      json.RawMessage `json:"event"`
	FunctionID string          `json:"function_id"`
	RunID      string          `json:"run_id"`
	Error      FailureError    `json:"error"`
}

type FailureError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

func (f FailureError) Error() string {
	if f.Name == "" {
		return f.Message
	}
	return fmt.Sprintf("%s: %s", f.Name, f.Message)
}

// ParseFailureEvent decodes a failure event, checking that it's a failure
// event at all.
func ParseFailureEvent(byt json.RawMessage) (*FailureEvent, error) {
	fe := &FailureEvent{}
	if err := json.Unmarshal(byt, fe); err != nil {
		return nil, fmt.Errorf("error decoding failure event: %w", err)
	}
	if fe.Name != consts.FnFailedName {
		return nil, fmt.Errorf("event %q is not a failure event", fe.Name)
	}
	return fe, nil
}

// IsFailureEvent returns whether the raw event is a function failure event.
func IsFailureEvent(byt json.RawMessage) bool {
	evt := struct {
		Name string `json:"name"`
	}{}
	if err := json.Unmarshal(byt, &evt); err != nil {
		return false
	}
	return evt.Name == consts.FnFailedName
}
