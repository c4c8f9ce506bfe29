package event

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/inngest/inngestsdk/pkg/consts"
)

var (
	ErrMissingName = errors.New("events must have a name")
	// ErrReservedName is returned when sending an event whose name uses the
	// internal prefix.
	ErrReservedName = errors.New("event names starting with \"inngest/\" are reserved")
)

func NewEvent(data string) (*Event, error) {
	evt := &Event{}
	if err := json.Unmarshal([]byte(data), evt); err != nil {
		return nil, err
	}

	return evt, nil
}

// Event represents an event sent to and received from the orchestrator.
type Event struct {
	Name string         `json:"name"`
	Data map[string]any `json:"data"`

	// User represents user-specific information for the event.
	User map[string]any `json:"user,omitempty"`

	// ID represents the unique ID for this particular event.  If supplied, we should attempt
	// to only ingest this event once.
	ID string `json:"id,omitempty"`

	// Timestamp is the time the event occurred, at millisecond precision.
	// If this is not provided, the current time is inserted upon receipt of the event
	Timestamp int64  `json:"ts,omitempty"`
	Version   string `json:"v,omitempty"`
}

func (evt Event) Validate() error {
	if strings.TrimSpace(evt.Name) == "" {
		return ErrMissingName
	}
	return nil
}

// IsInternal returns whether the event was generated by the orchestrator.
func (evt Event) IsInternal() bool {
	return strings.HasPrefix(evt.Name, consts.InternalNamePrefix)
}

func (evt Event) Map() map[string]any {
	if evt.Data == nil {
		evt.Data = make(map[string]any)
	}
	if evt.User == nil {
		evt.User = make(map[string]any)
	}

	data := map[string]any{
		"name": evt.Name,
		"data": evt.Data,
		"user": evt.User,
		"id":   evt.ID,
		// We cast to float64 because marshalling and unmarshalling from
		// JSON automatically uses float64 as its type;  JS has no notion
		// of ints.
		"ts": float64(evt.Timestamp),
	}

	if evt.Version != "" {
		data["v"] = evt.Version
	}

	return data
}
