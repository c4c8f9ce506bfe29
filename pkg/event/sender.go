package event

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/oklog/ulid/v2"
)

var ErrNoSender = errors.New("no event sender configured")

// Sender sends events to the orchestrator, returning the IDs of the
// sent events.
type Sender interface {
	Send(ctx context.Context, evts ...Event) ([]string, error)
}

type senderKey struct{}

func WithSender(ctx context.Context, s Sender) context.Context {
	return context.WithValue(ctx, senderKey{}, s)
}

func SenderFromContext(ctx context.Context) (Sender, bool) {
	s, ok := ctx.Value(senderKey{}).(Sender)
	return s, ok && s != nil
}

// NewID returns a ULID for an event.  IDs generated with the same seed, index
// and time are identical, so that retrying a step sends duplicate events with
// the same ID.
func NewID(seed string, index int, at time.Time) string {
	return ulid.MustNew(ulid.Timestamp(at), entropy(seed, index)).String()
}

func entropy(seed string, index int) io.Reader {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", seed, index)))
	return &fixedReader{b: sum[:]}
}

type fixedReader struct {
	b []byte
}

func (f *fixedReader) Read(p []byte) (int, error) {
	n := copy(p, f.b)
	f.b = f.b[n:]
	if n < len(p) {
		return n, io.ErrUnexpectedEOF
	}
	return n, nil
}

// Normalize fills in the ID and timestamp of any events which are missing
// them.
func Normalize(seed string, at time.Time, evts []Event) []Event {
	out := make([]Event, len(evts))
	for n, evt := range evts {
		if evt.ID == "" {
			evt.ID = NewID(seed, n, at)
		}
		if evt.Timestamp == 0 {
			evt.Timestamp = at.UnixMilli()
		}
		if evt.Data == nil {
			evt.Data = map[string]any{}
		}
		out[n] = evt
	}
	return out
}

// NewEventID returns a random, time-ordered event ID.
func NewEventID() string {
	return ulid.Make().String()
}
