package step

import (
	"context"
	"fmt"
	"time"

	"github.com/inngest/inngestsdk/pkg/enums"
	"github.com/inngest/inngestsdk/pkg/execution/state"
	str2duration "github.com/xhit/go-str2duration/v2"
)

var (
	// ErrEventNotReceived is returned when a WaitForEvent call times out.  It indicates that a
	// matching event was not received before the timeout.
	ErrEventNotReceived = fmt.Errorf("event not received")
)

type WaitForEventOpts struct {
	// Event is the event name to wait for.
	Event string
	// Timeout is how long to wait.  We must always timebound event listeners.
	Timeout time.Duration
	// If allows you to write arbitrary expressions to match against.
	If *string
}

// WaitForEvent pauses function execution until a specific event is received or the wait times
// out.  You must pass in an event name within WaitForEventOpts.Event, and may pass an optional
// expression to filter events based off of data.
//
// For example:
//
//	step.WaitForEvent[event.Event](ctx, "wait-for-open", step.WaitForEventOpts{
//		Event:   "email/mail.opened",
//		If:      inngest.StrPtr(fmt.Sprintf("async.data.id == %s", strconv.Quote("my-id"))),
//		Timeout: 24 * time.Hour,
//	})
func WaitForEvent[T any](ctx context.Context, id string, opts WaitForEventOpts) (T, error) {
	mgr := preflight(ctx)
	args := state.WaitForEventOpts{
		Event:   opts.Event,
		Timeout: str2duration.String(opts.Timeout),
		If:      opts.If,
	}

	res := mgr.Declare(ctx, enums.OpcodeWaitForEvent, id, args.Map(), nil)
	if len(res.Data) == 0 || string(res.Data) == "null" {
		var zero T
		return zero, ErrEventNotReceived
	}
	return unmarshal[T](mgr, id, res.Data), nil
}
