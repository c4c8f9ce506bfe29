package step

import (
	"context"
	"fmt"

	"github.com/inngest/inngestsdk/pkg/event"
	"github.com/inngest/inngestsdk/pkg/sdkrequest"
)

// Send sends an event, returning its ID.
func Send(ctx context.Context, id string, evt event.Event) (string, error) {
	return Run(ctx, id, func(ctx context.Context) (string, error) {
		ids, err := send(ctx, []event.Event{evt})
		if err != nil || len(ids) == 0 {
			return "", err
		}
		return ids[0], nil
	})
}

// SendMany sends a batch of events, returning their IDs.
func SendMany(ctx context.Context, id string, evts []event.Event) ([]string, error) {
	return Run(ctx, id, func(ctx context.Context) ([]string, error) {
		return send(ctx, evts)
	})
}

func send(ctx context.Context, evts []event.Event) ([]string, error) {
	sender, ok := event.SenderFromContext(ctx)
	if !ok {
		return nil, event.ErrNoSender
	}
	for _, evt := range evts {
		if err := evt.Validate(); err != nil {
			return nil, err
		}
		if evt.IsInternal() {
			return nil, fmt.Errorf("%w: %s", event.ErrReservedName, evt.Name)
		}
	}

	mgr := preflight(ctx)
	seed, _ := sdkrequest.StepID(ctx)
	return sender.Send(ctx, event.Normalize(seed, mgr.Clock().Now(), evts)...)
}
