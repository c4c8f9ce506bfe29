package step

import (
	"context"
	"time"

	"github.com/inngest/inngestsdk/pkg/enums"
	"github.com/inngest/inngestsdk/pkg/execution/state"
	str2duration "github.com/xhit/go-str2duration/v2"
)

// Sleep pauses the function for the given duration.
func Sleep(ctx context.Context, id string, duration time.Duration) {
	mgr := preflight(ctx)
	opts := state.SleepOpts{Duration: str2duration.String(duration)}
	mgr.Declare(ctx, enums.OpcodeSleep, id, opts.Map(), nil)
}

// SleepUntil pauses the function until the given time.
func SleepUntil(ctx context.Context, id string, until time.Time) {
	mgr := preflight(ctx)
	opts := state.SleepOpts{Until: until.UTC().Format(time.RFC3339)}
	mgr.Declare(ctx, enums.OpcodeSleep, id, opts.Map(), nil)
}
