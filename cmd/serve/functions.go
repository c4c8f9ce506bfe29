package serve

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/inngest/inngestsdk/pkg/event"
	"github.com/inngest/inngestsdk/pkg/function"
	"github.com/inngest/inngestsdk/pkg/group"
	"github.com/inngest/inngestsdk/pkg/inngest"
	"github.com/inngest/inngestsdk/pkg/logger"
	"github.com/inngest/inngestsdk/pkg/step"
)

type SignupEvent struct {
	Name string `json:"name"`
	Data struct {
		UserID string `json:"user_id"`
		Email  string `json:"email"`
	} `json:"data"`
}

// Functions returns the demo functions served by the serve command.
func Functions() ([]function.ServableFunction, error) {
	onboard, err := function.New(
		function.Opts{
			Name:    "Onboard user",
			Retries: inngest.IntPtr(3),
			Cancel:  []inngest.Cancel{{Event: "demo/user.deleted", Match: "data.user_id"}},
			OnFailure: func(ctx context.Context, in function.FailureInput) (any, error) {
				logger.StdlibLogger(ctx).Error("onboarding failed", "user_id", in.Event.Data["user_id"], "error", in.Error)
				return nil, nil
			},
		},
		inngest.NewEventTrigger("demo/user.signed_up", nil),
		onboardUser,
	)
	if err != nil {
		return nil, err
	}

	digest, err := function.New(
		function.Opts{
			Name:        "Daily digest",
			Concurrency: []inngest.Concurrency{{Limit: 1}},
		},
		inngest.NewCronTrigger("0 9 * * *"),
		dailyDigest,
	)
	if err != nil {
		return nil, err
	}

	return []function.ServableFunction{onboard, digest}, nil
}

func onboardUser(ctx context.Context, in function.Input[SignupEvent]) (any, error) {
	l := logger.StdlibLogger(ctx)
	l.Info("onboarding user", "user_id", in.Event.Data.UserID)

	profile, err := step.Run(ctx, "create-profile", func(ctx context.Context) (map[string]string, error) {
		return map[string]string{"id": in.Event.Data.UserID, "email": in.Event.Data.Email}, nil
	})
	if err != nil {
		return nil, err
	}

	step.Sleep(ctx, "wait-a-day", 24*time.Hour)

	opened, err := step.WaitForEvent[event.Event](ctx, "wait-for-open", step.WaitForEventOpts{
		Event:   "demo/email.opened",
		If:      inngest.StrPtr("event.data.user_id == async.data.user_id"),
		Timeout: 72 * time.Hour,
	})
	if errors.Is(err, step.ErrEventNotReceived) {
		_, err = step.Run(ctx, "send-reminder", func(ctx context.Context) (string, error) {
			return fmt.Sprintf("reminded %s", profile["email"]), nil
		})
		return map[string]any{"opened": false}, err
	}

	return map[string]any{"opened": true, "at": opened.Timestamp}, nil
}

func dailyDigest(ctx context.Context, in function.Input[event.Event]) (any, error) {
	results := group.Parallel(ctx,
		func(ctx context.Context) (any, error) {
			return step.Run(ctx, "count-signups", func(ctx context.Context) (int, error) {
				return 42, nil
			})
		},
		func(ctx context.Context) (any, error) {
			return step.Run(ctx, "count-orders", func(ctx context.Context) (int, error) {
				return 7, nil
			})
		},
	)
	if err := results.AnyError(); err != nil {
		return nil, err
	}

	return step.Run(ctx, "publish-digest", func(ctx context.Context) (string, error) {
		return fmt.Sprintf("%v signups, %v orders", results[0].Value, results[1].Value), nil
	})
}
