package function

import (
	"fmt"
	"net/url"

	"github.com/inngest/inngestsdk/pkg/consts"
	"github.com/inngest/inngestsdk/pkg/inngest"
	"github.com/inngest/inngestsdk/pkg/sdk"
)

// Config returns the registration config for the function served at appURL.
// Functions with a failure handler return a second config for the handler,
// triggered by the function's failure events.
func Config(fn ServableFunction, appURL *url.URL) []sdk.SDKFunction {
	opts := fn.Config()

	triggers := []inngest.Trigger{}
	if fn.Trigger() != nil {
		triggers = fn.Trigger().Triggers()
	}

	cancel := make([]inngest.Cancel, 0, len(opts.Cancel))
	for _, c := range opts.Cancel {
		cancel = append(cancel, c.Config())
	}

	var retries *sdk.StepRetries
	if opts.Retries != nil {
		retries = &sdk.StepRetries{Attempts: *opts.Retries}
	}

	cfg := sdk.SDKFunction{
		Name:        opts.Name,
		Slug:        opts.ID,
		Triggers:    triggers,
		Concurrency: opts.Concurrency,
		Steps:       steps(appURL, opts.ID, retries),
	}
	if len(cancel) > 0 {
		cfg.Cancel = cancel
	}

	if !fn.HasFailureHandler() {
		return []sdk.SDKFunction{cfg}
	}

	failureID := inngest.GetFailureHandlerSlug(opts.ID)
	expr := fmt.Sprintf("event.data.function_id == '%s'", opts.ID)
	failure := sdk.SDKFunction{
		Name:     inngest.GetFailureHandlerName(opts.Name),
		Slug:     failureID,
		Triggers: []inngest.Trigger{inngest.NewEventTrigger(consts.FnFailedName, &expr)},
		Steps:    steps(appURL, failureID, nil),
	}
	return []sdk.SDKFunction{cfg, failure}
}

func steps(appURL *url.URL, fnID string, retries *sdk.StepRetries) map[string]sdk.SDKStep {
	rt := inngest.NewRuntimeHTTP(appURL, fnID, consts.DefaultStepID)
	return map[string]sdk.SDKStep{
		consts.DefaultStepID: {
			ID:      consts.DefaultStepID,
			Name:    consts.DefaultStepID,
			Runtime: rt.Map(),
			Retries: retries,
		},
	}
}
