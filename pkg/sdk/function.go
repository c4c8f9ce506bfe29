package sdk

import (
	"context"
	"fmt"
	"net/url"

	"github.com/hashicorp/go-multierror"
	"github.com/inngest/inngestsdk/pkg/consts"
	"github.com/inngest/inngestsdk/pkg/inngest"
)

// SDKFunction represents a function as specified via the SDK's registration request.
type SDKFunction struct {
	Name string `json:"name"`

	// ID is the function slug.
	Slug string `json:"id"`

	// Triggers represent the triggers which start this function.
	Triggers []inngest.Trigger `json:"triggers"`

	// Concurrency allows limiting the concurrency of running functions, optionally constrained
	// by an individual concurrency key.
	Concurrency []inngest.Concurrency `json:"concurrency,omitempty"`

	// Cancel specifies cancellation signals for the function
	Cancel []inngest.Cancel `json:"cancel,omitempty"`

	Steps map[string]SDKStep `json:"steps"`
}

// Validate checks the function's configuration, returning every issue found.
func (s SDKFunction) Validate(ctx context.Context) error {
	var err error

	if s.Slug == "" {
		err = multierror.Append(err, fmt.Errorf("Function '%s' has no ID", s.Name))
	}

	if terr := inngest.MultipleTriggers(s.Triggers).Validate(ctx); terr != nil {
		err = multierror.Append(err, terr)
	}

	if len(s.Cancel) > consts.MaxCancellations {
		err = multierror.Append(err, fmt.Errorf("This function exceeds the max number of cancellation events: %d", consts.MaxCancellations))
	}
	for _, c := range s.Cancel {
		if cerr := c.Validate(ctx); cerr != nil {
			err = multierror.Append(err, cerr)
		}
	}

	for _, c := range s.Concurrency {
		if cerr := c.Validate(ctx); cerr != nil {
			err = multierror.Append(err, cerr)
		}
	}

	if len(s.Steps) == 0 {
		err = multierror.Append(err, fmt.Errorf("Function has no steps: %s", s.Name))
	}
	for _, step := range s.Steps {
		if serr := step.Validate(); serr != nil {
			err = multierror.Append(err, serr)
		}
	}

	return err
}

// SDKStep represents the SDK's definition of a step.  Within an SDK there's
// a single step which runs the function from the top.
type SDKStep struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Runtime map[string]any `json:"runtime"`
	Retries *StepRetries   `json:"retries,omitempty"`
}

type StepRetries struct {
	Attempts int `json:"attempts"`
}

func (s SDKStep) Validate() error {
	raw, ok := s.Runtime["url"].(string)
	if !ok {
		return fmt.Errorf("No SDK URL provided for step '%s'", s.ID)
	}

	uri, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("Step '%s' has an invalid URI", s.ID)
	}
	switch uri.Scheme {
	case "http", "https":
	default:
		return fmt.Errorf("Step '%s' has an invalid driver. Only HTTP drivers may be used with SDK functions.", s.ID)
	}

	if s.Retries != nil && (s.Retries.Attempts < 0 || s.Retries.Attempts > consts.MaxRetries) {
		return fmt.Errorf("Step '%s' must have between 0 and %d retries", s.ID, consts.MaxRetries)
	}
	return nil
}
