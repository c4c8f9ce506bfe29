package inngest

import (
	"context"
	"fmt"
	"strings"

	"github.com/inngest/inngestsdk/pkg/expressions"
	str2duration "github.com/xhit/go-str2duration/v2"
)

// Cancel represents a cancellation signal for a function.  When the given
// event is received and matches, the run is cancelled.
type Cancel struct {
	Event string `json:"event"`
	// Match is a dot-notation field which must be equal in the triggering
	// event and the cancellation event, eg. "data.user_id".  It's compiled
	// into If when registering.
	Match   string  `json:"-"`
	If      *string `json:"if,omitempty"`
	Timeout *string `json:"timeout,omitempty"`
}

// Expression returns the full `if` expression for the cancellation,
// combining Match and If.  It's nil when neither is set.
func (c Cancel) Expression() *string {
	var match string
	if c.Match != "" {
		field := strings.TrimPrefix(c.Match, ".")
		match = fmt.Sprintf("event.%s == async.%s", field, field)
	}

	switch {
	case match != "" && c.If != nil:
		expr := fmt.Sprintf("(%s) && (%s)", match, *c.If)
		return &expr
	case match != "":
		return &match
	default:
		return c.If
	}
}

// Config returns the cancellation as it's sent when registering.
func (c Cancel) Config() Cancel {
	return Cancel{
		Event:   c.Event,
		If:      c.Expression(),
		Timeout: c.Timeout,
	}
}

func (c Cancel) Validate(ctx context.Context) error {
	if c.Event == "" {
		return fmt.Errorf("A cancellation must specify an event name")
	}
	if c.Timeout != nil {
		if _, err := str2duration.ParseDuration(*c.Timeout); err != nil {
			return fmt.Errorf("invalid cancellation timeout '%s': %w", *c.Timeout, err)
		}
	}
	if expr := c.Expression(); expr != nil {
		if err := expressions.Validate(ctx, *expr); err != nil {
			return fmt.Errorf("invalid cancellation expression on '%s': %w", c.Event, err)
		}
	}
	return nil
}
