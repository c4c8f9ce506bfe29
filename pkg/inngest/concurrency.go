package inngest

import (
	"context"
	"fmt"

	"github.com/inngest/inngestsdk/pkg/expressions"
)

const (
	ConcurrencyScopeFn      = "fn"
	ConcurrencyScopeEnv     = "env"
	ConcurrencyScopeAccount = "account"
)

// Concurrency limits how many steps of the function run at once, optionally
// keyed by an expression over the triggering event.
type Concurrency struct {
	Limit int     `json:"limit"`
	Key   *string `json:"key,omitempty"`
	Scope string  `json:"scope,omitempty"`
}

func (c Concurrency) Validate(ctx context.Context) error {
	if c.Limit <= 0 {
		return fmt.Errorf("concurrency limit must be greater than 0")
	}

	switch c.Scope {
	case "", ConcurrencyScopeFn, ConcurrencyScopeEnv, ConcurrencyScopeAccount:
	default:
		return fmt.Errorf("unknown concurrency scope: %s", c.Scope)
	}

	if c.Key == nil {
		return nil
	}
	if _, err := expressions.Compile(ctx, *c.Key); err != nil {
		return fmt.Errorf("invalid concurrency key: %w", err)
	}
	return nil
}
