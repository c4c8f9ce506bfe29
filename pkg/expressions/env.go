package expressions

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

var (
	// defaultKeys are the variables available within trigger expressions and
	// cancellation or wait `if` clauses.
	defaultKeys = []string{
		"event",
		"async",
		"steps",
	}
)

// env creates a new environment in which each key is declared as a map of
// string to dynamic types.
func env(keys ...string) (*cel.Env, error) {
	if len(keys) == 0 {
		keys = defaultKeys
	}

	opts := make([]cel.EnvOption, 0, len(keys))
	for _, key := range keys {
		opts = append(opts, cel.Variable(key, cel.MapType(cel.StringType, cel.DynType)))
	}

	e, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing expression env: %w", err)
	}
	return e, nil
}
