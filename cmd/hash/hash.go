// Package hash prints the ID of a step, for matching ops within a run's
// history to the step declarations which produced them.
package hash

import (
	"context"
	"fmt"
	"strings"

	"github.com/inngest/inngestsdk/pkg/enums"
	"github.com/inngest/inngestsdk/pkg/sdkrequest"
	"github.com/urfave/cli/v3"
)

func Command() *cli.Command {
	return &cli.Command{
		Name:  "hash",
		Usage: "Print the ID of a step",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "name",
				Aliases:  []string{"n"},
				Usage:    "The step's name, as passed to the step tool",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "op",
				Value: enums.OpcodeStep.String(),
				Usage: fmt.Sprintf("The step's opcode.  One of: %s", strings.Join(enums.OpcodeStrings(), ", ")),
			},
			&cli.IntFlag{
				Name:  "index",
				Usage: "The number of steps with the same name and opcode declared before this one",
			},
		},
		Action: action,
	}
}

func action(ctx context.Context, cmd *cli.Command) error {
	op, err := enums.OpcodeString(cmd.String("op"))
	if err != nil {
		return err
	}
	if cmd.Int("index") < 0 {
		return fmt.Errorf("index must not be negative")
	}

	id, err := sdkrequest.UnhashedOp{
		Name: cmd.String("name"),
		Op:   op,
		Pos:  uint(cmd.Int("index")),
	}.Hash()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.Root().Writer, id)
	return nil
}
