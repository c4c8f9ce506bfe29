package version

import (
	"context"
	"fmt"

	"github.com/inngest/inngestsdk/pkg/headers"
	"github.com/urfave/cli/v3"
)

func Command() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: fmt.Sprintf("Shows the SDK version (%s)", headers.SDK()),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			fmt.Fprintln(cmd.Root().Writer, headers.SDK())
			return nil
		},
	}
}
