package main

import (
	"context"
	"fmt"
	"os"

	"github.com/inngest/inngestsdk/cmd/hash"
	"github.com/inngest/inngestsdk/cmd/serve"
	"github.com/inngest/inngestsdk/cmd/version"
	"github.com/inngest/inngestsdk/pkg/headers"
	isatty "github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"
)

// globalFlags are the flags that should be available on all commands
var globalFlags = []cli.Flag{
	&cli.BoolFlag{
		Name:  "json",
		Usage: "Output logs as JSON.  Set to true if stdout is not a TTY.",
	},
	&cli.BoolFlag{
		Name:  "verbose",
		Usage: "Enable verbose logging.",
	},
	&cli.StringFlag{
		Name:    "log-level",
		Aliases: []string{"l"},
		Value:   "info",
		Usage:   "Set the log level.  One of: trace, debug, info, warn, error.",
	},
}

func execute() {
	app := &cli.Command{
		Name:    "inngestsdk",
		Usage:   "Serve and debug durable functions written with the Go SDK.",
		Version: headers.SDK(),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			// The logger reads LOG_HANDLER and LOG_LEVEL when it's created.
			if cmd.Bool("json") {
				os.Setenv("LOG_HANDLER", "json")
			}

			if os.Getenv("LOG_LEVEL") == "" {
				if cmd.IsSet("log-level") {
					os.Setenv("LOG_LEVEL", cmd.String("log-level"))
				} else if cmd.Bool("verbose") {
					os.Setenv("LOG_LEVEL", "debug")
				} else {
					os.Setenv("LOG_LEVEL", "info")
				}
			}
			return ctx, nil
		},

		Flags: globalFlags,
		Commands: []*cli.Command{
			serve.Command(),
			hash.Command(),
			version.Command(),
		},
	}

	if !isatty.IsTerminal(os.Stdout.Fd()) {
		// Always use JSON when not in a terminal
		os.Setenv("LOG_HANDLER", "json")
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
