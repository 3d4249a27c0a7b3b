package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/otv/internal/shared"
	"github.com/urfave/cli/v3"
)

// exitAccessRequired is the exit status when the streaming service rejects the saved credentials.
const exitAccessRequired = 2

func main() {
	logger := shared.NewLogger(nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runner := NewRunner(RunnerOpts{Logger: logger})
	app := newApp(runner)

	err := app.Run(ctx, os.Args)
	if cerr := runner.Close(); cerr != nil {
		logger.Warn("failed to close database", "error", cerr)
	}

	switch {
	case err == nil:
	case errors.Is(err, shared.ErrUnauthorized):
		fmt.Fprintf(os.Stderr, "Access required: %v\nRun `otv auth spotify` to grant access, then try again.\n", err)
		stop()
		os.Exit(exitAccessRequired)
	default:
		logger.Fatalf("application error: %v", err)
	}
}

// newApp builds the root command with every subcommand of r registered.
func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "otv",
		Usage:   "Replace songs in your playlists with their Taylor's Version",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   defaultConfigPath,
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log debug output",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("verbose") {
				shared.SetLogLevel(r.logger, log.DebugLevel)
			}
			return ctx, r.loadConfig(cmd)
		},
		Commands: r.register(),
	}
}
