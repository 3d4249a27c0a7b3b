package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/otv/internal/services"
	"github.com/desertthunder/otv/internal/shared"
	"github.com/desertthunder/otv/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI for a replacement run.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.service(cmd.String("service"))
	if err != nil {
		return err
	}

	// Logs go to a file so they do not corrupt rendering
	fileLogger, err := r.tuiLogger(cmd.String("log-file"))
	if err != nil {
		return err
	}
	r.SetLogger(fileLogger)

	var authorize ui.Authorizer
	if spotify, ok := svc.(*services.SpotifyService); ok {
		authorize = func(ctx context.Context) error {
			return r.authorizeSpotify(ctx, spotify, false)
		}
	}

	model := ui.NewModel(ctx, r.newEngine(cmd, svc, true), authorize)
	if err := ui.Run(ctx, model); err != nil {
		return err
	}

	if report := model.Report(); report != nil {
		return r.writePlain("%s\n", report.Summary())
	}
	return model.Err()
}

func (r *Runner) tuiLogger(path string) (*log.Logger, error) {
	logger, err := shared.NewFileLogger(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(logger, r.logger.GetLevel())
	return logger, nil
}
