package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/desertthunder/otv/internal/formatter"
	"github.com/desertthunder/otv/internal/models"
	"github.com/desertthunder/otv/internal/shared"
	"github.com/urfave/cli/v3"
)

// History lists recorded runs, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.runs()
	if err != nil {
		return err
	}

	runs, err := repo.List(cmd.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(runs, cmd.Bool("pretty"))
	}

	text, err := formatter.RunsToText(runs)
	if err != nil {
		return err
	}
	return r.writeBytes(text)
}

// HistoryShow prints one recorded run with its playlists.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	run, err := r.findRun(cmd.StringArg("run"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(run, true)
	}

	text, err := formatter.RunToText(run)
	if err != nil {
		return err
	}
	return r.writeBytes(text)
}

// HistoryDelete removes one recorded run.
func (r *Runner) HistoryDelete(ctx context.Context, cmd *cli.Command) error {
	run, err := r.findRun(cmd.StringArg("run"))
	if err != nil {
		return err
	}

	repo, err := r.runs()
	if err != nil {
		return err
	}
	if err := repo.Delete(run.ID); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return r.writePlain("✓ Deleted run #%d\n", run.Sequence)
}

// findRun looks a run up by its number, falling back to its ID.
func (r *Runner) findRun(ref string) (*models.Run, error) {
	if ref == "" {
		return nil, fmt.Errorf("%w: run number or ID", shared.ErrMissingArgument)
	}

	repo, err := r.runs()
	if err != nil {
		return nil, err
	}

	if seq, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return repo.GetBySequence(seq)
	}
	return repo.Get(ref)
}
