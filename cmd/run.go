package main

import (
	"context"
	"sync"

	"github.com/desertthunder/otv/internal/formatter"
	"github.com/desertthunder/otv/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Scan authorizes, scans every playlist and prints the songs a run would replace.
func (r *Runner) Scan(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.service(cmd.String("service"))
	if err != nil {
		return err
	}
	engine := r.newEngine(cmd, svc, false)

	r.logger.Info("scanning library", "service", svc.Name())
	scan, err := engine.Scan(ctx, nil)
	if err != nil {
		return err
	}
	if scan.Report.State == tasks.StateCancelled {
		return r.writePlain("%s\n", scan.Report.Summary())
	}

	if cmd.Bool("json") {
		return r.writeJSON(scan, cmd.Bool("pretty"))
	}

	text, err := formatter.ScanToText(scan)
	if err != nil {
		return err
	}
	return r.writeBytes(text)
}

// Run performs a full replacement run and writes its report.
//
// Progress is printed while the run is in flight unless --quiet is set or the report goes to stdout in a
// machine-readable format.
func (r *Runner) Run(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	outputFile := cmd.String("output")

	svc, err := r.service(cmd.String("service"))
	if err != nil {
		return err
	}
	engine := r.newEngine(cmd, svc, true)

	r.logger.Info("starting run", "service", svc.Name(), "workers", engine.Workers(), "dry_run", engine.DryRun())

	showProgress := !cmd.Bool("quiet") && (outputFile != "" || format == formatter.FormatText)
	progressCh := make(chan tasks.ProgressUpdate, 50)
	var wg sync.WaitGroup
	wg.Go(func() {
		for update := range progressCh {
			if showProgress {
				r.printProgress(update)
			}
		}
	})

	report, err := engine.Run(ctx, progressCh)
	close(progressCh)
	wg.Wait()

	if err != nil {
		return err
	}

	if outputFile != "" {
		if err := formatter.WriteReportFile(outputFile, report, format); err != nil {
			return err
		}
		r.logger.Info("report written", "file", outputFile, "format", format)
		return r.writePlain("\n%s\n✓ Report saved to %s\n", report.Summary(), outputFile)
	}

	if showProgress {
		r.writePlain("\n")
	}
	return formatter.WriteReport(r.output, report, format)
}

func (r *Runner) printProgress(update tasks.ProgressUpdate) {
	switch update.Phase {
	case tasks.PhaseAuthorizing:
		r.writePlain("🔑 %s\n", update.Message)
	case tasks.PhaseScanning:
		if update.Step == 0 {
			r.writePlain("\n📥 %s\n", update.Message)
		} else {
			r.writePlain("   %s\n", update.Message)
		}
	case tasks.PhaseResolving:
		if update.Step == 0 {
			r.writePlain("\n🔍 %s\n", update.Message)
		} else {
			r.writePlain("   %s\n", update.Message)
		}
	case tasks.PhaseTransforming:
		if update.Step == 0 {
			r.writePlain("\n📝 %s\n", update.Message)
		} else {
			r.writePlain("   %s\n", update.Message)
		}
	case tasks.PhaseCancelled, tasks.PhaseUnauthorized:
		r.writePlain("\n⚠ %s\n", update.Message)
	}
}
