package cli

// This file contains the run command executing the registered tests.

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/perfgo/dgtest/collector"
	"github.com/perfgo/dgtest/testrun"
	"github.com/urfave/cli/v2"
)

func (a *App) runOptions(ctx *cli.Context) testrun.Options {
	return testrun.Options{
		Registry:     ctx.String("registry"),
		RunDir:       ctx.String("rundir"),
		RunsRoot:     ctx.String("runs-root"),
		Concurrency:  ctx.Int("jobs"),
		Filters:      ctx.StringSlice("filter"),
		Coverage:     ctx.Bool("coverage"),
		Python:       ctx.String("python"),
		ExcerptLines: ctx.Int("excerpt-lines"),
		JUnit:        ctx.Bool("junit"),
		Color:        collector.ColorEnabled(os.Stdout, ctx.Bool("no-color")),
		Grace:        ctx.Duration("grace"),
		Args:         os.Args,
		Console:      os.Stdout,
	}
}

func (a *App) run(ctx *cli.Context) error {
	// Tests keep running after the first interrupt, no further tests start.
	runCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, err := testrun.Run(runCtx, a.logger, a.runOptions(ctx))
	if err != nil {
		a.logger.Error().Err(err).Msg("Test run aborted")
		return cli.Exit("", 1)
	}

	if code := run.ExitCode(); code != 0 {
		return cli.Exit("", code)
	}
	return nil
}
