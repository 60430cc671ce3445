package cli

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/perfgo/dgtest/collector"
	"github.com/perfgo/dgtest/coverage"
	"github.com/perfgo/dgtest/history"
	"github.com/perfgo/dgtest/testrun"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const AppName = "dgtest"

const envPrefix = "DGTEST_"

type App struct {
	logger zerolog.Logger
	cli    *cli.App
}

func envVars(name string) []string {
	return []string{envPrefix + name}
}

// runFlags are the options of a test run. They are registered once on the
// root command so that they apply both to the default action and to the run
// command, which reads them from its parent context.
func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "registry",
			Aliases: []string{"r"},
			Usage:   "Registry file describing packages and their runnables (.yaml, .toml or .json)",
			EnvVars: envVars("REGISTRY"),
		},
		&cli.StringFlag{
			Name:    "rundir",
			Usage:   "Directory for the test artifacts, must not exist (default: <runs-root>/<timestamp>-<id>)",
			EnvVars: envVars("RUNDIR"),
		},
		&cli.IntFlag{
			Name:    "jobs",
			Aliases: []string{"j"},
			Usage:   "Number of tests to run in parallel",
			Value:   runtime.NumCPU(),
			EnvVars: envVars("JOBS"),
		},
		&cli.StringSliceFlag{
			Name:    "filter",
			Aliases: []string{"f"},
			Usage:   "Glob selecting tests by name, prefix with ! to exclude (repeatable)",
			EnvVars: envVars("FILTER"),
		},
		&cli.BoolFlag{
			Name:    "coverage",
			Usage:   "Run Python tests under coverage.py and combine the results",
			EnvVars: envVars("COVERAGE"),
		},
		&cli.StringFlag{
			Name:    "python",
			Usage:   "Python interpreter running coverage.py",
			Value:   coverage.DefaultPython,
			EnvVars: envVars("PYTHON"),
		},
		&cli.IntFlag{
			Name:    "excerpt-lines",
			Usage:   "Head and tail lines of output shown for each failed test, 0 disables excerpts",
			Value:   collector.DefaultExcerptLines,
			EnvVars: envVars("EXCERPT_LINES"),
		},
		&cli.BoolFlag{
			Name:    "junit",
			Usage:   "Write a JUnit XML report into the run directory",
			Value:   true,
			EnvVars: envVars("JUNIT"),
		},
		&cli.DurationFlag{
			Name:    "grace",
			Usage:   "Time running tests get to exit after an interrupt before they are stopped",
			Value:   testrun.DefaultGrace,
			EnvVars: envVars("GRACE"),
		},
	}
}

func New() *App {

	// Set default log level to info
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	logger :=
		log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339Nano,
		})

	app := &App{
		logger: logger,
	}
	app.cli = &cli.App{
		Name:  AppName,
		Usage: "Run registered test executables in parallel and report their results",
		Flags: append([]cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable verbose (debug) logging",
				EnvVars: envVars("VERBOSE"),
			},
			&cli.StringFlag{
				Name:    "runs-root",
				Usage:   "Directory holding the run directories",
				Value:   history.DefaultRoot,
				EnvVars: envVars("RUNS_ROOT"),
			},
			&cli.BoolFlag{
				Name:    "no-color",
				Usage:   "Disable colored output",
				EnvVars: envVars("NO_COLOR"),
			},
		}, runFlags()...),
		Before: func(ctx *cli.Context) error {
			if ctx.Bool("verbose") {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
			return nil
		},
		// Default action when no command is specified
		Action: app.run,
	}

	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "run",
		Usage:  "Run the tests of the registry (default), options go before the command",
		Action: app.run,
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "list",
		Usage:  "List previous test runs",
		Action: app.list,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Limit number of results",
				Value:   20,
			},
			&cli.BoolFlag{
				Name:  "failed",
				Usage: "Only list failed runs",
			},
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:            "view",
		Usage:           "View the results of a previous test run",
		ArgsUsage:       "[ID|INDEX] [TEST]",
		Action:          app.view,
		SkipFlagParsing: true,
		Description: `View the results of a previous test run.

Arguments:
  0           View last test run (default)
  -1          View 2nd last test run
  -2          View 3rd last test run
  <id>        View test run matching the ID prefix
  TEST        Print the captured output and diff of a single test

Examples:
  dgtest view               # Result table of the last run
  dgtest view -1            # Result table of the 2nd last run
  dgtest view 01hw3k        # Result table of the run with ID starting with 01hw3k
  dgtest view 0 test_io     # Output of test_io in the last run`,
	})
	return app
}

func (a *App) Run(args []string) error {
	return a.cli.Run(args)
}

// SetVersion sets the version information for the CLI application
func (a *App) SetVersion(version, commit, date string) {
	a.cli.Version = version
	if commit != "none" && commit != "" {
		if len(commit) > 8 {
			commit = commit[:8]
		}
		a.cli.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
	}
}
