// Package testrun wires the registry, the filters, the planner, the runner
// pool and the reporting into a single test run.
package testrun

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/perfgo/dgtest/collector"
	"github.com/perfgo/dgtest/coverage"
	"github.com/perfgo/dgtest/filter"
	"github.com/perfgo/dgtest/history"
	"github.com/perfgo/dgtest/model"
	"github.com/perfgo/dgtest/plan"
	"github.com/perfgo/dgtest/registry"
	"github.com/perfgo/dgtest/report"
	"github.com/perfgo/dgtest/runner"
	"github.com/perfgo/dgtest/shell"
	"github.com/rs/zerolog"
)

// DefaultGrace is how long running tests may take to exit on their own
// after an interrupt.
const DefaultGrace = 5 * time.Second

// ErrRunDirExists is returned when the run directory is already present.
var ErrRunDirExists = errors.New("run directory already exists")

// Options contains the options of a test run.
type Options struct {
	Registry     string        // Registry file describing packages and runnables
	RunDir       string        // Run directory, default: <RunsRoot>/<timestamp>-<id>
	RunsRoot     string        // Parent of generated run directories
	Concurrency  int           // Maximum parallel tests, < 1 means number of CPUs
	Filters      []string      // Glob expressions, "!" negates
	Coverage     bool          // Instrument Python tests with coverage.py
	Python       string        // Interpreter running coverage.py
	ExcerptLines int           // Head and tail lines shown per failure
	JUnit        bool          // Write the JUnit XML report
	Color        bool          // Color the console table
	Grace        time.Duration // Grace period for tests after an interrupt
	Args         []string      // Command line recorded in run.json
	Console      io.Writer     // Receives the result table, default stdout
}

// Run executes a test run. Configuration errors are returned before any test
// starts; failing tests are reported in the returned run, never as errors.
// When ctx is cancelled no further tests are started, and the results of the
// tests that ran are still reported.
func Run(ctx context.Context, logger zerolog.Logger, opts Options) (*model.Run, error) {
	start := time.Now()
	run := &model.Run{
		ID:        history.NewID(start),
		Timestamp: start,
		Args:      opts.Args,
		Options: model.RunOptions{
			Registry:    opts.Registry,
			Concurrency: opts.Concurrency,
			Filters:     opts.Filters,
			Coverage:    opts.Coverage,
		},
	}
	if wd, err := os.Getwd(); err == nil {
		run.WorkDir = wd
	}

	reg, err := registry.Load(opts.Registry)
	if err != nil {
		return nil, err
	}

	f, err := filter.New(opts.Filters)
	if err != nil {
		return nil, err
	}

	candidates, counts, err := reg.Candidates()
	if err != nil {
		return nil, err
	}

	selection := f.Apply(candidates)
	counts.Blocked = selection.Blocked
	counts.Selected = len(selection.Selected)

	p, err := plan.New(selection.Selected, opts.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("failed to plan tests: %w", err)
	}
	run.Options.Concurrency = p.Concurrency()

	run.RunDir = opts.RunDir
	if run.RunDir == "" {
		root := opts.RunsRoot
		if root == "" {
			root = history.DefaultRoot
		}
		run.RunDir = filepath.Join(root, history.DirName(start, run.ID))
	}
	if run.RunDir, err = filepath.Abs(run.RunDir); err != nil {
		return nil, fmt.Errorf("failed to resolve run directory: %w", err)
	}
	if err := createDir(run.RunDir, true); err != nil {
		return nil, err
	}

	logger = logger.With().Str("run", run.ID).Logger()
	logger.Info().
		Str("rundir", run.RunDir).
		Int("candidates", counts.Candidates).
		Int("selected", counts.Selected).
		Int("blocked", counts.Blocked).
		Str("filter", f.String()).
		Msg("Starting test run")

	env := reg.Environment(os.Environ())
	grace := opts.Grace
	if grace <= 0 {
		grace = DefaultGrace
	}
	exec := shell.NewLocal(logger, grace)

	runnerOpts := []runner.Option{runner.WithEnv(env)}
	var agg *coverage.Aggregator
	if opts.Coverage {
		dir := filepath.Join(run.RunDir, coverage.DirName)
		if err := createDir(dir, false); err != nil {
			return nil, err
		}
		agg = coverage.New(logger, exec, coverage.Options{Dir: dir, Python: opts.Python})
		runnerOpts = append(runnerOpts, runner.WithWrapper(agg))
	}

	var results []model.ExecutionResult
	if p.Len() == 0 {
		logger.Warn().Msg("No tests selected")
	} else {
		r := runner.New(logger, exec, run.RunDir, runnerOpts...)
		results = runner.Execute(ctx, logger, p, r)
	}

	run.Report = collector.Collect(results, counts)

	console := opts.Console
	if console == nil {
		console = os.Stdout
	}
	collector.NewConsole(console, collector.ConsoleOptions{
		Color:        opts.Color,
		ExcerptLines: opts.ExcerptLines,
		BaseDir:      run.RunDir,
	}).Render(run.Report)

	// The post-batch phase runs even after an interrupt.
	postCtx := context.WithoutCancel(ctx)

	if agg != nil && len(results) > 0 {
		if err := agg.Finalize(postCtx, env); err != nil {
			logger.Warn().Err(err).Msg("Failed to combine coverage data")
		}
	}

	if opts.JUnit {
		path, err := report.Write(run.RunDir, run.Report)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to write JUnit report")
		} else {
			logger.Info().Str("report", path).Msg("JUnit report written")
		}
	}

	if run.WorkDir != "" {
		git, err := history.GitInfo(postCtx, run.WorkDir)
		if err != nil {
			logger.Debug().Err(err).Msg("No git information available")
		} else {
			run.Git = git
		}
	}

	run.Duration = time.Since(start)
	if err := history.Save(run); err != nil {
		logger.Warn().Err(err).Msg("Failed to save run metadata")
	}

	logger.Info().
		Bool("success", run.Report.Success).
		Int("executed", run.Report.Counts.Executed).
		Int("failed", len(run.Report.Failures())).
		Dur("duration", run.Duration).
		Msg("Test run finished")

	return run, nil
}

// createDir creates dir, which must not exist yet. With parents set missing
// parent directories are created as well.
func createDir(dir string, parents bool) error {
	if parents {
		if err := os.MkdirAll(filepath.Dir(dir), 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.Mkdir(dir, 0755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrRunDirExists, dir)
		}
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}
