// Package runner executes test units in isolated working directories and
// drives a bounded pool of them.
package runner

// This file contains the execution of a single unit.

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/perfgo/dgtest/model"
	"github.com/perfgo/dgtest/plan"
	"github.com/perfgo/dgtest/shell"
	"github.com/rs/zerolog"
)

// Names of the files written into each unit directory. The test itself runs
// in the WorkDir subdirectory so that it cannot clobber them.
const (
	WorkDir        = "rundir"
	ScriptFile     = "run.sh"
	OutputFile     = "output.log"
	ExitCodeFile   = "ec.txt"
	TimingFile     = "timing_ms"
	DiffFile       = "refdiff.log"
	SideBySideFile = "refdiff_sidebyside.log"
	DiffCodeFile   = "ecdiff.txt"
)

// Wrapper instruments the command line of units that support it.
type Wrapper interface {
	// Instrumentable reports whether the unit accepts the wrapper.
	Instrumentable(unit model.TestUnit) bool
	// Wrap returns the instrumented command line and the artifact it writes.
	Wrap(unit model.TestUnit, argv []string) ([]string, string)
}

// Runner executes jobs in their own directories; it is safe for concurrent use.
type Runner struct {
	logger  zerolog.Logger
	exec    shell.Executor
	runDir  string
	env     []string
	wrapper Wrapper

	interruptOnce sync.Once
}

// Option configures a Runner.
type Option func(*Runner)

// WithEnv sets the environment of the test processes.
func WithEnv(env []string) Option {
	return func(r *Runner) {
		r.env = env
	}
}

// WithWrapper enables instrumentation of the units the wrapper accepts.
func WithWrapper(w Wrapper) Option {
	return func(r *Runner) {
		r.wrapper = w
	}
}

// New creates a runner writing unit directories below runDir, which must exist.
func New(logger zerolog.Logger, exec shell.Executor, runDir string, opts ...Option) *Runner {
	r := &Runner{
		logger: logger,
		exec:   exec,
		runDir: runDir,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// UnitDir returns the directory holding the artifacts of the named unit.
func (r *Runner) UnitDir(name string) string {
	return filepath.Join(r.runDir, name)
}

// Run executes the job and returns its result. Failures of the unit are
// reported in the result, never as errors.
func (r *Runner) Run(ctx context.Context, job plan.Job) model.ExecutionResult {
	unit := job.Unit
	dir := r.UnitDir(unit.Name)
	result := model.ExecutionResult{
		Unit:       unit,
		ExitCode:   shell.ExitStartFailure,
		OutputPath: filepath.Join(dir, OutputFile),
	}

	logger := r.logger.With().Str("test", unit.Name).Int("seq", job.Seq).Logger()

	if err := os.Mkdir(dir, 0755); err != nil {
		logger.Error().Err(err).Msg("Failed to create test directory")
		result.OutputPath = ""
		return result
	}
	workDir := filepath.Join(dir, WorkDir)
	if err := os.Mkdir(workDir, 0755); err != nil {
		logger.Error().Err(err).Msg("Failed to create test working directory")
		result.OutputPath = ""
		return result
	}

	argv := []string{unit.Command}
	if r.wrapper != nil && r.wrapper.Instrumentable(unit) {
		argv, result.CoveragePath = r.wrapper.Wrap(unit, argv)
		logger.Debug().Str("artifact", result.CoveragePath).Msg("Wrapping test with coverage")
	}

	script := fmt.Sprintf("#!%s\n# %s (%s)\nexec %s\n", shell.DefaultShell, unit.Name, unit.Package, shell.Join(argv...))
	if err := os.WriteFile(filepath.Join(dir, ScriptFile), []byte(script), 0755); err != nil {
		logger.Error().Err(err).Msg("Failed to write run script")
		return result
	}

	out, err := os.Create(result.OutputPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create output file")
		return result
	}

	logger.Debug().Str("command", unit.Command).Msg("Starting test")

	start := time.Now()
	code, err := r.exec.Execute(ctx, shell.Command{
		Script: "exec ../" + ScriptFile,
		Dir:    workDir,
		Env:    r.env,
		Output: out,
	})
	end := time.Now()

	if err != nil {
		logger.Warn().Err(err).Msg("Failed to execute test")
		fmt.Fprintf(out, "dgtest: %v\n", err)
	}
	if err := out.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close output file")
	}

	if ctx.Err() != nil {
		r.interruptOnce.Do(func() {
			r.logger.Warn().Msg("Interrupted, waiting for running tests to finish")
		})
		code = shell.ExitInterrupted
	}

	result.ExitCode = shell.Clamp(code)
	result.DurationMS = float64(end.Sub(start)) / float64(time.Millisecond)

	r.writeValue(logger, dir, ExitCodeFile, fmt.Sprintf("%d\n", result.ExitCode))
	r.writeValue(logger, dir, TimingFile, fmt.Sprintf("%.3f\n", result.DurationMS))

	if unit.HasRefLog() {
		r.compareReference(logger, dir, &result)
	}

	logger.Info().
		Int("exit_code", result.ExitCode).
		Float64("duration_ms", result.DurationMS).
		Str("status", string(result.Status())).
		Msg("Test finished")

	return result
}

func (r *Runner) writeValue(logger zerolog.Logger, dir, name, value string) {
	if err := os.WriteFile(filepath.Join(dir, name), []byte(value), 0644); err != nil {
		logger.Warn().Err(err).Str("file", name).Msg("Failed to write result file")
	}
}
