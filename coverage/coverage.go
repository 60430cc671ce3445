// Package coverage instruments Python tests with coverage.py and merges the
// data they produce.
package coverage

// coverage.go contains utilities for building coverage command lines and
// combining per-test data files into a report.

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/perfgo/dgtest/model"
	"github.com/perfgo/dgtest/shell"
	"github.com/rs/zerolog"
)

// Names below the coverage directory.
const (
	DirName      = "pycoverage"
	DataSuffix   = ".coverage"
	CombinedFile = "combined.coverage"
	HTMLDir      = "htmlreport"
	LogFile      = "coverage.log"
)

// DefaultPython is the interpreter used to run coverage.py.
const DefaultPython = "python3"

// ErrNoData is returned by Finalize when no test produced coverage data.
var ErrNoData = errors.New("no coverage data was produced")

// Options contains options for the coverage aggregator.
type Options struct {
	Dir    string // Coverage directory, created by the caller
	Python string // Interpreter running coverage.py (default: python3)
}

// Aggregator wraps instrumentable tests and merges their coverage data.
type Aggregator struct {
	logger zerolog.Logger
	exec   shell.Executor
	dir    string
	python string
}

// New creates an aggregator writing below opts.Dir.
func New(logger zerolog.Logger, exec shell.Executor, opts Options) *Aggregator {
	python := opts.Python
	if python == "" {
		python = DefaultPython
	}
	return &Aggregator{
		logger: logger,
		exec:   exec,
		dir:    opts.Dir,
		python: python,
	}
}

// Dir returns the coverage directory.
func (a *Aggregator) Dir() string {
	return a.dir
}

// Instrumentable reports whether the unit can run under coverage.py. A
// capability declared in the registry wins; otherwise the shebang line of
// the executable is inspected.
func (a *Aggregator) Instrumentable(unit model.TestUnit) bool {
	if unit.Instrumentable != nil {
		return *unit.Instrumentable
	}
	ok, err := IsPythonScript(unit.Command)
	if err != nil {
		a.logger.Debug().Err(err).Str("test", unit.Name).Msg("Failed to inspect executable")
		return false
	}
	return ok
}

// IsPythonScript reports whether path starts with a shebang naming python.
func IsPythonScript(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("failed to open executable: %w", err)
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && line == "" {
		return false, nil
	}
	return strings.HasPrefix(line, "#!") && strings.Contains(line, "python"), nil
}

// DataFile returns the coverage data file of the unit.
func (a *Aggregator) DataFile(unit model.TestUnit) string {
	return filepath.Join(a.dir, unit.Name+DataSuffix)
}

// BuildRunArgs builds the command line running argv under coverage.py.
func (a *Aggregator) BuildRunArgs(dataFile string, argv []string) []string {
	args := []string{a.python, "-m", "coverage", "run", "--data-file=" + dataFile}
	return append(args, argv...)
}

// Wrap implements runner.Wrapper.
func (a *Aggregator) Wrap(unit model.TestUnit, argv []string) ([]string, string) {
	dataFile := a.DataFile(unit)
	return a.BuildRunArgs(dataFile, argv), dataFile
}

// DataFiles lists the per-test data files present in the coverage directory.
func (a *Aggregator) DataFiles() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(a.dir, "*"+DataSuffix))
	if err != nil {
		return nil, fmt.Errorf("failed to list coverage data: %w", err)
	}
	var data []string
	for _, f := range files {
		if filepath.Base(f) != CombinedFile {
			data = append(data, f)
		}
	}
	return data, nil
}

// BuildFinalizeCommands builds the command lines combining the data files
// and rendering the HTML report.
func (a *Aggregator) BuildFinalizeCommands(dataFiles []string) []string {
	combined := filepath.Join(a.dir, CombinedFile)

	combine := []string{a.python, "-m", "coverage", "combine", "--keep", "--data-file=" + combined}
	combine = append(combine, dataFiles...)

	html := []string{a.python, "-m", "coverage", "html", "--data-file=" + combined, "-d", filepath.Join(a.dir, HTMLDir)}

	return []string{shell.Join(combine...), shell.Join(html...)}
}

// Finalize merges the coverage data of all tests and renders the HTML
// report. The output of coverage.py is appended to LogFile.
func (a *Aggregator) Finalize(ctx context.Context, env []string) error {
	dataFiles, err := a.DataFiles()
	if err != nil {
		return err
	}
	if len(dataFiles) == 0 {
		return ErrNoData
	}

	logPath := filepath.Join(a.dir, LogFile)
	log, err := os.Create(logPath)
	if err != nil {
		return fmt.Errorf("failed to create coverage log: %w", err)
	}
	defer log.Close()

	a.logger.Info().Int("files", len(dataFiles)).Str("dir", a.dir).Msg("Combining coverage data")

	for _, command := range a.BuildFinalizeCommands(dataFiles) {
		code, err := a.exec.Execute(ctx, shell.Command{
			Script: command,
			Dir:    a.dir,
			Env:    env,
			Output: log,
		})
		if err != nil {
			return fmt.Errorf("failed to run coverage: %w", err)
		}
		if code != 0 {
			return fmt.Errorf("coverage exited with code %d, see %s", code, logPath)
		}
	}

	a.logger.Info().Str("report", filepath.Join(a.dir, HTMLDir, "index.html")).Msg("Coverage report created")
	return nil
}
