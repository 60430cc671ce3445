package model

// Status is the terminal status of an executed unit.
type Status string

const (
	StatusPass              Status = "pass"
	StatusExecutionFailure  Status = "execution-failure"
	StatusReferenceMismatch Status = "reference-mismatch"
)

// ExecutionResult is produced by the runner for one TestUnit.
type ExecutionResult struct {
	Unit TestUnit `json:"unit"`
	// Wall-clock duration in milliseconds
	DurationMS float64 `json:"duration_ms"`
	// Clamped process exit code
	ExitCode int `json:"exit_code"`
	// Captured stdout+stderr
	OutputPath string `json:"output"`
	// Exit code of the reference diff, nil when the unit has no reference log
	DiffExitCode *int `json:"diff_exit_code,omitempty"`
	// Unified diff against the reference log
	DiffPath string `json:"diff,omitempty"`
	// Side-by-side diff, only written when the diff is not clean
	SideBySidePath string `json:"diff_sidebyside,omitempty"`
	// Per-unit coverage data file, when the unit was instrumented
	CoveragePath string `json:"coverage,omitempty"`
}

// ExitOK reports whether the process exited with code zero.
func (r ExecutionResult) ExitOK() bool {
	return r.ExitCode == 0
}

// DiffOK reports whether the reference diff was clean or not performed.
func (r ExecutionResult) DiffOK() bool {
	return r.DiffExitCode == nil || *r.DiffExitCode == 0
}

// Passed reports whether both the exit code and the diff are clean.
func (r ExecutionResult) Passed() bool {
	return r.ExitOK() && r.DiffOK()
}

// Status returns the terminal status. An execution failure takes precedence
// over a reference mismatch.
func (r ExecutionResult) Status() Status {
	switch {
	case !r.ExitOK():
		return StatusExecutionFailure
	case !r.DiffOK():
		return StatusReferenceMismatch
	default:
		return StatusPass
	}
}

// TroublePath returns the artifact explaining a failure, or "" for passing units.
func (r ExecutionResult) TroublePath() string {
	switch r.Status() {
	case StatusExecutionFailure:
		return r.OutputPath
	case StatusReferenceMismatch:
		return r.DiffPath
	default:
		return ""
	}
}

// Counts tracks how the candidate set was narrowed down to executed units.
type Counts struct {
	// Runnables found in enabled packages
	Candidates int `json:"candidates"`
	// Runnables rejected by the test predicate
	NotTests int `json:"not_tests"`
	// Tests living in disabled packages
	Disabled int `json:"disabled"`
	// Tests excluded by the filter expressions
	Blocked int `json:"blocked"`
	// Tests selected for execution
	Selected int `json:"selected"`
	// Tests that produced a result
	Executed int `json:"executed"`
}

// RunReport aggregates every ExecutionResult of a run.
type RunReport struct {
	// Results sorted by unit name
	Results []ExecutionResult `json:"results"`
	// True iff every result passed
	Success bool   `json:"success"`
	Counts  Counts `json:"counts"`
}

// Failures returns the results that did not pass, in report order.
func (r *RunReport) Failures() []ExecutionResult {
	var failed []ExecutionResult
	for _, res := range r.Results {
		if !res.Passed() {
			failed = append(failed, res)
		}
	}
	return failed
}
