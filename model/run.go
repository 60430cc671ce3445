package model

import "time"

// Run is the metadata of a single dgtest invocation, stored as run.json in
// the run directory.
type Run struct {
	// Unique ID for this run (ULID)
	ID string `json:"id"`
	// Timestamp when the run started
	Timestamp time.Time `json:"timestamp"`
	// Command-line arguments (including command name)
	Args []string `json:"args"`
	// Working directory the run was started from
	WorkDir string `json:"workdir"`
	// Directory holding the per-unit artifacts
	RunDir string `json:"rundir"`
	// Duration of the whole run
	Duration time.Duration `json:"duration"`
	// Git information
	Git *Git `json:"git,omitempty"`
	// Options the run was started with
	Options RunOptions `json:"options"`
	// Aggregated results
	Report *RunReport `json:"report,omitempty"`
}

// Git contains git repository information
type Git struct {
	// Git commit hash at time of execution
	Commit string `json:"commit,omitempty"`
	// Git branch at time of execution
	Branch string `json:"branch,omitempty"`
}

// RunOptions records the options that shaped a run.
type RunOptions struct {
	Registry    string   `json:"registry"`
	Concurrency int      `json:"concurrency"`
	Filters     []string `json:"filters,omitempty"`
	Coverage    bool     `json:"coverage,omitempty"`
}

// ExitCode returns the process exit code matching the run outcome.
func (r *Run) ExitCode() int {
	if r.Report == nil || !r.Report.Success {
		return 1
	}
	return 0
}
