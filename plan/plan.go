// Package plan turns the selected tests into a flat set of independent jobs
// with a concurrency bound.
package plan

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/perfgo/dgtest/model"
)

// DuplicateUnitError is returned when two selected tests share a name.
type DuplicateUnitError struct {
	Name     string
	Packages []string
}

func (e *DuplicateUnitError) Error() string {
	return fmt.Sprintf("duplicate test name %q (packages: %s)", e.Name, strings.Join(e.Packages, ", "))
}

// ErrInvalidName is returned for test names that cannot name a directory.
var ErrInvalidName = errors.New("invalid test name")

// Job is one schedulable unit of work.
type Job struct {
	// Position of the job in the plan, starting at 0
	Seq  int
	Unit model.TestUnit
}

// Plan is a set of jobs without ordering constraints.
type Plan struct {
	jobs        []Job
	concurrency int
}

// New validates the units and builds the plan. A concurrency below one
// defaults to the number of CPUs.
func New(units []model.TestUnit, concurrency int) (*Plan, error) {
	if concurrency < 1 {
		concurrency = runtime.NumCPU()
	}

	seen := make(map[string]int, len(units))
	jobs := make([]Job, 0, len(units))
	for _, unit := range units {
		if err := validateName(unit.Name); err != nil {
			return nil, err
		}
		if first, ok := seen[unit.Name]; ok {
			return nil, &DuplicateUnitError{
				Name:     unit.Name,
				Packages: []string{units[first].Package, unit.Package},
			}
		}
		seen[unit.Name] = len(jobs)
		jobs = append(jobs, Job{Seq: len(jobs), Unit: unit})
	}

	return &Plan{jobs: jobs, concurrency: concurrency}, nil
}

// validateName rejects names that would escape the run directory.
func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Jobs returns the jobs in plan order.
func (p *Plan) Jobs() []Job {
	return p.jobs
}

// Len returns the number of jobs.
func (p *Plan) Len() int {
	return len(p.jobs)
}

// Concurrency returns the maximum number of jobs running at once. It never
// exceeds the number of jobs, and is at least one.
func (p *Plan) Concurrency() int {
	return max(min(p.concurrency, len(p.jobs)), 1)
}
