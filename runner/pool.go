package runner

// This file contains the bounded execution driver.

import (
	"context"
	"time"

	"github.com/perfgo/dgtest/model"
	"github.com/perfgo/dgtest/plan"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// JobRunner executes a single job.
type JobRunner interface {
	Run(ctx context.Context, job plan.Job) model.ExecutionResult
}

// Execute runs the jobs of the plan with at most p.Concurrency() of them at
// once and blocks until every dispatched job terminated. A failing job never
// stops the others. Once ctx is cancelled no further jobs are dispatched;
// jobs already running are left to finish, and only jobs that ran produce a
// result.
func Execute(ctx context.Context, logger zerolog.Logger, p *plan.Plan, jr JobRunner) []model.ExecutionResult {
	start := time.Now()
	logger.Info().
		Int("tests", p.Len()).
		Int("concurrency", p.Concurrency()).
		Msg("Starting test execution")

	// One slot per job, written by exactly one goroutine.
	slots := make([]*model.ExecutionResult, p.Len())

	var g errgroup.Group
	g.SetLimit(p.Concurrency())
	for _, job := range p.Jobs() {
		if ctx.Err() != nil {
			break
		}
		job := job
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			result := jr.Run(ctx, job)
			slots[job.Seq] = &result
			return nil
		})
	}
	_ = g.Wait()

	results := make([]model.ExecutionResult, 0, len(slots))
	for _, slot := range slots {
		if slot != nil {
			results = append(results, *slot)
		}
	}

	if skipped := p.Len() - len(results); skipped > 0 {
		logger.Warn().Int("skipped", skipped).Msg("Tests not started because the run was interrupted")
	}
	logger.Info().
		Int("executed", len(results)).
		Dur("duration", time.Since(start)).
		Msg("Test execution finished")

	return results
}
