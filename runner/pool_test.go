package runner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/perfgo/dgtest/model"
	"github.com/perfgo/dgtest/plan"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner records how jobs are executed.
type fakeRunner struct {
	delay   time.Duration
	onStart func(job plan.Job)

	mu      sync.Mutex
	calls   map[string]int
	running int32
	peak    int32
}

func (f *fakeRunner) Run(ctx context.Context, job plan.Job) model.ExecutionResult {
	cur := atomic.AddInt32(&f.running, 1)
	defer atomic.AddInt32(&f.running, -1)
	for {
		peak := atomic.LoadInt32(&f.peak)
		if cur <= peak || atomic.CompareAndSwapInt32(&f.peak, peak, cur) {
			break
		}
	}

	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[job.Unit.Name]++
	f.mu.Unlock()

	if f.onStart != nil {
		f.onStart(job)
	}
	time.Sleep(f.delay)

	code := 0
	if job.Seq%2 == 1 {
		code = 1
	}
	return model.ExecutionResult{Unit: job.Unit, ExitCode: code}
}

func newPlan(t *testing.T, n, concurrency int) *plan.Plan {
	t.Helper()
	units := make([]model.TestUnit, n)
	for i := range units {
		units[i] = model.TestUnit{Name: fmt.Sprintf("t%02d", i), Package: "pkg"}
	}
	p, err := plan.New(units, concurrency)
	require.NoError(t, err)
	return p
}

func TestExecute(t *testing.T) {
	tests := []struct {
		name        string
		jobs        int
		concurrency int
	}{
		{name: "serial", jobs: 5, concurrency: 1},
		{name: "bounded", jobs: 12, concurrency: 3},
		{name: "more workers than jobs", jobs: 2, concurrency: 8},
		{name: "no jobs", jobs: 0, concurrency: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPlan(t, tt.jobs, tt.concurrency)
			f := &fakeRunner{delay: 10 * time.Millisecond}

			results := Execute(context.Background(), zerolog.Nop(), p, f)

			require.Len(t, results, tt.jobs)
			assert.LessOrEqual(t, int(f.peak), p.Concurrency())
			for i, res := range results {
				assert.Equal(t, fmt.Sprintf("t%02d", i), res.Unit.Name)
				assert.Equal(t, 1, f.calls[res.Unit.Name])
			}
		})
	}
}

func TestExecute_KeepGoing(t *testing.T) {
	p := newPlan(t, 6, 2)
	results := Execute(context.Background(), zerolog.Nop(), p, &fakeRunner{})

	require.Len(t, results, 6)
	failed := 0
	for _, res := range results {
		if !res.Passed() {
			failed++
		}
	}
	assert.Equal(t, 3, failed)
}

func TestExecute_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := newPlan(t, 10, 2)
	f := &fakeRunner{
		delay: 20 * time.Millisecond,
		onStart: func(job plan.Job) {
			if job.Seq == 0 {
				cancel()
			}
		},
	}

	results := Execute(ctx, zerolog.Nop(), p, f)

	assert.NotEmpty(t, results)
	assert.Less(t, len(results), 10)
	for _, res := range results {
		assert.Equal(t, 1, f.calls[res.Unit.Name])
	}
}

func TestExecute_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := Execute(ctx, zerolog.Nop(), newPlan(t, 4, 2), &fakeRunner{})
	assert.Empty(t, results)
}
