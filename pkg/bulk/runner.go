// Package bulk resolves local plan URLs for many authorities over a
// bounded worker pool, with an exclusion list and a run report.
package bulk

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coolbeans/planfinder/pkg/probe"
	"github.com/coolbeans/planfinder/pkg/types"
)

// AuthorityResolver resolves one authority. *discover.Resolver satisfies
// it; tests substitute stubs.
type AuthorityResolver interface {
	Resolve(ctx context.Context, id types.AuthorityID) probe.Resolution
}

// Progress reports the state of a bulk run after each authority.
type Progress struct {
	Total     int               `json:"total"`
	Completed int               `json:"completed"`
	Current   types.AuthorityID `json:"current"`
	Found     bool              `json:"found"`
}

// ProgressCallback receives progress updates. Called from worker
// goroutines under the runner's lock; keep it fast.
type ProgressCallback func(progress Progress)

// Runner dispatches authority resolutions to a bounded worker pool.
// Authorities share no mutable state (the registry is read-only and the
// prober's domain throttle is safe for concurrent use), so resolution
// order across authorities is unspecified, but the report preserves
// input order.
type Runner struct {
	resolver   AuthorityResolver
	workers    int
	exclude    map[types.AuthorityID]bool
	logger     *slog.Logger
	progressCb ProgressCallback
	mu         sync.Mutex
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithWorkers sets the worker pool width. Values below 1 are ignored.
func WithWorkers(workers int) RunnerOption {
	return func(runner *Runner) {
		if workers > 0 {
			runner.workers = workers
		}
	}
}

// WithExclusions marks authority ids that must be skipped entirely,
// never probed, so manually-curated results are not overwritten.
func WithExclusions(ids []types.AuthorityID) RunnerOption {
	return func(runner *Runner) {
		for _, id := range ids {
			runner.exclude[id] = true
		}
	}
}

// WithRunnerLogger sets the logger for per-authority outcomes.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(runner *Runner) { runner.logger = logger }
}

// WithProgress registers a progress callback.
func WithProgress(callback ProgressCallback) RunnerOption {
	return func(runner *Runner) { runner.progressCb = callback }
}

// DefaultWorkers is the pool width when none is configured. Discovery is
// I/O-bound, but the per-domain throttle is the real politeness control;
// the pool only bounds in-flight work.
const DefaultWorkers = 4

// NewRunner creates a bulk runner over the given resolver.
func NewRunner(resolver AuthorityResolver, options ...RunnerOption) *Runner {
	runner := &Runner{
		resolver: resolver,
		workers:  DefaultWorkers,
		exclude:  make(map[types.AuthorityID]bool),
		logger:   slog.Default(),
	}
	for _, option := range options {
		option(runner)
	}
	return runner
}

// Run resolves the given authorities and returns the accumulated report.
// Excluded ids are recorded as skipped without any network activity.
// Cancelling the context stops dispatch; outcomes already produced are
// kept in the report. No cleanup is needed on abandonment since all
// shared state is read-only.
func (runner *Runner) Run(ctx context.Context, ids []types.AuthorityID) *Report {
	report := NewReport()
	report.StartedAt = time.Now()

	type indexed struct {
		index int
		id    types.AuthorityID
	}

	pending := make([]indexed, 0, len(ids))
	outcomes := make([]Outcome, len(ids))
	for i, id := range ids {
		if runner.exclude[id] {
			outcomes[i] = Outcome{AuthorityID: id, Skipped: true}
			runner.logger.Info("skipping excluded authority", slog.String("authority", id.String()))
			continue
		}
		pending = append(pending, indexed{index: i, id: id})
	}

	jobs := make(chan indexed)
	var wg sync.WaitGroup

	completed := 0
	recordProgress := func(id types.AuthorityID, found bool) {
		runner.mu.Lock()
		completed++
		callback := runner.progressCb
		progress := Progress{Total: len(pending), Completed: completed, Current: id, Found: found}
		runner.mu.Unlock()
		if callback != nil {
			callback(progress)
		}
	}

	for worker := 0; worker < runner.workers; worker++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				resolution := runner.resolver.Resolve(ctx, job.id)
				outcomes[job.index] = Outcome{
					AuthorityID: job.id,
					Resolution:  &resolution,
				}
				recordProgress(job.id, resolution.Found)
			}
		}()
	}

dispatch:
	for _, job := range pending {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- job:
		}
	}
	close(jobs)
	wg.Wait()

	for _, outcome := range outcomes {
		if outcome.AuthorityID == "" {
			continue // never dispatched before cancellation
		}
		report.Add(outcome)
	}
	report.Finalize()
	return report
}
