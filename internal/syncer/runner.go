package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/netfile/campaign-sync/internal/api"
)

// Builder returns the orchestrator for a target.
type Builder func(t Target) (*Orchestrator, error)

// Runner syncs several targets with a bounded number of workers.
type Runner struct {
	build   Builder
	workers int
	logger  *zap.Logger
}

type TargetResult struct {
	Target string
	Result *Result
	Err    error
}

type BatchResult struct {
	Total     int
	Succeeded int
	NotReady  int
	Failed    int
	Results   []TargetResult
	Errors    []string
}

// Err joins the failures of the batch. Not-ready targets are included.
func (b *BatchResult) Err() error {
	var errs []error
	for _, r := range b.Results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Target, r.Err))
		}
	}
	return errors.Join(errs...)
}

// Records returns the number of records read by all targets.
func (b *BatchResult) Records() int {
	n := 0
	for _, r := range b.Results {
		if r.Result != nil {
			n += r.Result.Records()
		}
	}
	return n
}

func NewRunner(build Builder, workers int, logger *zap.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		build:   build,
		workers: workers,
		logger:  logger,
	}
}

// RunAll runs every target once. Targets not started before ctx is done
// are reported as failed with the context error.
func (r *Runner) RunAll(ctx context.Context, targets []Target) *BatchResult {
	batch := &BatchResult{Total: len(targets)}
	if len(targets) == 0 {
		return batch
	}

	jobs := make(chan Target, len(targets))
	results := make(chan TargetResult, len(targets))

	var wg sync.WaitGroup
	for i := 0; i < min(r.workers, len(targets)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.worker(ctx, jobs, results)
		}()
	}

	for _, t := range targets {
		jobs <- t
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		var notReady *api.NotReadyError
		switch {
		case res.Err == nil:
			batch.Succeeded++
		case errors.As(res.Err, &notReady):
			batch.NotReady++
		default:
			batch.Failed++
			batch.Errors = append(batch.Errors, fmt.Sprintf("%s: %v", res.Target, res.Err))
		}
		batch.Results = append(batch.Results, res)
	}

	return batch
}

func (r *Runner) worker(ctx context.Context, jobs <-chan Target, results chan<- TargetResult) {
	for t := range jobs {
		if err := ctx.Err(); err != nil {
			results <- TargetResult{Target: t.Name, Err: err}
			continue
		}
		results <- r.runTarget(ctx, t)
	}
}

func (r *Runner) runTarget(ctx context.Context, t Target) TargetResult {
	res := TargetResult{Target: t.Name}

	o, err := r.build(t)
	if err != nil {
		res.Err = fmt.Errorf("building target: %w", err)
		return res
	}

	res.Result, res.Err = o.Run(ctx, t)
	if res.Err != nil {
		r.logger.Error("sync failed", zap.String("target", t.Name), zap.Error(res.Err))
	}
	return res
}
