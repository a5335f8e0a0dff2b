package server

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/netfile/campaign-sync/internal/syncer"
)

// ErrRunInProgress is returned when a run is requested while one is active.
var ErrRunInProgress = errors.New("sync run already in progress")

// RunFunc performs one sync run over all targets.
type RunFunc func(ctx context.Context) *syncer.BatchResult

// RunReport summarizes a finished run.
type RunReport struct {
	Trigger    string    `json:"trigger"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Targets    int       `json:"targets"`
	Succeeded  int       `json:"succeeded"`
	NotReady   int       `json:"notReady"`
	Failed     int       `json:"failed"`
	Records    int       `json:"records"`
	Errors     []string  `json:"errors,omitempty"`
}

// RunManager serializes sync runs triggered by the scheduler and the
// HTTP endpoint, and keeps the last report.
type RunManager struct {
	ctx    context.Context
	run    RunFunc
	logger *zap.Logger

	isRunning atomic.Bool
	runMu     sync.Mutex // prevents concurrent runs
	wg        sync.WaitGroup

	stateMu sync.RWMutex
	last    *RunReport
	runs    int
}

// NewRunManager creates a RunManager. Runs started through Trigger use ctx.
func NewRunManager(ctx context.Context, run RunFunc, logger *zap.Logger) *RunManager {
	return &RunManager{ctx: ctx, run: run, logger: logger}
}

// IsRunning reports whether a run is in progress.
func (rm *RunManager) IsRunning() bool {
	return rm.isRunning.Load()
}

// Last returns the report of the last finished run, or nil.
func (rm *RunManager) Last() *RunReport {
	rm.stateMu.RLock()
	defer rm.stateMu.RUnlock()
	if rm.last == nil {
		return nil
	}
	report := *rm.last
	return &report
}

// Runs returns the number of finished runs.
func (rm *RunManager) Runs() int {
	rm.stateMu.RLock()
	defer rm.stateMu.RUnlock()
	return rm.runs
}

// Run executes a run and waits for it.
func (rm *RunManager) Run(ctx context.Context, trigger string) (*RunReport, error) {
	if !rm.runMu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer rm.runMu.Unlock()
	return rm.execute(ctx, trigger), nil
}

// Trigger starts a run in the background.
func (rm *RunManager) Trigger(trigger string) error {
	if !rm.runMu.TryLock() {
		return ErrRunInProgress
	}
	rm.wg.Add(1)
	go func() {
		defer rm.wg.Done()
		defer rm.runMu.Unlock()
		rm.execute(rm.ctx, trigger)
	}()
	return nil
}

// Wait blocks until background runs have finished.
func (rm *RunManager) Wait() {
	rm.wg.Wait()
}

func (rm *RunManager) execute(ctx context.Context, trigger string) *RunReport {
	rm.isRunning.Store(true)
	defer rm.isRunning.Store(false)

	rm.logger.Info("starting sync run", zap.String("trigger", trigger))

	report := &RunReport{Trigger: trigger, StartedAt: time.Now()}
	batch := rm.run(ctx)
	report.FinishedAt = time.Now()
	if batch != nil {
		report.Targets = batch.Total
		report.Succeeded = batch.Succeeded
		report.NotReady = batch.NotReady
		report.Failed = batch.Failed
		report.Records = batch.Records()
		report.Errors = batch.Errors
	}

	rm.stateMu.Lock()
	rm.last = report
	rm.runs++
	rm.stateMu.Unlock()

	rm.logger.Info("sync run finished",
		zap.String("trigger", trigger),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("not_ready", report.NotReady),
		zap.Int("failed", report.Failed),
		zap.Int("records", report.Records),
		zap.Duration("duration", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report
}
