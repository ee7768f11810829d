package core

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultIdleWaitTime is how long the firing loop sleeps when no trigger
// is due before re-scanning the registry (spec.md §4.5
// "QuartzSchedulerThread": "default 30s"). It is also the acquisition
// time window: a trigger due within this duration of now is
// eligible for acquisition even if not due yet, the same "look-ahead"
// Quartz's own thread uses to batch nearby firings together.
const DefaultIdleWaitTime = 30 * time.Second

// maxTriggersPerAcquire bounds how many triggers a single acquisition
// round reserves, so one very crowded instant cannot starve the
// WorkSubmitter's backpressure signal from ever being checked.
const maxTriggersPerAcquire = 20

// firingLoop is the goroutine that drives the registry end to end: it
// repeatedly acquires due triggers, waits for their fire time, hands the
// firing to a WorkSubmitter, and reports completion back to the registry
// (spec.md §6 "QuartzSchedulerThread"). It runs job code itself only when
// Submit returns an error, executing that firing inline on the loop.
type firingLoop struct {
	registry  *Registry
	clock     Clock
	submitter WorkSubmitter
	factory   JobFactory
	listeners *ListenerManager
	logger    Logger
	idleWait  time.Duration

	wg      sync.WaitGroup
	stopped chan struct{}

	execMu    sync.Mutex
	executing map[TriggerKey]*firingExecution
	executed  int64
}

// firingExecution tracks one in-flight job execution so
// GetCurrentlyExecutingJobs and Interrupt have something to act on
// (spec.md §6 "get_currently_executing_jobs"/"interrupt(job_key)").
type firingExecution struct {
	fctx   *FireContext
	cancel context.CancelFunc
	job    Job
}

// newFiringLoop builds a loop whose acquisition window and idle sleep are
// both idleWait; a zero value defaults to DefaultIdleWaitTime.
func newFiringLoop(registry *Registry, clock Clock, submitter WorkSubmitter, factory JobFactory, listeners *ListenerManager, logger Logger, idleWait time.Duration) *firingLoop {
	if idleWait <= 0 {
		idleWait = DefaultIdleWaitTime
	}
	return &firingLoop{
		registry:  registry,
		clock:     clock,
		submitter: submitter,
		factory:   factory,
		listeners: listeners,
		logger:    logger,
		idleWait:  idleWait,
		stopped:   make(chan struct{}),
		executing: make(map[TriggerKey]*firingExecution),
	}
}

func (fl *firingLoop) start(ctx context.Context) {
	fl.wg.Add(1)
	go fl.run(ctx)
}

func (fl *firingLoop) stop() {
	close(fl.stopped)
	fl.wg.Wait()
}

func (fl *firingLoop) run(ctx context.Context) {
	defer fl.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-fl.stopped:
			return
		default:
		}

		now := fl.clock.Now()
		triggers, err := fl.registry.AcquireNextTriggers(now, maxTriggersPerAcquire, fl.idleWait)
		if err != nil {
			if fl.logger != nil {
				fl.logger.Errorf("acquire next triggers: %v", err)
			}
			fl.sleep(ctx, fl.idleWait)
			continue
		}

		if len(triggers) == 0 {
			fl.sleep(ctx, fl.idleWait)
			continue
		}

		for _, trig := range triggers {
			fl.waitAndFire(ctx, trig)
		}
	}
}

func (fl *firingLoop) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-fl.stopped:
	case <-fl.clock.After(d):
	}
}

// waitAndFire blocks until trig's cached NextFireTime arrives (or the loop
// is asked to stop), then drives it through TriggerFired, listener
// dispatch, and submission to the WorkSubmitter.
func (fl *firingLoop) waitAndFire(ctx context.Context, trig Trigger) {
	nf, ok := trig.NextFireTime()
	if !ok {
		fl.registry.ReleaseAcquiredTrigger(trig.Key())
		return
	}

	wait := nf.Sub(fl.clock.Now())
	if wait > 0 {
		select {
		case <-ctx.Done():
			fl.registry.ReleaseAcquiredTrigger(trig.Key())
			return
		case <-fl.stopped:
			fl.registry.ReleaseAcquiredTrigger(trig.Key())
			return
		case <-fl.clock.After(wait):
		}
	}

	fctx, shouldRun := fl.registry.TriggerFired(trig)
	if !shouldRun {
		return
	}

	if fl.listeners != nil {
		fl.listeners.fireTriggerFired(fctx)
		if fl.listeners.VetoJobExecution(fctx) {
			fl.listeners.fireJobExecutionVetoed(fctx)
			fl.registry.TriggerComplete(trig, fctx, JobResult{Instruction: NoopInstruction})
			return
		}
		fl.listeners.fireJobToBeExecuted(fctx)
	}

	job, err := fl.factory.NewJob(fctx.JobDetail)
	if err != nil {
		if fl.logger != nil {
			fl.logger.Errorf("build job for trigger %s: %v", trig.Key(), err)
		}
		result := JobResult{Instruction: NoopInstruction, Err: err}
		fl.registry.TriggerComplete(trig, fctx, result)
		if fl.listeners != nil {
			fl.listeners.fireJobWasExecuted(fctx, result)
			fl.listeners.fireTriggerComplete(fctx, TriggerError)
		}
		return
	}

	task := func(taskCtx context.Context) {
		execCtx, cancel := context.WithCancel(taskCtx)
		fctx.RuntimeContext = execCtx
		fl.registerExecuting(trig.Key(), fctx, cancel, job)

		result := job.Execute(fctx)

		fl.unregisterExecuting(trig.Key())
		cancel()
		atomic.AddInt64(&fl.executed, 1)

		fl.registry.TriggerComplete(trig, fctx, result)
		if fl.listeners != nil {
			fl.listeners.fireJobWasExecuted(fctx, result)
			state, _ := fl.registry.GetTriggerState(trig.Key())
			fl.listeners.fireTriggerComplete(fctx, state)
		}
	}

	if err := fl.submitter.Submit(ctx, task); err != nil {
		if fl.logger != nil {
			fl.logger.Warningf("submit job for trigger %s: %v, running inline", trig.Key(), err)
		}
		task(ctx)
	}
}

func (fl *firingLoop) registerExecuting(key TriggerKey, fctx *FireContext, cancel context.CancelFunc, job Job) {
	fl.execMu.Lock()
	fl.executing[key] = &firingExecution{fctx: fctx, cancel: cancel, job: job}
	fl.execMu.Unlock()
}

func (fl *firingLoop) unregisterExecuting(key TriggerKey) {
	fl.execMu.Lock()
	delete(fl.executing, key)
	fl.execMu.Unlock()
}

// currentlyExecuting returns the FireContext of every firing presently
// running (spec.md §6 "get_currently_executing_jobs").
func (fl *firingLoop) currentlyExecuting() []*FireContext {
	fl.execMu.Lock()
	defer fl.execMu.Unlock()
	out := make([]*FireContext, 0, len(fl.executing))
	for _, ex := range fl.executing {
		out = append(out, ex.fctx)
	}
	return out
}

// interrupt cancels every currently-executing firing of jobKey's
// RuntimeContext, additionally calling Interrupt on any execution whose
// Job implements InterruptableJob (spec.md §6 "interrupt(job_key)"). It
// reports whether any matching execution was found.
func (fl *firingLoop) interrupt(jobKey JobKey) (bool, error) {
	fl.execMu.Lock()
	defer fl.execMu.Unlock()

	found := false
	var firstErr error
	for _, ex := range fl.executing {
		if ex.fctx.JobDetail.Key != jobKey {
			continue
		}
		found = true
		if ij, ok := ex.job.(InterruptableJob); ok {
			if err := ij.Interrupt(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		ex.cancel()
	}
	return found, firstErr
}

func (fl *firingLoop) executedCount() int64 {
	return atomic.LoadInt64(&fl.executed)
}
