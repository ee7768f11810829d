package core

import "context"

// WorkSubmitter hands a firing off to a worker pool (spec.md §1 "concrete
// worker pool" is an external collaborator). SchedulerCore never spawns
// goroutines to run jobs itself: it calls Submit, and runs a firing inline
// on the firing loop only when Submit returns an error, so a bounded pool,
// an unbounded go-per-job pool, or a remote executor can all sit behind
// this same interface.
//
// Submit must not block waiting for the task to finish; it returns once
// the task has been accepted (queued or started). A full/unavailable pool
// should return an error so the firing loop can apply backpressure
// (spec.md §6 "QuartzSchedulerThread" blocks acquiring new triggers while
// no worker is available) rather than dropping the firing silently.
type WorkSubmitter interface {
	Submit(ctx context.Context, task func(context.Context)) error
}

// InlineSubmitter runs the task synchronously on the calling goroutine.
// It has no concurrency and exists for tests and single-threaded
// embedding, never for production use (a single long-running job would
// otherwise stall the whole firing loop).
type InlineSubmitter struct{}

func (InlineSubmitter) Submit(ctx context.Context, task func(context.Context)) error {
	task(ctx)
	return nil
}

// GoSubmitter spawns one goroutine per task with no bound. It is the
// simplest real submitter and a reasonable default for low-volume
// schedules; high-volume deployments should prefer a bounded pool (see
// package workerpool) so a burst of firings cannot exhaust memory.
type GoSubmitter struct{}

func (GoSubmitter) Submit(ctx context.Context, task func(context.Context)) error {
	go task(ctx)
	return nil
}
