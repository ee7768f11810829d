// Package workerpool provides a bounded core.WorkSubmitter: a fixed
// number of goroutines drain a task queue, and submission itself is
// rate-limited so a burst of firings degrades into backpressure on the
// firing loop instead of an unbounded goroutine spike.
package workerpool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/cronforge/quartzcore/core"
)

// task pairs a submitted job closure with the context the caller handed
// in, so workers don't need a second channel to carry it.
type task struct {
	ctx context.Context
	fn  func(context.Context)
}

// Pool is a bounded core.WorkSubmitter. Workers goroutines are started
// once, at construction, and run until Close.
type Pool struct {
	tasks   chan task
	limiter *rate.Limiter
	logger  core.Logger

	wg     sync.WaitGroup
	closed chan struct{}
	once   sync.Once
}

// Config controls pool sizing and admission.
type Config struct {
	// Concurrency is the number of worker goroutines. Must be positive.
	Concurrency int

	// QueueSize bounds how many accepted-but-not-yet-running tasks may
	// queue; once it is full, Submit blocks until a worker takes a task.
	// Zero means unbuffered (a task is only accepted once a worker is free).
	QueueSize int

	// RateLimit caps task admissions per second. Zero disables the
	// limiter (bounded purely by Concurrency and QueueSize).
	RateLimit rate.Limit

	// Burst is the limiter's token bucket size. Ignored when RateLimit
	// is zero.
	Burst int

	Logger core.Logger
}

// New starts a Pool per cfg. Concurrency must be positive.
func New(cfg Config) (*Pool, error) {
	if cfg.Concurrency <= 0 {
		return nil, fmt.Errorf("%w: workerpool concurrency must be positive", core.ErrInvalidConfiguration)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = core.NewLogrusAdapter(nil)
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = cfg.Concurrency
		}
		limiter = rate.NewLimiter(cfg.RateLimit, burst)
	}

	p := &Pool{
		tasks:   make(chan task, cfg.QueueSize),
		limiter: limiter,
		logger:  logger,
		closed:  make(chan struct{}),
	}

	for i := 0; i < cfg.Concurrency; i++ {
		p.wg.Add(1)
		go p.runWorker(i)
	}
	return p, nil
}

func (p *Pool) runWorker(id int) {
	defer p.wg.Done()
	for t := range p.tasks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					p.logger.Errorf("workerpool: worker %d recovered from panic: %v", id, r)
				}
			}()
			t.fn(t.ctx)
		}()
	}
}

// Submit implements core.WorkSubmitter. It waits on the rate limiter (if
// configured), then waits for room in the queue and enqueues the task. A
// full queue does not make it fail: it returns an error only once ctx is
// done or the pool has been closed.
func (p *Pool) Submit(ctx context.Context, fn func(context.Context)) error {
	select {
	case <-p.closed:
		return fmt.Errorf("workerpool: submit after close")
	default:
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("workerpool: rate limit wait: %w", err)
		}
	}

	select {
	case p.tasks <- task{ctx: ctx, fn: fn}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.closed:
		return fmt.Errorf("workerpool: submit after close")
	}
}

// Close stops accepting new tasks and waits up to timeout for queued and
// in-flight tasks to finish.
func (p *Pool) Close(timeout time.Duration) error {
	p.once.Do(func() {
		close(p.closed)
		close(p.tasks)
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("workerpool: close timed out after %s with workers still draining", timeout)
	}
}

var _ core.WorkSubmitter = (*Pool)(nil)
