package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cronforge/quartzcore/config"
	"github.com/cronforge/quartzcore/core"
	"github.com/cronforge/quartzcore/jobs"
	"github.com/cronforge/quartzcore/listeners"
	"github.com/cronforge/quartzcore/metrics"
	"github.com/cronforge/quartzcore/workerpool"
)

// DaemonCommand boots a SchedulerCore from a manifest file and runs it
// until a termination signal arrives. Jobs and triggers come from a
// config.Manifest file rather than Docker label discovery, and there
// is no web/admin surface.
type DaemonCommand struct {
	ManifestFile string `long:"manifest" env:"QUARTZCORE_MANIFEST" description:"Job manifest path" default:"./quartzcore.yaml"`
	LogLevel     string `long:"log-level" env:"QUARTZCORE_LOG_LEVEL" description:"Log level (trace,debug,info,warn,error)"`

	WorkerConcurrency int `long:"worker-concurrency" env:"QUARTZCORE_WORKER_CONCURRENCY" description:"Bounded worker pool size" default:"10"`
	WorkerQueueSize   int `long:"worker-queue-size" env:"QUARTZCORE_WORKER_QUEUE_SIZE" description:"Worker pool queue depth" default:"100"`

	WebhookURL string `long:"webhook-url" env:"QUARTZCORE_WEBHOOK_URL" description:"Failure-notification webhook endpoint"`

	MetricsAddr string `long:"metrics-address" env:"QUARTZCORE_METRICS_ADDRESS" description:"Prometheus /metrics listen address (empty disables it)"`

	ShutdownTimeout time.Duration `long:"shutdown-timeout" env:"QUARTZCORE_SHUTDOWN_TIMEOUT" description:"Bound on graceful shutdown" default:"30s"`

	Logger core.Logger

	scheduler *core.SchedulerCore
	pool      *workerpool.Pool
	shutdown  *core.ShutdownManager
	recorder  *metrics.Recorder
	done      chan struct{}
}

// Execute runs the daemon: Execute implements go-flags' Commander.
func (c *DaemonCommand) Execute(_ []string) error {
	if err := c.boot(); err != nil {
		return err
	}
	if err := c.start(); err != nil {
		return err
	}
	return c.awaitShutdown()
}

func (c *DaemonCommand) boot() error {
	c.done = make(chan struct{})

	logger := c.Logger
	if logger == nil {
		logger = core.NewLogrusAdapter(nil)
		c.Logger = logger
	}
	if c.LogLevel != "" {
		if l, ok := logger.(*core.LogrusAdapter); ok {
			level, err := logrusLevel(c.LogLevel)
			if err != nil {
				return err
			}
			l.SetLevel(level)
		}
	}

	manifest, err := config.Load(c.ManifestFile)
	if err != nil {
		return fmt.Errorf("load manifest %q: %w", c.ManifestFile, err)
	}

	pool, err := workerpool.New(workerpool.Config{
		Concurrency: c.WorkerConcurrency,
		QueueSize:   c.WorkerQueueSize,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("start worker pool: %w", err)
	}
	c.pool = pool

	factory := core.NewDefaultJobFactory()
	factory.Register("shell", jobs.NewShellJobFromDetail)
	factory.Register("http", jobs.NewHTTPJobFromDetail)
	factory.Register("noop", jobs.NewNoopJobFromDetail)

	sched, err := core.NewSchedulerCore(core.SchedulerConfig{
		Submitter: pool,
		Factory:   factory,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("build scheduler: %w", err)
	}
	c.scheduler = sched

	sched.Listeners().AddJobListener(listeners.NewLoggingListener(logger))
	sched.Listeners().AddTriggerListener(listeners.NewLoggingListener(logger))
	sched.Listeners().AddSchedulerListener(listeners.NewLoggingListener(logger))

	if c.WebhookURL != "" {
		hook, err := listeners.NewWebhookListener(listeners.WebhookConfig{
			URL:    c.WebhookURL,
			Policy: listeners.NotifyOnFailureOnly,
			Dedup:  listeners.NewNotificationDedup(5 * time.Minute),
		}, logger)
		if err != nil {
			return fmt.Errorf("configure webhook listener: %w", err)
		}
		sched.Listeners().AddJobListener(hook)
	}

	if c.MetricsAddr != "" {
		c.recorder = metrics.NewRecorder()
		sched.Listeners().AddJobListener(c.recorder)
		sched.Listeners().AddTriggerListener(c.recorder)
		sched.Listeners().AddSchedulerListener(c.recorder)
	}

	if err := config.Apply(manifest, sched); err != nil {
		return fmt.Errorf("apply manifest %q: %w", c.ManifestFile, err)
	}

	c.shutdown = core.NewShutdownManager(logger, c.ShutdownTimeout)
	c.shutdown.RegisterScheduler(sched)
	c.shutdown.RegisterHook(core.ShutdownHook{
		Name:     "worker-pool",
		Priority: 20,
		Hook: func(ctx context.Context) error {
			deadline := c.ShutdownTimeout
			if d, ok := ctx.Deadline(); ok {
				deadline = time.Until(d)
			}
			return c.pool.Close(deadline)
		},
	})

	return nil
}

func (c *DaemonCommand) start() error {
	c.shutdown.ListenForShutdown()

	go func() {
		<-c.shutdown.ShutdownChan()
		close(c.done)
	}()

	c.Logger.Noticef("starting scheduler with manifest %q", c.ManifestFile)
	if err := c.scheduler.Start(context.Background()); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	jobCount := len(c.scheduler.JobKeys())
	triggerCount := len(c.scheduler.TriggerKeys())
	c.Logger.Noticef("scheduler running: %d jobs, %d triggers", jobCount, triggerCount)

	if c.MetricsAddr != "" {
		go c.serveMetrics()
	}

	c.Logger.Noticef("quartzcored is now running. Press Ctrl+C to stop.")
	return nil
}

func (c *DaemonCommand) awaitShutdown() error {
	<-c.done
	return nil
}

// serveMetrics runs the Prometheus /metrics HTTP endpoint until the
// process receives a shutdown signal; a failure here is logged but never
// brings the scheduler itself down.
func (c *DaemonCommand) serveMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.recorder.Handler())
	srv := &http.Server{
		Addr:              c.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-c.shutdown.ShutdownChan()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	c.Logger.Noticef("metrics server listening on %s", c.MetricsAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		c.Logger.Errorf("metrics server failed: %v", err)
	}
}

// Scheduler exposes the running SchedulerCore, mainly for tests.
func (c *DaemonCommand) Scheduler() *core.SchedulerCore {
	return c.scheduler
}
