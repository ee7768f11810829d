// Package metrics exposes Prometheus instrumentation for a SchedulerCore,
// grounded on ErlanBelekov's dist-job-scheduler internal/metrics package
// but reshaped into a core.JobListener/core.SchedulerListener so the
// scheduler drives it through the same listener dispatch every other
// observer uses, rather than through package-level globals.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cronforge/quartzcore/core"
)

// Recorder owns its own prometheus.Registry rather than registering onto
// prometheus.DefaultRegisterer, so multiple SchedulerCores (and tests) can
// each have their own Recorder without a MustRegister panic on the
// second one.
type Recorder struct {
	core.BaseJobListener
	core.BaseTriggerListener
	core.BaseSchedulerListener

	registry *prometheus.Registry

	jobsInFlight         prometheus.Gauge
	jobsCompletedTotal   *prometheus.CounterVec
	triggerFireLatency   prometheus.Histogram
	misfiresHandledTotal *prometheus.CounterVec
	schedulerStartTime   prometheus.Gauge
	schedulerErrorsTotal prometheus.Counter
}

// NewRecorder builds a Recorder with its metrics registered to a private
// registry, ready to be added to a SchedulerCore via AddJobListener /
// AddTriggerListener / AddSchedulerListener.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),

		jobsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quartzcore",
			Name:      "jobs_in_flight",
			Help:      "Number of jobs currently executing.",
		}),
		jobsCompletedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quartzcore",
			Name:      "jobs_completed_total",
			Help:      "Total job firings, by outcome.",
		}, []string{"outcome"}),
		triggerFireLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quartzcore",
			Name:      "trigger_fire_latency_seconds",
			Help:      "Delay between a trigger's scheduled fire time and its actual fire time.",
			Buckets:   prometheus.DefBuckets,
		}),
		misfiresHandledTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quartzcore",
			Name:      "misfires_handled_total",
			Help:      "Total misfires detected and rescheduled, by trigger kind.",
		}, []string{"kind"}),
		schedulerStartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quartzcore",
			Name:      "scheduler_start_time_seconds",
			Help:      "Unix timestamp when the scheduler last started.",
		}),
		schedulerErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quartzcore",
			Name:      "scheduler_errors_total",
			Help:      "Total errors reported via SchedulerListener.SchedulerError.",
		}),
	}

	r.registry.MustRegister(
		r.jobsInFlight,
		r.jobsCompletedTotal,
		r.triggerFireLatency,
		r.misfiresHandledTotal,
		r.schedulerStartTime,
		r.schedulerErrorsTotal,
	)

	return r
}

// Handler serves the Recorder's metrics in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// JobToBeExecuted implements core.JobListener.
func (r *Recorder) JobToBeExecuted(*core.FireContext) {
	r.jobsInFlight.Inc()
}

// JobExecutionVetoed implements core.JobListener.
func (r *Recorder) JobExecutionVetoed(*core.FireContext) {
	r.jobsCompletedTotal.WithLabelValues("vetoed").Inc()
}

// JobWasExecuted implements core.JobListener.
func (r *Recorder) JobWasExecuted(fctx *core.FireContext, result core.JobResult) {
	r.jobsInFlight.Dec()

	outcome := "success"
	if result.Err != nil {
		outcome = "failure"
	}
	r.jobsCompletedTotal.WithLabelValues(outcome).Inc()
}

// TriggerFired implements core.TriggerListener.
func (r *Recorder) TriggerFired(fctx *core.FireContext) {
	if fctx == nil || fctx.ScheduledFireTime.IsZero() {
		return
	}
	r.triggerFireLatency.Observe(fctx.FireTime.Sub(fctx.ScheduledFireTime).Seconds())
}

// TriggerMisfired implements core.TriggerListener.
func (r *Recorder) TriggerMisfired(trig core.Trigger) {
	kind := "unknown"
	switch trig.(type) {
	case *core.CronTrigger:
		kind = "cron"
	case *core.SimpleTrigger:
		kind = "simple"
	}
	r.misfiresHandledTotal.WithLabelValues(kind).Inc()
}

// SchedulerStarted implements core.SchedulerListener.
func (r *Recorder) SchedulerStarted() {
	r.schedulerStartTime.Set(float64(time.Now().Unix()))
}

// SchedulerError implements core.SchedulerListener.
func (r *Recorder) SchedulerError(string, error) {
	r.schedulerErrorsTotal.Inc()
}

var (
	_ core.JobListener       = (*Recorder)(nil)
	_ core.TriggerListener   = (*Recorder)(nil)
	_ core.SchedulerListener = (*Recorder)(nil)
)
