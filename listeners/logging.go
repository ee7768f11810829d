package listeners

import (
	"time"

	"github.com/cronforge/quartzcore/core"
)

// LoggingListener logs every job, trigger, and scheduler lifecycle event
// at an appropriate level, in the teacher's structured-logging idiom: one
// line per event, key fields interpolated rather than dumped as a struct.
type LoggingListener struct {
	logger core.Logger
}

// NewLoggingListener returns a listener that logs through logger.
func NewLoggingListener(logger core.Logger) *LoggingListener {
	return &LoggingListener{logger: logger}
}

// JobListener

func (l *LoggingListener) JobToBeExecuted(fctx *core.FireContext) {
	l.logger.Noticef("job about to execute: trigger=%s job=%s", fctx.TriggerKey, fctx.JobDetail.Key)
}

func (l *LoggingListener) JobExecutionVetoed(fctx *core.FireContext) {
	l.logger.Noticef("job execution vetoed: trigger=%s job=%s", fctx.TriggerKey, fctx.JobDetail.Key)
}

func (l *LoggingListener) JobWasExecuted(fctx *core.FireContext, result core.JobResult) {
	if result.Err != nil {
		l.logger.Errorf("job failed: trigger=%s job=%s err=%v", fctx.TriggerKey, fctx.JobDetail.Key, result.Err)
		return
	}
	l.logger.Debugf("job completed: trigger=%s job=%s latency=%s", fctx.TriggerKey, fctx.JobDetail.Key, firingLatency(fctx))
}

// firingLatency is how long after ScheduledFireTime the job actually
// started, mirroring core's own (unexported) elapsedSince helper.
func firingLatency(fctx *core.FireContext) time.Duration {
	if fctx == nil || fctx.ScheduledFireTime.IsZero() {
		return 0
	}
	return fctx.FireTime.Sub(fctx.ScheduledFireTime)
}

// TriggerListener

func (l *LoggingListener) TriggerFired(fctx *core.FireContext) {
	l.logger.Debugf("trigger fired: %s at %s", fctx.TriggerKey, fctx.FireTime)
}

func (l *LoggingListener) VetoJobExecution(*core.FireContext) bool { return false }

func (l *LoggingListener) TriggerMisfired(trig core.Trigger) {
	l.logger.Warningf("trigger misfired: %s", trig.Key())
}

func (l *LoggingListener) TriggerComplete(fctx *core.FireContext, state core.TriggerState) {
	l.logger.Debugf("trigger complete: %s new_state=%s", fctx.TriggerKey, state)
}

// SchedulerListener

func (l *LoggingListener) SchedulerStarted()      { l.logger.Noticef("scheduler started") }
func (l *LoggingListener) SchedulerShuttingDown() { l.logger.Noticef("scheduler shutting down") }
func (l *LoggingListener) SchedulerShutdown()     { l.logger.Noticef("scheduler shutdown complete") }

func (l *LoggingListener) JobScheduled(trig core.Trigger) {
	l.logger.Noticef("trigger scheduled: %s", trig.Key())
}

func (l *LoggingListener) JobUnscheduled(key core.TriggerKey) {
	l.logger.Noticef("trigger unscheduled: %s", key)
}

func (l *LoggingListener) JobAdded(detail *core.JobDetail) {
	l.logger.Noticef("job added: %s", detail.Key)
}

func (l *LoggingListener) JobDeleted(key core.JobKey) {
	l.logger.Noticef("job deleted: %s", key)
}

func (l *LoggingListener) JobPaused(key core.JobKey)   { l.logger.Noticef("job paused: %s", key) }
func (l *LoggingListener) JobResumed(key core.JobKey)  { l.logger.Noticef("job resumed: %s", key) }
func (l *LoggingListener) TriggerPaused(key core.TriggerKey)  { l.logger.Noticef("trigger paused: %s", key) }
func (l *LoggingListener) TriggerResumed(key core.TriggerKey) { l.logger.Noticef("trigger resumed: %s", key) }

func (l *LoggingListener) SchedulerError(msg string, err error) {
	l.logger.Errorf("scheduler error: %s: %v", msg, err)
}

var (
	_ core.JobListener       = (*LoggingListener)(nil)
	_ core.TriggerListener   = (*LoggingListener)(nil)
	_ core.SchedulerListener = (*LoggingListener)(nil)
)
