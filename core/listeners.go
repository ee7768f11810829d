package core

import (
	"reflect"
	"time"
)

// JobListener observes a job's firing lifecycle (spec.md §3 "Listener
// dispatch"). JobExecutionVetoed reports a firing that a TriggerListener's
// VetoJobExecution cancelled before the job ran.
type JobListener interface {
	JobToBeExecuted(fctx *FireContext)
	JobExecutionVetoed(fctx *FireContext)
	JobWasExecuted(fctx *FireContext, result JobResult)
}

// TriggerListener observes a trigger's own lifecycle, independent of
// whether its job actually ran.
type TriggerListener interface {
	TriggerFired(fctx *FireContext)
	// VetoJobExecution returning true cancels the firing before the job
	// factory is even consulted.
	VetoJobExecution(fctx *FireContext) bool
	TriggerMisfired(trig Trigger)
	TriggerComplete(fctx *FireContext, state TriggerState)
}

// SchedulerListener observes scheduler-wide lifecycle events: start/stop,
// job/trigger add/remove, pause/resume, errors (spec.md §3 "Listener
// dispatch").
type SchedulerListener interface {
	SchedulerStarted()
	SchedulerShuttingDown()
	SchedulerShutdown()
	JobScheduled(trig Trigger)
	JobUnscheduled(key TriggerKey)
	JobAdded(detail *JobDetail)
	JobDeleted(key JobKey)
	JobPaused(key JobKey)
	JobResumed(key JobKey)
	TriggerPaused(key TriggerKey)
	TriggerResumed(key TriggerKey)
	SchedulerError(msg string, err error)
}

// BaseJobListener, BaseTriggerListener and BaseSchedulerListener give
// listeners a zero-value-safe embed so callers only implement the methods
// they actually care about (spec.md §3 uses the same "partial listener"
// idiom Quartz's JobListenerSupport does).
type BaseJobListener struct{}

func (BaseJobListener) JobToBeExecuted(*FireContext)           {}
func (BaseJobListener) JobExecutionVetoed(*FireContext)        {}
func (BaseJobListener) JobWasExecuted(*FireContext, JobResult) {}

type BaseTriggerListener struct{}

func (BaseTriggerListener) TriggerFired(*FireContext)                  {}
func (BaseTriggerListener) VetoJobExecution(*FireContext) bool         { return false }
func (BaseTriggerListener) TriggerMisfired(Trigger)                    {}
func (BaseTriggerListener) TriggerComplete(*FireContext, TriggerState) {}

type BaseSchedulerListener struct{}

func (BaseSchedulerListener) SchedulerStarted()             {}
func (BaseSchedulerListener) SchedulerShuttingDown()        {}
func (BaseSchedulerListener) SchedulerShutdown()            {}
func (BaseSchedulerListener) JobScheduled(Trigger)           {}
func (BaseSchedulerListener) JobUnscheduled(TriggerKey)      {}
func (BaseSchedulerListener) JobAdded(*JobDetail)            {}
func (BaseSchedulerListener) JobDeleted(JobKey)              {}
func (BaseSchedulerListener) JobPaused(JobKey)               {}
func (BaseSchedulerListener) JobResumed(JobKey)              {}
func (BaseSchedulerListener) TriggerPaused(TriggerKey)       {}
func (BaseSchedulerListener) TriggerResumed(TriggerKey)      {}
func (BaseSchedulerListener) SchedulerError(string, error)   {}

// listenerContainer keeps listeners in registration order, deduplicated
// by concrete type, the same idiom the teacher's middlewareContainer uses
// for job middleware.
type listenerContainer[T any] struct {
	byType map[string]T
	order  []string
}

func newListenerContainer[T any]() *listenerContainer[T] {
	return &listenerContainer[T]{byType: make(map[string]T)}
}

func (c *listenerContainer[T]) add(l T) {
	t := reflect.TypeOf(l).String()
	if _, ok := c.byType[t]; ok {
		return
	}
	c.byType[t] = l
	c.order = append(c.order, t)
}

// remove deletes l by its concrete type, reporting whether it was present.
func (c *listenerContainer[T]) remove(l T) bool {
	t := reflect.TypeOf(l).String()
	if _, ok := c.byType[t]; !ok {
		return false
	}
	delete(c.byType, t)
	for i, ot := range c.order {
		if ot == t {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

func (c *listenerContainer[T]) all() []T {
	out := make([]T, 0, len(c.order))
	for _, t := range c.order {
		out = append(out, c.byType[t])
	}
	return out
}

// ListenerManager dispatches job/trigger/scheduler events to registered
// listeners, synchronously; global listeners fire in registration order
// (spec.md §3 "Listener dispatch"). Each of the three listener kinds is partitioned
// into a global list (fires for every event of that kind) and a named map
// (fires only for events scoped to the matching job/trigger key, or, for
// scheduler listeners, under whatever name the caller chose at
// registration). Dispatch order is globals first, then the matching named
// entry; named scheduler listeners, which all receive every event, fire in
// no defined order among themselves (spec.md §4.7). A ListenerManager has no mutex of its own: callers
// register listeners at setup time, before the scheduler starts, matching
// Quartz's own convention.
type ListenerManager struct {
	jobListeners      *listenerContainer[JobListener]
	namedJobListeners map[JobKey]JobListener

	triggerListeners      *listenerContainer[TriggerListener]
	namedTriggerListeners map[TriggerKey]TriggerListener

	schedulerListeners      *listenerContainer[SchedulerListener]
	namedSchedulerListeners map[string]SchedulerListener
}

func NewListenerManager() *ListenerManager {
	return &ListenerManager{
		jobListeners:            newListenerContainer[JobListener](),
		namedJobListeners:       make(map[JobKey]JobListener),
		triggerListeners:        newListenerContainer[TriggerListener](),
		namedTriggerListeners:   make(map[TriggerKey]TriggerListener),
		schedulerListeners:      newListenerContainer[SchedulerListener](),
		namedSchedulerListeners: make(map[string]SchedulerListener),
	}
}

func (m *ListenerManager) AddJobListener(l JobListener) { m.jobListeners.add(l) }

// AddJobListenerForKey registers l to fire only for events whose
// FireContext.JobDetail.Key equals key, after the global job listeners.
func (m *ListenerManager) AddJobListenerForKey(key JobKey, l JobListener) {
	m.namedJobListeners[key] = l
}

func (m *ListenerManager) RemoveJobListener(l JobListener) bool { return m.jobListeners.remove(l) }

func (m *ListenerManager) RemoveJobListenerForKey(key JobKey) bool {
	if _, ok := m.namedJobListeners[key]; !ok {
		return false
	}
	delete(m.namedJobListeners, key)
	return true
}

func (m *ListenerManager) AddTriggerListener(l TriggerListener) { m.triggerListeners.add(l) }

// AddTriggerListenerForKey registers l to fire only for events concerning
// the trigger identified by key, after the global trigger listeners.
func (m *ListenerManager) AddTriggerListenerForKey(key TriggerKey, l TriggerListener) {
	m.namedTriggerListeners[key] = l
}

func (m *ListenerManager) RemoveTriggerListener(l TriggerListener) bool {
	return m.triggerListeners.remove(l)
}

func (m *ListenerManager) RemoveTriggerListenerForKey(key TriggerKey) bool {
	if _, ok := m.namedTriggerListeners[key]; !ok {
		return false
	}
	delete(m.namedTriggerListeners, key)
	return true
}

func (m *ListenerManager) AddSchedulerListener(l SchedulerListener) {
	m.schedulerListeners.add(l)
}

// AddNamedSchedulerListener registers l under name, so it can later be
// removed with RemoveNamedSchedulerListener without holding a reference to
// l itself. Scheduler events have no per-job/per-trigger scope, so a named
// scheduler listener fires for every event, same as a global one; the name
// only exists to make removal addressable (spec.md §6 "add/remove for
// ... named ... scheduler listeners").
func (m *ListenerManager) AddNamedSchedulerListener(name string, l SchedulerListener) {
	m.namedSchedulerListeners[name] = l
}

func (m *ListenerManager) RemoveSchedulerListener(l SchedulerListener) bool {
	return m.schedulerListeners.remove(l)
}

func (m *ListenerManager) RemoveNamedSchedulerListener(name string) bool {
	if _, ok := m.namedSchedulerListeners[name]; !ok {
		return false
	}
	delete(m.namedSchedulerListeners, name)
	return true
}

// VetoJobExecution asks every trigger listener in turn, globals first then
// the named listener for this trigger; the first veto wins and
// short-circuits the remaining listeners (spec.md §3 "veto support on
// trigger.fired").
func (m *ListenerManager) VetoJobExecution(fctx *FireContext) bool {
	for _, l := range m.triggerListeners.all() {
		if l.VetoJobExecution(fctx) {
			return true
		}
	}
	if fctx == nil {
		return false
	}
	if l, ok := m.namedTriggerListeners[fctx.TriggerKey]; ok {
		return l.VetoJobExecution(fctx)
	}
	return false
}

func (m *ListenerManager) fireTriggerFired(fctx *FireContext) {
	for _, l := range m.triggerListeners.all() {
		l.TriggerFired(fctx)
	}
	if fctx == nil {
		return
	}
	if l, ok := m.namedTriggerListeners[fctx.TriggerKey]; ok {
		l.TriggerFired(fctx)
	}
}

func (m *ListenerManager) fireJobToBeExecuted(fctx *FireContext) {
	for _, l := range m.jobListeners.all() {
		l.JobToBeExecuted(fctx)
	}
	if l, ok := m.namedJobListener(fctx); ok {
		l.JobToBeExecuted(fctx)
	}
}

func (m *ListenerManager) fireJobExecutionVetoed(fctx *FireContext) {
	for _, l := range m.jobListeners.all() {
		l.JobExecutionVetoed(fctx)
	}
	if l, ok := m.namedJobListener(fctx); ok {
		l.JobExecutionVetoed(fctx)
	}
	m.fireTriggerComplete(fctx, TriggerNone)
}

func (m *ListenerManager) fireJobWasExecuted(fctx *FireContext, result JobResult) {
	for _, l := range m.jobListeners.all() {
		l.JobWasExecuted(fctx, result)
	}
	if l, ok := m.namedJobListener(fctx); ok {
		l.JobWasExecuted(fctx, result)
	}
}

func (m *ListenerManager) namedJobListener(fctx *FireContext) (JobListener, bool) {
	if fctx == nil || fctx.JobDetail == nil {
		return nil, false
	}
	l, ok := m.namedJobListeners[fctx.JobDetail.Key]
	return l, ok
}

func (m *ListenerManager) fireTriggerComplete(fctx *FireContext, state TriggerState) {
	for _, l := range m.triggerListeners.all() {
		l.TriggerComplete(fctx, state)
	}
	if fctx == nil {
		return
	}
	if l, ok := m.namedTriggerListeners[fctx.TriggerKey]; ok {
		l.TriggerComplete(fctx, state)
	}
}

func (m *ListenerManager) fireTriggerMisfired(trig Trigger) {
	for _, l := range m.triggerListeners.all() {
		l.TriggerMisfired(trig)
	}
	if trig == nil {
		return
	}
	if l, ok := m.namedTriggerListeners[trig.Key()]; ok {
		l.TriggerMisfired(trig)
	}
}

func (m *ListenerManager) fireSchedulerStarted() {
	m.forEachScheduler(func(l SchedulerListener) { l.SchedulerStarted() })
}

func (m *ListenerManager) fireSchedulerShuttingDown() {
	m.forEachScheduler(func(l SchedulerListener) { l.SchedulerShuttingDown() })
}

func (m *ListenerManager) fireSchedulerShutdown() {
	m.forEachScheduler(func(l SchedulerListener) { l.SchedulerShutdown() })
}

func (m *ListenerManager) fireJobScheduled(trig Trigger) {
	m.forEachScheduler(func(l SchedulerListener) { l.JobScheduled(trig) })
}

func (m *ListenerManager) fireJobUnscheduled(key TriggerKey) {
	m.forEachScheduler(func(l SchedulerListener) { l.JobUnscheduled(key) })
}

func (m *ListenerManager) fireJobAdded(detail *JobDetail) {
	m.forEachScheduler(func(l SchedulerListener) { l.JobAdded(detail) })
}

func (m *ListenerManager) fireJobDeleted(key JobKey) {
	m.forEachScheduler(func(l SchedulerListener) { l.JobDeleted(key) })
}

func (m *ListenerManager) fireJobPaused(key JobKey) {
	m.forEachScheduler(func(l SchedulerListener) { l.JobPaused(key) })
}

func (m *ListenerManager) fireJobResumed(key JobKey) {
	m.forEachScheduler(func(l SchedulerListener) { l.JobResumed(key) })
}

func (m *ListenerManager) fireTriggerPaused(key TriggerKey) {
	m.forEachScheduler(func(l SchedulerListener) { l.TriggerPaused(key) })
}

func (m *ListenerManager) fireTriggerResumed(key TriggerKey) {
	m.forEachScheduler(func(l SchedulerListener) { l.TriggerResumed(key) })
}

func (m *ListenerManager) fireSchedulerError(msg string, err error) {
	m.forEachScheduler(func(l SchedulerListener) { l.SchedulerError(msg, err) })
}

// forEachScheduler dispatches to globals first, then every named scheduler
// listener (spec.md §4.7 "globals first, then named").
func (m *ListenerManager) forEachScheduler(fn func(SchedulerListener)) {
	for _, l := range m.schedulerListeners.all() {
		fn(l)
	}
	for _, l := range m.namedSchedulerListeners {
		fn(l)
	}
}

// elapsedSince is a small helper shared by listeners that log firing
// latency (how long after ScheduledFireTime the job actually started).
func elapsedSince(fctx *FireContext) time.Duration {
	if fctx == nil || fctx.ScheduledFireTime.IsZero() {
		return 0
	}
	return fctx.FireTime.Sub(fctx.ScheduledFireTime)
}
