package core

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// JobStore is the persistence contract the registry implements in-memory
// (spec.md §5 "Registry / JobStore"). A durable implementation is an
// external collaborator out of this package's scope; it would satisfy the
// same interface so SchedulerCore need not change.
type JobStore interface {
	StoreJob(detail *JobDetail, replaceExisting bool) error
	StoreTrigger(trig Trigger, replaceExisting bool) error
	RemoveJob(key JobKey) (bool, error)
	RemoveTrigger(key TriggerKey) (bool, error)
	ReplaceTrigger(key TriggerKey, newTrig Trigger) (bool, error)

	GetJobDetail(key JobKey) (*JobDetail, bool)
	GetTrigger(key TriggerKey) (Trigger, bool)
	GetTriggerState(key TriggerKey) (TriggerState, error)
	GetTriggersForJob(key JobKey) []Trigger

	PauseTrigger(key TriggerKey) error
	PauseTriggerGroup(group string) error
	PauseJob(key JobKey) error
	PauseJobGroup(group string) error
	PauseAll()

	ResumeTrigger(key TriggerKey) error
	ResumeTriggerGroup(group string) error
	ResumeJob(key JobKey) error
	ResumeJobGroup(group string) error
	ResumeAll()

	AddCalendar(name string, cal Calendar, replaceExisting, updateTriggers bool) error
	GetCalendar(name string) (Calendar, bool)
	RemoveCalendar(name string) (bool, error)

	AcquireNextTriggers(now time.Time, maxCount int, timeWindow time.Duration) ([]Trigger, error)
	ReleaseAcquiredTrigger(key TriggerKey)
	TriggerFired(trig Trigger) (*FireContext, bool)
	TriggerComplete(trig Trigger, fctx *FireContext, result JobResult)
}

// triggerEntry bundles a Trigger with the registry-owned state a pure
// Trigger implementation doesn't carry itself.
type triggerEntry struct {
	trigger Trigger
	state   TriggerState

	// override carries a one-shot JobDataMap/volatile pair consumed by the
	// next TriggerFired, used by ad hoc manual triggers (spec.md §6
	// "trigger_job... optional data, volatile").
	override *triggerDataOverride
}

type triggerDataOverride struct {
	data     JobDataMap
	volatile bool
}

// Registry is the in-memory JobStore (spec.md §5). All exported methods
// are safe for concurrent use.
type Registry struct {
	mu sync.RWMutex

	jobs          map[JobKey]*JobDetail
	jobsByGroup   map[string]map[JobKey]bool
	triggers      map[TriggerKey]*triggerEntry
	triggersByJob map[JobKey]map[TriggerKey]bool
	triggersByGroup map[string]map[TriggerKey]bool

	pausedTriggerGroups map[string]bool
	pausedJobGroups     map[string]bool

	blockedJobs map[JobKey]bool
	// acquired maps a reserved trigger to the instant it was acquired, the
	// lease start RecoverStaleAcquisitions measures against (spec.md §4.4
	// "an acquired trigger is reserved... a recovery pass on startup
	// releases reservations older than a lease threshold").
	acquired map[TriggerKey]time.Time
	// recovering marks triggers whose reservation RecoverStaleAcquisitions
	// just released; the next TriggerFired for that key sets
	// FireContext.Recovering and clears the mark.
	recovering map[TriggerKey]bool

	calendars map[string]Calendar

	clock Clock

	// onMisfire notifies a trigger listener chain when the registry itself
	// applies a misfire outside of the misfireHandler's own scan, i.e. when
	// a resumed trigger is found already behind (spec.md §4.4 "resume...
	// applies misfire policy to each resumed trigger whose next_fire_time
	// < now").
	onMisfire func(Trigger)
}

// DefaultAcquisitionLease bounds how long a trigger may stay reserved via
// AcquireNextTriggers before RecoverStaleAcquisitions considers the
// reservation abandoned, as though the firing loop that acquired it
// crashed before calling TriggerFired or ReleaseAcquiredTrigger (spec.md
// §4.4 "a recovery pass on startup releases reservations older than a
// lease threshold").
const DefaultAcquisitionLease = 5 * time.Minute

// NewRegistry returns an empty in-memory registry.
func NewRegistry(clock Clock) *Registry {
	if clock == nil {
		clock = GetDefaultClock()
	}
	return &Registry{
		jobs:                make(map[JobKey]*JobDetail),
		jobsByGroup:         make(map[string]map[JobKey]bool),
		triggers:            make(map[TriggerKey]*triggerEntry),
		triggersByJob:       make(map[JobKey]map[TriggerKey]bool),
		triggersByGroup:     make(map[string]map[TriggerKey]bool),
		pausedTriggerGroups: make(map[string]bool),
		pausedJobGroups:     make(map[string]bool),
		blockedJobs:         make(map[JobKey]bool),
		acquired:            make(map[TriggerKey]time.Time),
		recovering:          make(map[TriggerKey]bool),
		calendars:           make(map[string]Calendar),
		clock:               clock,
	}
}

var _ JobStore = (*Registry)(nil)

// SetMisfireNotifier registers fn to be called, outside any registry
// lock, whenever a resume path finds a trigger already behind and applies
// its misfire policy (spec.md §4.4, §4.7 "trigger_misfired").
func (r *Registry) SetMisfireNotifier(fn func(Trigger)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onMisfire = fn
}

func (r *Registry) notifyMisfire(trig Trigger) {
	if trig == nil || r.onMisfire == nil {
		return
	}
	r.onMisfire(trig)
}

func (r *Registry) notifyMisfires(trigs []Trigger) {
	for _, t := range trigs {
		r.notifyMisfire(t)
	}
}

func (r *Registry) StoreJob(detail *JobDetail, replaceExisting bool) error {
	if detail == nil || !detail.Key.Valid() {
		return fmt.Errorf("%w: invalid job detail", ErrInvalidConfiguration)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[detail.Key]; exists && !replaceExisting {
		return fmt.Errorf("%w: job %s", ErrObjectAlreadyExists, detail.Key)
	}
	r.jobs[detail.Key] = detail.Clone()
	if r.jobsByGroup[detail.Key.Group] == nil {
		r.jobsByGroup[detail.Key.Group] = make(map[JobKey]bool)
	}
	r.jobsByGroup[detail.Key.Group][detail.Key] = true
	return nil
}

func (r *Registry) StoreTrigger(trig Trigger, replaceExisting bool) error {
	if trig == nil || !trig.Key().Valid() {
		return fmt.Errorf("%w: invalid trigger", ErrInvalidConfiguration)
	}
	if err := trig.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.triggers[trig.Key()]; exists && !replaceExisting {
		return fmt.Errorf("%w: trigger %s", ErrObjectAlreadyExists, trig.Key())
	}
	if _, ok := r.jobs[trig.JobKey()]; !ok {
		return fmt.Errorf("%w: job %s for trigger %s", ErrObjectNotFound, trig.JobKey(), trig.Key())
	}

	if _, ok := trig.NextFireTime(); !ok {
		if nf, ok := trig.GetNextFireTimeAfter(r.clock.Now().Add(-time.Second)); ok {
			trig.SetNextFireTime(nf)
		}
	}

	state := TriggerNormal
	if r.pausedTriggerGroups[trig.Key().Group] || r.pausedJobGroups[trig.JobKey().Group] {
		state = TriggerPaused
	}

	r.triggers[trig.Key()] = &triggerEntry{trigger: trig, state: state}
	if r.triggersByJob[trig.JobKey()] == nil {
		r.triggersByJob[trig.JobKey()] = make(map[TriggerKey]bool)
	}
	r.triggersByJob[trig.JobKey()][trig.Key()] = true
	if r.triggersByGroup[trig.Key().Group] == nil {
		r.triggersByGroup[trig.Key().Group] = make(map[TriggerKey]bool)
	}
	r.triggersByGroup[trig.Key().Group][trig.Key()] = true
	return nil
}

func (r *Registry) RemoveJob(key JobKey) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[key]; !ok {
		return false, nil
	}
	for tk := range r.triggersByJob[key] {
		delete(r.triggers, tk)
		delete(r.triggersByGroup[tk.Group], tk)
	}
	delete(r.triggersByJob, key)
	delete(r.jobs, key)
	delete(r.jobsByGroup[key.Group], key)
	return true, nil
}

func (r *Registry) RemoveTrigger(key TriggerKey) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeTriggerLocked(key)
}

// removeTriggerLocked removes a trigger and, if its job is non-durable and
// has no remaining triggers, removes the job too (spec.md §5 "non-durable
// jobs are deleted along with their last trigger").
func (r *Registry) removeTriggerLocked(key TriggerKey) (bool, error) {
	entry, ok := r.triggers[key]
	if !ok {
		return false, nil
	}
	jobKey := entry.trigger.JobKey()
	delete(r.triggers, key)
	delete(r.triggersByGroup[key.Group], key)
	if jobTriggers := r.triggersByJob[jobKey]; jobTriggers != nil {
		delete(jobTriggers, key)
		if len(jobTriggers) == 0 {
			delete(r.triggersByJob, jobKey)
			if detail, ok := r.jobs[jobKey]; ok && !detail.Durable {
				delete(r.jobs, jobKey)
				delete(r.jobsByGroup[jobKey.Group], jobKey)
			}
		}
	}
	return true, nil
}

func (r *Registry) ReplaceTrigger(key TriggerKey, newTrig Trigger) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.triggers[key]
	if !ok {
		return false, nil
	}
	if !newTrig.JobKey().Valid() {
		newTrig.SetJobKey(old.trigger.JobKey())
	}
	if _, ok := r.jobs[newTrig.JobKey()]; !ok {
		return false, fmt.Errorf("%w: job %s for trigger %s", ErrObjectNotFound, newTrig.JobKey(), key)
	}
	if err := newTrig.Validate(); err != nil {
		return false, err
	}

	if _, ok := newTrig.NextFireTime(); !ok {
		if nf, ok := newTrig.GetNextFireTimeAfter(r.clock.Now().Add(-time.Second)); ok {
			newTrig.SetNextFireTime(nf)
		}
	}

	delete(r.triggersByJob[old.trigger.JobKey()], key)
	if r.triggersByJob[newTrig.JobKey()] == nil {
		r.triggersByJob[newTrig.JobKey()] = make(map[TriggerKey]bool)
	}
	r.triggersByJob[newTrig.JobKey()][key] = true

	r.triggers[key] = &triggerEntry{trigger: newTrig, state: old.state}
	return true, nil
}

func (r *Registry) GetJobDetail(key JobKey) (*JobDetail, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.jobs[key]
	if !ok {
		return nil, false
	}
	return d.Clone(), true
}

func (r *Registry) GetTrigger(key TriggerKey) (Trigger, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.triggers[key]
	if !ok {
		return nil, false
	}
	return e.trigger, true
}

func (r *Registry) GetTriggersForJob(key JobKey) []Trigger {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Trigger, 0, len(r.triggersByJob[key]))
	for tk := range r.triggersByJob[key] {
		out = append(out, r.triggers[tk].trigger)
	}
	return out
}

// SetTriggerData attaches a one-off JobDataMap/volatile override to an
// existing trigger, merged into the FireContext's JobDetail the next (and
// only the next) time it fires, without mutating the persistently stored
// JobDetail (spec.md §6 "trigger_job... optional data, volatile").
func (r *Registry) SetTriggerData(key TriggerKey, data JobDataMap, volatile bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.triggers[key]
	if !ok {
		return fmt.Errorf("%w: trigger %s", ErrObjectNotFound, key)
	}
	e.override = &triggerDataOverride{data: data, volatile: volatile}
	return nil
}

func (r *Registry) GetTriggerState(key TriggerKey) (TriggerState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.triggers[key]
	if !ok {
		return TriggerNone, fmt.Errorf("%w: trigger %s", ErrObjectNotFound, key)
	}
	return e.state, nil
}

// --- pause / resume ---

func (r *Registry) PauseTrigger(key TriggerKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.triggers[key]
	if !ok {
		return fmt.Errorf("%w: trigger %s", ErrObjectNotFound, key)
	}
	e.state = pausedStateFor(e.state)
	return nil
}

func (r *Registry) PauseTriggerGroup(group string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pausedTriggerGroups[group] = true
	for tk := range r.triggersByGroup[group] {
		e := r.triggers[tk]
		e.state = pausedStateFor(e.state)
	}
	return nil
}

func (r *Registry) PauseJob(key JobKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for tk := range r.triggersByJob[key] {
		e := r.triggers[tk]
		e.state = pausedStateFor(e.state)
	}
	return nil
}

func (r *Registry) PauseJobGroup(group string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pausedJobGroups[group] = true
	for jk := range r.jobsByGroup[group] {
		for tk := range r.triggersByJob[jk] {
			e := r.triggers[tk]
			e.state = pausedStateFor(e.state)
		}
	}
	return nil
}

func (r *Registry) PauseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for group := range r.triggersByGroup {
		r.pausedTriggerGroups[group] = true
	}
	for _, e := range r.triggers {
		e.state = pausedStateFor(e.state)
	}
}

func pausedStateFor(s TriggerState) TriggerState {
	if s == TriggerBlocked {
		return TriggerPausedBlocked
	}
	if s == TriggerComplete || s == TriggerError {
		return s
	}
	return TriggerPaused
}

func resumedStateFor(s TriggerState) TriggerState {
	if s == TriggerPausedBlocked {
		return TriggerBlocked
	}
	if s == TriggerPaused {
		return TriggerNormal
	}
	return s
}

// applyResumeMisfireLocked applies e's misfire policy if, having just
// resumed to NORMAL, its next fire time has already slipped behind now
// (spec.md §4.4 "resume... applies misfire policy to each resumed
// trigger whose next_fire_time < now"). Returns the trigger for
// notification once the caller has released r.mu, or nil if no misfire
// applied. Called with r.mu already held.
func (r *Registry) applyResumeMisfireLocked(e *triggerEntry, now time.Time) Trigger {
	if e.state != TriggerNormal {
		return nil
	}
	nf, ok := e.trigger.NextFireTime()
	if !ok || !nf.Before(now) {
		return nil
	}
	var cal Calendar
	if e.trigger.CalendarName() != "" {
		cal = r.calendars[e.trigger.CalendarName()]
	}
	e.trigger.UpdateAfterMisfire(cal)
	return e.trigger
}

func (r *Registry) ResumeTrigger(key TriggerKey) error {
	r.mu.Lock()
	e, ok := r.triggers[key]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: trigger %s", ErrObjectNotFound, key)
	}
	if r.pausedTriggerGroups[key.Group] || r.pausedJobGroups[e.trigger.JobKey().Group] {
		r.mu.Unlock()
		return nil // group-level pause still in effect
	}
	e.state = resumedStateFor(e.state)
	misfired := r.applyResumeMisfireLocked(e, r.clock.Now())
	r.mu.Unlock()

	r.notifyMisfire(misfired)
	return nil
}

func (r *Registry) ResumeTriggerGroup(group string) error {
	r.mu.Lock()
	delete(r.pausedTriggerGroups, group)
	now := r.clock.Now()
	var misfired []Trigger
	for tk := range r.triggersByGroup[group] {
		e := r.triggers[tk]
		if r.pausedJobGroups[e.trigger.JobKey().Group] {
			continue
		}
		e.state = resumedStateFor(e.state)
		if trig := r.applyResumeMisfireLocked(e, now); trig != nil {
			misfired = append(misfired, trig)
		}
	}
	r.mu.Unlock()

	r.notifyMisfires(misfired)
	return nil
}

func (r *Registry) ResumeJob(key JobKey) error {
	r.mu.Lock()
	now := r.clock.Now()
	var misfired []Trigger
	for tk := range r.triggersByJob[key] {
		e := r.triggers[tk]
		if r.pausedTriggerGroups[tk.Group] {
			continue
		}
		e.state = resumedStateFor(e.state)
		if trig := r.applyResumeMisfireLocked(e, now); trig != nil {
			misfired = append(misfired, trig)
		}
	}
	r.mu.Unlock()

	r.notifyMisfires(misfired)
	return nil
}

func (r *Registry) ResumeJobGroup(group string) error {
	r.mu.Lock()
	delete(r.pausedJobGroups, group)
	now := r.clock.Now()
	var misfired []Trigger
	for jk := range r.jobsByGroup[group] {
		for tk := range r.triggersByJob[jk] {
			if r.pausedTriggerGroups[tk.Group] {
				continue
			}
			e := r.triggers[tk]
			e.state = resumedStateFor(e.state)
			if trig := r.applyResumeMisfireLocked(e, now); trig != nil {
				misfired = append(misfired, trig)
			}
		}
	}
	r.mu.Unlock()

	r.notifyMisfires(misfired)
	return nil
}

func (r *Registry) ResumeAll() {
	r.mu.Lock()
	r.pausedTriggerGroups = make(map[string]bool)
	r.pausedJobGroups = make(map[string]bool)
	now := r.clock.Now()
	var misfired []Trigger
	for _, e := range r.triggers {
		e.state = resumedStateFor(e.state)
		if trig := r.applyResumeMisfireLocked(e, now); trig != nil {
			misfired = append(misfired, trig)
		}
	}
	r.mu.Unlock()

	r.notifyMisfires(misfired)
}

// --- calendars ---

func (r *Registry) AddCalendar(name string, cal Calendar, replaceExisting, updateTriggers bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.calendars[name]; exists && !replaceExisting {
		return fmt.Errorf("%w: calendar %s", ErrObjectAlreadyExists, name)
	}
	r.calendars[name] = cal
	if updateTriggers {
		for _, e := range r.triggers {
			if e.trigger.CalendarName() == name {
				if nf, ok := e.trigger.NextFireTime(); ok {
					if newNf, ok := e.trigger.GetNextFireTimeAfter(nf.Add(-time.Second)); ok && cal != nil && !cal.IsTimeIncluded(newNf) {
						e.trigger.Triggered(cal)
					}
				}
			}
		}
	}
	return nil
}

func (r *Registry) GetCalendar(name string) (Calendar, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.calendars[name]
	return c, ok
}

func (r *Registry) RemoveCalendar(name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.triggers {
		if e.trigger.CalendarName() == name {
			return false, fmt.Errorf("%w: calendar %s is in use", ErrInvalidConfiguration, name)
		}
	}
	if _, ok := r.calendars[name]; !ok {
		return false, nil
	}
	delete(r.calendars, name)
	return true, nil
}

// --- firing ---

// AcquireNextTriggers reserves up to maxCount NORMAL triggers whose next
// fire time is at or before now+timeWindow (overdue ones included), ordered by fire time then
// priority (spec.md §5 "acquire_next_triggers"). Reserved triggers are
// excluded from further acquisition until TriggerFired or
// ReleaseAcquiredTrigger.
func (r *Registry) AcquireNextTriggers(now time.Time, maxCount int, timeWindow time.Duration) ([]Trigger, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	type candidate struct {
		key  TriggerKey
		nf   time.Time
		trig Trigger
	}
	var candidates []candidate

	for key, e := range r.triggers {
		if _, ok := r.acquired[key]; ok {
			continue
		}
		if e.state != TriggerNormal {
			continue
		}
		nf, ok := e.trigger.NextFireTime()
		if !ok {
			continue
		}
		if nf.After(now.Add(timeWindow)) {
			continue
		}
		candidates = append(candidates, candidate{key: key, nf: nf, trig: e.trigger})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].nf.Equal(candidates[j].nf) {
			return candidates[i].nf.Before(candidates[j].nf)
		}
		return candidates[i].trig.Priority() > candidates[j].trig.Priority()
	})

	if maxCount <= 0 || maxCount > len(candidates) {
		maxCount = len(candidates)
	}

	out := make([]Trigger, 0, maxCount)
	for i := 0; i < maxCount; i++ {
		c := candidates[i]
		jobKey := c.trig.JobKey()
		if detail, ok := r.jobs[jobKey]; ok && detail.Stateful && r.blockedJobs[jobKey] {
			continue
		}
		r.acquired[c.key] = now
		out = append(out, c.trig)
	}
	return out, nil
}

func (r *Registry) ReleaseAcquiredTrigger(key TriggerKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.acquired, key)
}

// RecoverStaleAcquisitions releases every acquisition whose lease has
// expired and marks its trigger recovering, so the next firing's
// FireContext.Recovering is set (spec.md §4.4). Intended to run once at
// startup before the firing loop begins acquiring. Because this registry
// keeps no state outside process memory, an actual process crash already
// clears every acquisition along with everything else; this recovers
// reservations left behind within a single process's lifetime, e.g. a
// panic recovered above the firing loop, or a Standby that raced an
// in-flight acquisition.
func (r *Registry) RecoverStaleAcquisitions(lease time.Duration) []TriggerKey {
	r.mu.Lock()
	defer r.mu.Unlock()
	if lease <= 0 {
		lease = DefaultAcquisitionLease
	}
	now := r.clock.Now()
	var released []TriggerKey
	for key, acquiredAt := range r.acquired {
		if now.Sub(acquiredAt) >= lease {
			delete(r.acquired, key)
			r.recovering[key] = true
			released = append(released, key)
		}
	}
	return released
}

// TriggerFired transitions an acquired trigger into firing: it builds the
// FireContext, advances the trigger's schedule cursor (spec.md §4.4
// "triggered"), and reports whether the caller should actually run the
// job (false if the job is stateful and already blocked, or the trigger
// was paused/removed between acquisition and firing).
func (r *Registry) TriggerFired(trig Trigger) (*FireContext, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := trig.Key()
	e, ok := r.triggers[key]
	if !ok {
		delete(r.acquired, key)
		return nil, false
	}
	if e.state != TriggerNormal && e.state != TriggerBlocked {
		delete(r.acquired, key)
		return nil, false
	}

	jobKey := trig.JobKey()
	detail, ok := r.jobs[jobKey]
	if !ok {
		delete(r.acquired, key)
		return nil, false
	}

	if detail.Stateful && r.blockedJobs[jobKey] {
		e.state = TriggerBlocked
		delete(r.acquired, key)
		return nil, false
	}

	prevFire, hadPrev := trig.PreviousFireTime()
	fireTime, hadNext := trig.NextFireTime()
	if !hadNext {
		delete(r.acquired, key)
		return nil, false
	}

	var cal Calendar
	if trig.CalendarName() != "" {
		cal = r.calendars[trig.CalendarName()]
	}
	mayContinue := trig.Triggered(cal)

	if detail.Stateful {
		r.blockedJobs[jobKey] = true
	}

	if !mayContinue {
		e.state = TriggerComplete
	}

	jobDetail := detail.Clone()
	if e.override != nil {
		merged := jobDetail.DataMap.Clone()
		if merged == nil {
			merged = make(JobDataMap, len(e.override.data))
		}
		for k, v := range e.override.data {
			merged[k] = v
		}
		jobDetail.DataMap = merged
		jobDetail.Volatile = e.override.volatile
		e.override = nil
	}

	recovering := r.recovering[key]
	delete(r.recovering, key)

	fctx := &FireContext{
		TriggerKey:        key,
		JobDetail:         jobDetail,
		FireTime:          fireTime,
		ScheduledFireTime: fireTime,
		NextFireTime:      func() time.Time { t, _ := trig.NextFireTime(); return t }(),
		Recovering:        recovering,
	}
	if hadPrev {
		fctx.PrevFireTime = prevFire
	}

	delete(r.acquired, key)
	return fctx, true
}

// TriggerComplete applies a job's JobResult to the fired trigger and
// unblocks any other triggers of the same stateful job (spec.md §4.4
// "trigger_complete").
func (r *Registry) TriggerComplete(trig Trigger, fctx *FireContext, result JobResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := trig.Key()
	jobKey := trig.JobKey()

	if detail, ok := r.jobs[jobKey]; ok && detail.Stateful {
		delete(r.blockedJobs, jobKey)
		for tk := range r.triggersByJob[jobKey] {
			if e := r.triggers[tk]; e != nil && e.state == TriggerBlocked {
				e.state = TriggerNormal
			}
			if e := r.triggers[tk]; e != nil && e.state == TriggerPausedBlocked {
				e.state = TriggerPaused
			}
		}
	}

	e, ok := r.triggers[key]
	if !ok {
		return
	}

	switch result.Instruction {
	case DeleteTriggerInstruction:
		r.removeTriggerLocked(key)
		return
	case SetTriggerCompleteInstruction:
		e.state = TriggerComplete
	case SetAllJobTriggersCompleteInstruction:
		for tk := range r.triggersByJob[jobKey] {
			if other := r.triggers[tk]; other != nil {
				other.state = TriggerComplete
			}
		}
	case ReExecuteJobInstruction:
		if fctx != nil {
			e.trigger.SetNextFireTime(fctx.FireTime)
		}
		if e.state == TriggerBlocked || e.state == TriggerPausedBlocked {
			return
		}
		e.state = TriggerNormal
		return
	default:
		if result.Err != nil {
			e.state = TriggerError
		} else if _, ok := e.trigger.NextFireTime(); !ok {
			e.state = TriggerComplete
		}
	}

	// Ad hoc manual triggers (spec.md §6 "trigger_job... cleaned up on
	// completion") are removed as soon as they stop being schedulable, so
	// repeated manual firings never accumulate dead entries in the
	// registry. ReExecuteJobInstruction already returned above, so a
	// manual trigger asked to refire is left in place.
	if key.Group == GroupManualTrigger && e.state != TriggerNormal && e.state != TriggerBlocked {
		r.removeTriggerLocked(key)
	}
}

// JobKeys returns the keys of every stored job, and TriggerKeys those of
// every stored trigger, for listing operations (spec.md §6
// "GetJobKeys"/"GetTriggerKeys").
func (r *Registry) JobKeys() []JobKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]JobKey, 0, len(r.jobs))
	for k := range r.jobs {
		out = append(out, k)
	}
	return out
}

func (r *Registry) TriggerKeys() []TriggerKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]TriggerKey, 0, len(r.triggers))
	for k := range r.triggers {
		out = append(out, k)
	}
	return out
}

// JobGroupNames returns every distinct job group with at least one stored
// job (spec.md §6 "job_group_names").
func (r *Registry) JobGroupNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.jobsByGroup))
	for g, keys := range r.jobsByGroup {
		if len(keys) > 0 {
			out = append(out, g)
		}
	}
	sort.Strings(out)
	return out
}

// TriggerGroupNames returns every distinct trigger group with at least
// one stored trigger (spec.md §6 "trigger_group_names").
func (r *Registry) TriggerGroupNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.triggersByGroup))
	for g, keys := range r.triggersByGroup {
		if len(keys) > 0 {
			out = append(out, g)
		}
	}
	sort.Strings(out)
	return out
}

// PausedTriggerGroups returns every trigger group currently paused in its
// entirety (spec.md §6 "paused_trigger_groups").
func (r *Registry) PausedTriggerGroups() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.pausedTriggerGroups))
	for g := range r.pausedTriggerGroups {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// CalendarNames returns every registered calendar's name (spec.md §6
// "calendar_names").
func (r *Registry) CalendarNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.calendars))
	for name := range r.calendars {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// JobNamesInGroup returns the keys of every job stored under group
// (spec.md §6 "get_job_names(group)").
func (r *Registry) JobNamesInGroup(group string) []JobKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]JobKey, 0, len(r.jobsByGroup[group]))
	for k := range r.jobsByGroup[group] {
		out = append(out, k)
	}
	return out
}

// TriggerNamesInGroup returns the keys of every trigger stored under
// group (spec.md §6 "get_trigger_names(group)").
func (r *Registry) TriggerNamesInGroup(group string) []TriggerKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]TriggerKey, 0, len(r.triggersByGroup[group]))
	for k := range r.triggersByGroup[group] {
		out = append(out, k)
	}
	return out
}
