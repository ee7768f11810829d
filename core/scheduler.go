package core

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// SchedulerState is SchedulerCore's own lifecycle state, distinct from any
// individual TriggerState (spec.md §6 "SchedulerCore").
type SchedulerState int

const (
	SchedulerInitialized SchedulerState = iota
	SchedulerStandby
	SchedulerRunning
	SchedulerShuttingDown
	SchedulerShutdownState
)

func (s SchedulerState) String() string {
	switch s {
	case SchedulerStandby:
		return "STANDBY"
	case SchedulerRunning:
		return "RUNNING"
	case SchedulerShuttingDown:
		return "SHUTTING_DOWN"
	case SchedulerShutdownState:
		return "SHUTDOWN"
	default:
		return "INITIALIZED"
	}
}

// SchedulerCore is the public API a caller embeds to run jobs (spec.md §6).
// It owns the registry, the firing loop, and the misfire handler, and
// depends on a JobFactory and a WorkSubmitter supplied by the caller — the
// concrete worker pool and any persistence beyond the in-memory Registry
// are external collaborators (spec.md §1 Non-goals).
type SchedulerCore struct {
	mu    sync.RWMutex
	state SchedulerState

	name       string
	instanceID string

	registry  *Registry
	clock     Clock
	factory   JobFactory
	submitter WorkSubmitter
	listeners *ListenerManager
	logger    Logger

	idleWaitTime     time.Duration
	acquisitionLease time.Duration

	misfire *misfireHandler
	loop    *firingLoop

	startTime    time.Time
	runningSince time.Time

	cancel context.CancelFunc
}

// SchedulerConfig supplies SchedulerCore's external collaborators.
// Submitter and Factory are required; Clock and Logger default to
// GetDefaultClock() and NewLogrusAdapter(nil) if nil.
type SchedulerConfig struct {
	Submitter WorkSubmitter
	Factory   JobFactory
	Clock     Clock
	Logger    Logger

	// Name and InstanceID identify this scheduler instance (spec.md §6
	// "scheduler_name"/"instance_id"). They default to "QuartzCoreScheduler"
	// and "NON_CLUSTERED" — Quartz's own default instance ID for a
	// non-clustered, single-process deployment — since this registry has
	// no clustering story.
	Name       string
	InstanceID string

	// MisfireThreshold overrides DefaultMisfireThreshold.
	MisfireThreshold time.Duration
	// MisfireScanInterval overrides the misfire handler's scan period;
	// defaults to MisfireThreshold (spec.md §4.6).
	MisfireScanInterval time.Duration
	// IdleWaitTime overrides DefaultIdleWaitTime.
	IdleWaitTime time.Duration
	// AcquisitionLease overrides DefaultAcquisitionLease.
	AcquisitionLease time.Duration
}

// NewSchedulerCore builds a SchedulerCore in the INITIALIZED state; call
// Start to begin firing.
func NewSchedulerCore(cfg SchedulerConfig) (*SchedulerCore, error) {
	if cfg.Submitter == nil {
		return nil, fmt.Errorf("%w: SchedulerConfig.Submitter is required", ErrInvalidConfiguration)
	}
	if cfg.Factory == nil {
		return nil, fmt.Errorf("%w: SchedulerConfig.Factory is required", ErrInvalidConfiguration)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = GetDefaultClock()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = NewLogrusAdapter(nil)
	}

	name := cfg.Name
	if name == "" {
		name = "QuartzCoreScheduler"
	}
	instanceID := cfg.InstanceID
	if instanceID == "" {
		instanceID = "NON_CLUSTERED"
	}

	idleWaitTime := cfg.IdleWaitTime
	if idleWaitTime <= 0 {
		idleWaitTime = DefaultIdleWaitTime
	}
	acquisitionLease := cfg.AcquisitionLease
	if acquisitionLease <= 0 {
		acquisitionLease = DefaultAcquisitionLease
	}
	misfireThreshold := cfg.MisfireThreshold
	if misfireThreshold <= 0 {
		misfireThreshold = DefaultMisfireThreshold
	}
	misfireInterval := cfg.MisfireScanInterval
	if misfireInterval <= 0 {
		misfireInterval = misfireThreshold
	}

	registry := NewRegistry(clock)
	listeners := NewListenerManager()
	registry.SetMisfireNotifier(listeners.fireTriggerMisfired)

	return &SchedulerCore{
		state:            SchedulerInitialized,
		name:             name,
		instanceID:       instanceID,
		registry:         registry,
		clock:            clock,
		factory:          cfg.Factory,
		submitter:        cfg.Submitter,
		listeners:        listeners,
		logger:           logger,
		idleWaitTime:     idleWaitTime,
		acquisitionLease: acquisitionLease,
		misfire:          newMisfireHandler(registry, clock, listeners, logger, misfireThreshold, misfireInterval),
		startTime:        clock.Now(),
	}, nil
}

// SchedulerName returns this instance's configured name (spec.md §6
// "scheduler_name").
func (s *SchedulerCore) SchedulerName() string { return s.name }

// InstanceID returns this instance's configured ID (spec.md §6
// "instance_id").
func (s *SchedulerCore) InstanceID() string { return s.instanceID }

// Listeners exposes listener registration. Listeners must be added before
// Start, matching Quartz's convention that listener lists are read
// without locking on the hot path.
func (s *SchedulerCore) Listeners() *ListenerManager { return s.listeners }

// Registry exposes the underlying JobStore for direct inspection (e.g. by
// an admin CLI) without widening SchedulerCore's own surface.
func (s *SchedulerCore) Registry() *Registry { return s.registry }

func (s *SchedulerCore) State() SchedulerState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Start transitions to RUNNING and launches the firing loop and misfire
// scanner. Calling Start on an already-running scheduler is a no-op.
func (s *SchedulerCore) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == SchedulerRunning {
		return nil
	}
	if s.state == SchedulerShuttingDown || s.state == SchedulerShutdownState {
		return fmt.Errorf("%w: scheduler already shut down", ErrSchedulerStateError)
	}

	if released := s.registry.RecoverStaleAcquisitions(s.acquisitionLease); len(released) > 0 && s.logger != nil {
		s.logger.Warningf("recovered %d stale trigger acquisitions on startup", len(released))
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.loop = newFiringLoop(s.registry, s.clock, s.submitter, s.factory, s.listeners, s.logger, s.idleWaitTime)
	s.loop.start(runCtx)
	s.misfire.start(runCtx)

	s.runningSince = s.clock.Now()
	s.state = SchedulerRunning
	s.listeners.fireSchedulerStarted()
	return nil
}

// Standby pauses firing without tearing down state: the firing loop and
// misfire scanner stop, but jobs/triggers remain registered (spec.md §6
// "standby").
func (s *SchedulerCore) Standby() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SchedulerRunning {
		return nil
	}
	s.cancel()
	s.loop.stop()
	s.misfire.Stop()
	s.state = SchedulerStandby
	return nil
}

// Shutdown stops the firing loop and misfire scanner and transitions to
// SHUTDOWN, waiting up to timeout for in-flight submissions accepted by
// the WorkSubmitter to be handed off (the WorkSubmitter, not
// SchedulerCore, owns tracking their actual completion).
func (s *SchedulerCore) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.ShutdownWithContext(ctx)
}

func (s *SchedulerCore) ShutdownWithContext(ctx context.Context) error {
	s.mu.Lock()
	if s.state == SchedulerShutdownState {
		s.mu.Unlock()
		return nil
	}
	s.state = SchedulerShuttingDown
	s.listeners.fireSchedulerShuttingDown()
	cancel := s.cancel
	loop := s.loop
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if loop != nil {
		done := make(chan struct{})
		go func() {
			loop.stop()
			s.misfire.Stop()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			s.mu.Lock()
			s.state = SchedulerShutdownState
			s.mu.Unlock()
			return fmt.Errorf("%w: shutdown timed out", ErrSchedulerStateError)
		}
	}

	s.mu.Lock()
	s.state = SchedulerShutdownState
	s.mu.Unlock()
	s.listeners.fireSchedulerShutdown()
	return nil
}

// --- job/trigger CRUD: thin wrappers that add SchedulerListener dispatch
// around Registry operations (spec.md §6 public API) ---

func (s *SchedulerCore) ScheduleJob(detail *JobDetail, trig Trigger) error {
	if err := s.registry.StoreJob(detail, false); err != nil {
		return err
	}
	if err := s.registry.StoreTrigger(trig, false); err != nil {
		return err
	}
	s.listeners.fireJobAdded(detail)
	s.listeners.fireJobScheduled(trig)
	return nil
}

func (s *SchedulerCore) AddJob(detail *JobDetail, replaceExisting bool) error {
	if err := s.registry.StoreJob(detail, replaceExisting); err != nil {
		return err
	}
	s.listeners.fireJobAdded(detail)
	return nil
}

func (s *SchedulerCore) ScheduleTrigger(trig Trigger, replaceExisting bool) error {
	if err := s.registry.StoreTrigger(trig, replaceExisting); err != nil {
		return err
	}
	s.listeners.fireJobScheduled(trig)
	return nil
}

func (s *SchedulerCore) DeleteJob(key JobKey) (bool, error) {
	ok, err := s.registry.RemoveJob(key)
	if err != nil {
		return false, err
	}
	if ok {
		s.listeners.fireJobDeleted(key)
	}
	return ok, nil
}

func (s *SchedulerCore) UnscheduleJob(key TriggerKey) (bool, error) {
	ok, err := s.registry.RemoveTrigger(key)
	if err != nil {
		return false, err
	}
	if ok {
		s.listeners.fireJobUnscheduled(key)
	}
	return ok, nil
}

// RescheduleJob replaces the trigger identified by key with newTrig,
// returning its newly computed next fire time (spec.md §6
// "reschedule_trigger(key, new) -> Option<DateTime>"); ok is false if
// newTrig has no future firing or key did not exist.
func (s *SchedulerCore) RescheduleJob(key TriggerKey, newTrig Trigger) (nextFireTime time.Time, ok bool, err error) {
	replaced, err := s.registry.ReplaceTrigger(key, newTrig)
	if err != nil || !replaced {
		return time.Time{}, false, err
	}
	nf, ok := newTrig.NextFireTime()
	return nf, ok, nil
}

func (s *SchedulerCore) GetJobDetail(key JobKey) (*JobDetail, bool) {
	return s.registry.GetJobDetail(key)
}

func (s *SchedulerCore) GetTrigger(key TriggerKey) (Trigger, bool) {
	return s.registry.GetTrigger(key)
}

func (s *SchedulerCore) GetTriggerState(key TriggerKey) (TriggerState, error) {
	return s.registry.GetTriggerState(key)
}

func (s *SchedulerCore) PauseJob(key JobKey) error {
	if err := s.registry.PauseJob(key); err != nil {
		return err
	}
	s.listeners.fireJobPaused(key)
	return nil
}

func (s *SchedulerCore) ResumeJob(key JobKey) error {
	if err := s.registry.ResumeJob(key); err != nil {
		return err
	}
	s.listeners.fireJobResumed(key)
	return nil
}

func (s *SchedulerCore) PauseJobGroup(group string) error {
	return s.registry.PauseJobGroup(group)
}

func (s *SchedulerCore) ResumeJobGroup(group string) error {
	return s.registry.ResumeJobGroup(group)
}

func (s *SchedulerCore) PauseTrigger(key TriggerKey) error {
	if err := s.registry.PauseTrigger(key); err != nil {
		return err
	}
	s.listeners.fireTriggerPaused(key)
	return nil
}

func (s *SchedulerCore) ResumeTrigger(key TriggerKey) error {
	if err := s.registry.ResumeTrigger(key); err != nil {
		return err
	}
	s.listeners.fireTriggerResumed(key)
	return nil
}

func (s *SchedulerCore) PauseTriggerGroup(group string) error {
	return s.registry.PauseTriggerGroup(group)
}

func (s *SchedulerCore) ResumeTriggerGroup(group string) error {
	return s.registry.ResumeTriggerGroup(group)
}

func (s *SchedulerCore) PauseAll() { s.registry.PauseAll() }
func (s *SchedulerCore) ResumeAll() { s.registry.ResumeAll() }

func (s *SchedulerCore) AddCalendar(name string, cal Calendar, replaceExisting, updateTriggers bool) error {
	return s.registry.AddCalendar(name, cal, replaceExisting, updateTriggers)
}

func (s *SchedulerCore) GetCalendar(name string) (Calendar, bool) {
	return s.registry.GetCalendar(name)
}

func (s *SchedulerCore) JobKeys() []JobKey         { return s.registry.JobKeys() }
func (s *SchedulerCore) TriggerKeys() []TriggerKey { return s.registry.TriggerKeys() }

// JobGroupNames returns every job group currently holding at least one
// job (spec.md §6 "job_group_names").
func (s *SchedulerCore) JobGroupNames() []string { return s.registry.JobGroupNames() }

// TriggerGroupNames returns every trigger group currently holding at
// least one trigger (spec.md §6 "trigger_group_names").
func (s *SchedulerCore) TriggerGroupNames() []string { return s.registry.TriggerGroupNames() }

// PausedTriggerGroups returns every trigger group paused as a whole
// (spec.md §6 "paused_trigger_groups").
func (s *SchedulerCore) PausedTriggerGroups() []string { return s.registry.PausedTriggerGroups() }

// CalendarNames returns every registered calendar's name (spec.md §6
// "calendar_names").
func (s *SchedulerCore) CalendarNames() []string { return s.registry.CalendarNames() }

// GetJobNames returns the keys of every job stored under group (spec.md
// §6 "get_job_names(group)").
func (s *SchedulerCore) GetJobNames(group string) []JobKey {
	return s.registry.JobNamesInGroup(group)
}

// GetTriggerNames returns the keys of every trigger stored under group
// (spec.md §6 "get_trigger_names(group)").
func (s *SchedulerCore) GetTriggerNames(group string) []TriggerKey {
	return s.registry.TriggerNamesInGroup(group)
}

// GetTriggersOfJob returns every trigger currently scheduling key
// (spec.md §6 "get_triggers_of_job(key)").
func (s *SchedulerCore) GetTriggersOfJob(key JobKey) []Trigger {
	return s.registry.GetTriggersForJob(key)
}

// DeleteCalendar removes a registered calendar, failing if any trigger
// still references it (spec.md §6 "delete_calendar").
func (s *SchedulerCore) DeleteCalendar(name string) (bool, error) {
	return s.registry.RemoveCalendar(name)
}

// GetCurrentlyExecutingJobs returns the FireContext of every firing
// presently running on the WorkSubmitter (spec.md §6
// "get_currently_executing_jobs"). It returns nil before Start.
func (s *SchedulerCore) GetCurrentlyExecutingJobs() []*FireContext {
	s.mu.RLock()
	loop := s.loop
	s.mu.RUnlock()
	if loop == nil {
		return nil
	}
	return loop.currentlyExecuting()
}

// Interrupt cancels the RuntimeContext of every currently executing
// firing of key's job, additionally calling Interrupt on any Job
// implementing InterruptableJob (spec.md §6 "interrupt(job_key)"). It
// fails with ErrUnableToInterruptJob if the scheduler isn't running or
// key has no currently-executing firing.
func (s *SchedulerCore) Interrupt(key JobKey) error {
	s.mu.RLock()
	loop := s.loop
	s.mu.RUnlock()
	if loop == nil {
		return fmt.Errorf("%w: scheduler is not running", ErrUnableToInterruptJob)
	}
	found, err := loop.interrupt(key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnableToInterruptJob, err)
	}
	if !found {
		return fmt.Errorf("%w: job %s is not currently executing", ErrUnableToInterruptJob, key)
	}
	return nil
}

// SchedulerMetadata summarizes a scheduler instance's identity and
// runtime state (spec.md §6 "get_metadata()").
type SchedulerMetadata struct {
	SchedulerName        string
	InstanceID           string
	State                SchedulerState
	StartTime            time.Time
	RunningSince         time.Time
	NumberOfJobsExecuted int64
}

// GetMetadata returns a snapshot of this scheduler's identity and runtime
// counters (spec.md §6 "get_metadata()").
func (s *SchedulerCore) GetMetadata() SchedulerMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	md := SchedulerMetadata{
		SchedulerName: s.name,
		InstanceID:    s.instanceID,
		State:         s.state,
		StartTime:     s.startTime,
		RunningSince:  s.runningSince,
	}
	if s.loop != nil {
		md.NumberOfJobsExecuted = s.loop.executedCount()
	}
	return md
}

// TriggerJobNow builds a one-shot SimpleTrigger in GroupManualTrigger and
// schedules it immediately, for callers that want an ad hoc run outside
// the job's normal recurrence (spec.md §6 "trigger_job... a one-shot
// trigger fired immediately and cleaned up on completion"). data, if
// non-nil, is merged into the fired JobDetail's DataMap without mutating
// the persistently stored job, and volatile marks that one firing's
// JobDetail copy accordingly. The manual trigger is removed from the
// registry once it stops being schedulable (Registry.TriggerComplete),
// so repeated ad hoc triggers never accumulate.
func (s *SchedulerCore) TriggerJobNow(key JobKey, data JobDataMap, volatile bool) error {
	if _, ok := s.registry.GetJobDetail(key); !ok {
		return fmt.Errorf("%w: job %s", ErrObjectNotFound, key)
	}

	manualKey := NewTriggerKey(fmt.Sprintf("manual-%d", s.clock.Now().UnixNano()), GroupManualTrigger)
	trig := NewSimpleTrigger(manualKey, key, s.clock.Now())
	if err := s.ScheduleTrigger(trig, false); err != nil {
		return err
	}
	if data != nil || volatile {
		return s.registry.SetTriggerData(manualKey, data, volatile)
	}
	return nil
}
