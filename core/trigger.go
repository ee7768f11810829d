package core

import (
	"context"
	"fmt"
	"time"
)

// TriggerState is the registry's view of a trigger's schedulability
// (spec.md §4.2). It is computed and owned by the registry, never by the
// Trigger implementation itself.
type TriggerState int

const (
	// TriggerNone is returned for a key the registry does not hold.
	TriggerNone TriggerState = iota
	TriggerNormal
	TriggerPaused
	TriggerComplete
	TriggerError
	TriggerBlocked
	TriggerPausedBlocked
)

func (s TriggerState) String() string {
	switch s {
	case TriggerNormal:
		return "NORMAL"
	case TriggerPaused:
		return "PAUSED"
	case TriggerComplete:
		return "COMPLETE"
	case TriggerError:
		return "ERROR"
	case TriggerBlocked:
		return "BLOCKED"
	case TriggerPausedBlocked:
		return "PAUSED_BLOCKED"
	default:
		return "NONE"
	}
}

// MisfireInstruction codes a trigger's preference for how a missed firing
// should be handled (spec.md §4.3). Values below zero (IgnoreMisfirePolicy)
// and the Smart, FireNow and DoNothing constants are shared across trigger
// kinds; the Reschedule* constants are meaningful only for SimpleTrigger.
type MisfireInstruction int

const (
	// MisfireSmartPolicy lets the trigger kind pick its own default
	// (spec.md §4.3: cron -> FireOnceNow, simple repeating -> RescheduleNowWithRemainingCount).
	MisfireSmartPolicy MisfireInstruction = 0

	MisfireFireNow               MisfireInstruction = 1 // cron
	MisfireFireOnceNow           MisfireInstruction = 1 // simple, alias kept for readability at call sites
	MisfireDoNothing             MisfireInstruction = 2
	MisfireRescheduleNextWithExistingCount  MisfireInstruction = 3
	MisfireRescheduleNextWithRemainingCount MisfireInstruction = 4
	MisfireRescheduleNowWithExistingCount   MisfireInstruction = 5
	MisfireRescheduleNowWithRemainingCount  MisfireInstruction = 6

	// MisfireIgnorePolicy tells the misfire handler to treat every late
	// firing as on-time: keep firing at the next scheduled tick without
	// adjustment.
	MisfireIgnorePolicy MisfireInstruction = -1
)

// FireContext is handed to a Job's Execute method. It is transient: the
// core builds one per firing and discards it once the job returns
// (spec.md §3 "FiredTrigger (transient)").
type FireContext struct {
	TriggerKey   TriggerKey
	JobDetail    *JobDetail
	FireTime     time.Time
	ScheduledFireTime time.Time
	PrevFireTime time.Time
	NextFireTime time.Time
	Recovering   bool
	RefireCount  int

	// RuntimeContext carries the context.Context the WorkSubmitter handed
	// the running task, so a Job implementation can honor cancellation.
	// The core sets it right before calling Execute and never reads it
	// itself.
	RuntimeContext context.Context
}

func (f *FireContext) String() string {
	return fmt.Sprintf("FireContext{trigger=%s fire=%s refire=%d}", f.TriggerKey, f.FireTime, f.RefireCount)
}

// Trigger is the common contract both SimpleTrigger and CronTrigger satisfy
// (spec.md §3 "Trigger", §9 "Trigger polymorphism"). The registry drives a
// trigger purely through this interface; it never type-switches on the
// concrete kind except when persisting/displaying it.
type Trigger interface {
	Key() TriggerKey
	JobKey() JobKey
	SetJobKey(JobKey)

	Description() string
	Priority() int
	CalendarName() string

	StartTime() time.Time
	EndTime() time.Time

	// GetNextFireTimeAfter returns the earliest fire time strictly after
	// after that satisfies the trigger's own recurrence and its
	// start/end bounds, or ok=false if the trigger has no more firings.
	// It does not consult a Calendar; Triggered applies calendar exclusion
	// on top of this.
	GetNextFireTimeAfter(after time.Time) (t time.Time, ok bool)

	// GetFireTimeAfter is an alias kept for readability at call sites that
	// are computing a fresh schedule rather than resuming one.
	GetFireTimeAfter(after time.Time) (t time.Time, ok bool)

	// GetFinalFireTime returns the last time this trigger will ever fire,
	// or ok=false if it fires indefinitely (spec.md §3).
	GetFinalFireTime() (t time.Time, ok bool)

	// NextFireTime/PreviousFireTime/SetNextFireTime/SetPreviousFireTime
	// track the trigger's cached schedule cursor, mutated by the registry
	// as part of Triggered and UpdateAfterMisfire.
	NextFireTime() (time.Time, bool)
	SetNextFireTime(time.Time)
	ClearNextFireTime()
	PreviousFireTime() (time.Time, bool)
	SetPreviousFireTime(time.Time)

	// Triggered advances the trigger's internal cursor past fireTime,
	// honoring a Calendar's exclusion set when present (spec.md §4.4).
	// It returns false once MayFireAgain would also return false.
	Triggered(cal Calendar) bool

	// UpdateAfterMisfire applies this trigger's MisfireInstruction,
	// rewriting its next fire time according to spec.md §7.
	UpdateAfterMisfire(cal Calendar)

	// MayFireAgain reports whether GetNextFireTimeAfter could still
	// return ok=true for some future instant.
	MayFireAgain() bool

	MisfireInstruction() MisfireInstruction
	SetMisfireInstruction(MisfireInstruction)

	// Validate checks the trigger's own invariants (a valid key, an EndTime
	// not before StartTime, and for CronTrigger at least one fire time from
	// StartTime on), returning ErrTriggerDoesNotFire or
	// ErrInvalidConfiguration wrapped with detail. It does not compare
	// against the current time.
	Validate() error
}

// triggerHeader is the field set shared by SimpleTrigger and CronTrigger;
// both embed it and satisfy Trigger by delegating most methods to it.
type triggerHeader struct {
	key          TriggerKey
	jobKey       JobKey
	description  string
	calendarName string
	priority     int

	startTime time.Time
	endTime   time.Time

	misfireInstruction MisfireInstruction

	nextFireTime    *time.Time
	previousFireTime *time.Time
}

func (h *triggerHeader) Key() TriggerKey  { return h.key }
func (h *triggerHeader) JobKey() JobKey   { return h.jobKey }
func (h *triggerHeader) SetJobKey(k JobKey) { h.jobKey = k }

func (h *triggerHeader) Description() string  { return h.description }
func (h *triggerHeader) Priority() int        { return h.priority }
func (h *triggerHeader) CalendarName() string { return h.calendarName }

func (h *triggerHeader) StartTime() time.Time { return h.startTime }
func (h *triggerHeader) EndTime() time.Time   { return h.endTime }

func (h *triggerHeader) NextFireTime() (time.Time, bool) {
	if h.nextFireTime == nil {
		return time.Time{}, false
	}
	return *h.nextFireTime, true
}

func (h *triggerHeader) SetNextFireTime(t time.Time) {
	tc := t
	h.nextFireTime = &tc
}

func (h *triggerHeader) ClearNextFireTime() {
	h.nextFireTime = nil
}

func (h *triggerHeader) PreviousFireTime() (time.Time, bool) {
	if h.previousFireTime == nil {
		return time.Time{}, false
	}
	return *h.previousFireTime, true
}

func (h *triggerHeader) SetPreviousFireTime(t time.Time) {
	tc := t
	h.previousFireTime = &tc
}

func (h *triggerHeader) MisfireInstruction() MisfireInstruction { return h.misfireInstruction }
func (h *triggerHeader) SetMisfireInstruction(m MisfireInstruction) { h.misfireInstruction = m }

// withinBounds clamps a candidate fire time against startTime/endTime,
// returning ok=false if candidate is past endTime.
func (h *triggerHeader) withinBounds(candidate time.Time, ok bool) (time.Time, bool) {
	if !ok {
		return time.Time{}, false
	}
	if candidate.Before(h.startTime) {
		candidate = h.startTime
	}
	if !h.endTime.IsZero() && candidate.After(h.endTime) {
		return time.Time{}, false
	}
	return candidate, true
}
