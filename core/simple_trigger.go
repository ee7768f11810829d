package core

import (
	"fmt"
	"time"
)

// SimpleTrigger fires once, or repeatedly at a fixed interval for a fixed
// or infinite repeat count (spec.md §3 "SimpleTrigger").
type SimpleTrigger struct {
	triggerHeader

	RepeatInterval time.Duration
	// RepeatCount is the number of additional firings after the first;
	// SimpleTriggerRepeatIndefinitely means "forever".
	RepeatCount int
	timesTriggered int
}

// SimpleTriggerRepeatIndefinitely marks a SimpleTrigger that never stops
// repeating on its own (still bounded by EndTime, if set).
const SimpleTriggerRepeatIndefinitely = -1

// NewSimpleTrigger builds a SimpleTrigger with MisfireSmartPolicy, firing
// once at startTime with no repeats. Use the With* setters to configure
// repetition.
func NewSimpleTrigger(key TriggerKey, jobKey JobKey, startTime time.Time) *SimpleTrigger {
	return &SimpleTrigger{
		triggerHeader: triggerHeader{
			key:       key,
			jobKey:    jobKey,
			startTime: startTime,
		},
		RepeatCount: 0,
	}
}

// WithRepeat sets the interval and count for repeated firings.
func (t *SimpleTrigger) WithRepeat(interval time.Duration, count int) *SimpleTrigger {
	t.RepeatInterval = interval
	t.RepeatCount = count
	return t
}

// WithEndTime bounds the trigger's last possible firing.
func (t *SimpleTrigger) WithEndTime(end time.Time) *SimpleTrigger {
	t.endTime = end
	return t
}

func (t *SimpleTrigger) WithDescription(d string) *SimpleTrigger { t.description = d; return t }
func (t *SimpleTrigger) WithCalendarName(c string) *SimpleTrigger { t.calendarName = c; return t }
func (t *SimpleTrigger) WithPriority(p int) *SimpleTrigger { t.priority = p; return t }

func (t *SimpleTrigger) TimesTriggered() int { return t.timesTriggered }

// GetNextFireTimeAfter implements Trigger (spec.md §3).
func (t *SimpleTrigger) GetNextFireTimeAfter(after time.Time) (time.Time, bool) {
	return t.nextFireTimeAfter(after, t.timesTriggered)
}

func (t *SimpleTrigger) GetFireTimeAfter(after time.Time) (time.Time, bool) {
	return t.GetNextFireTimeAfter(after)
}

// nextFireTimeAfter returns the earliest occurrence strictly after "after"
// among indices n >= minIndex, where occurrence n fires at
// startTime + n*RepeatInterval and n ranges over [0, RepeatCount] (or
// indefinitely). Both GetNextFireTimeAfter (read-only, minIndex=
// timesTriggered) and Triggered (mutating) share this one computation.
func (t *SimpleTrigger) nextFireTimeAfter(after time.Time, minIndex int) (time.Time, bool) {
	if minIndex < 0 {
		minIndex = 0
	}
	n := minIndex
	occurrence := t.startTime.Add(time.Duration(n) * t.RepeatInterval)
	if !occurrence.After(after) {
		if t.RepeatInterval <= 0 {
			return time.Time{}, false
		}
		elapsed := after.Sub(t.startTime)
		n = int(elapsed/t.RepeatInterval) + 1
		if n < minIndex {
			n = minIndex
		}
		occurrence = t.startTime.Add(time.Duration(n) * t.RepeatInterval)
	}

	if t.RepeatCount != SimpleTriggerRepeatIndefinitely && n > t.RepeatCount {
		return time.Time{}, false
	}
	if !t.endTime.IsZero() && occurrence.After(t.endTime) {
		return time.Time{}, false
	}
	return occurrence, true
}

// GetFinalFireTime implements Trigger (spec.md §3).
func (t *SimpleTrigger) GetFinalFireTime() (time.Time, bool) {
	if t.RepeatCount == SimpleTriggerRepeatIndefinitely {
		if t.endTime.IsZero() {
			return time.Time{}, false
		}
		// Last tick at or before endTime.
		if t.RepeatInterval <= 0 {
			return t.startTime, true
		}
		elapsed := t.endTime.Sub(t.startTime)
		ticks := int64(elapsed / t.RepeatInterval)
		return t.startTime.Add(time.Duration(ticks) * t.RepeatInterval), true
	}
	last := t.startTime.Add(time.Duration(t.RepeatCount) * t.RepeatInterval)
	if !t.endTime.IsZero() && last.After(t.endTime) {
		elapsed := t.endTime.Sub(t.startTime)
		ticks := int64(elapsed / t.RepeatInterval)
		return t.startTime.Add(time.Duration(ticks) * t.RepeatInterval), true
	}
	return last, true
}

// Triggered implements Trigger (spec.md §4.4). SimpleTrigger has no
// day-level semantics, so the calendar argument is only used to skip
// excluded instants, re-querying forward until an included time is found
// or the trigger is exhausted.
func (t *SimpleTrigger) Triggered(cal Calendar) bool {
	t.timesTriggered++
	next, ok := t.nextFireTimeAfter(t.mustNext(), t.timesTriggered)
	for ok && cal != nil && !cal.IsTimeIncluded(next) {
		t.timesTriggered++
		next, ok = t.nextFireTimeAfter(next, t.timesTriggered)
	}
	if prev, pok := t.NextFireTime(); pok {
		t.SetPreviousFireTime(prev)
	}
	if ok {
		t.SetNextFireTime(next)
	} else {
		t.ClearNextFireTime()
	}
	return ok
}

// mustNext returns the current cached next-fire-time, or startTime if none
// has been computed yet; used as the pivot for Triggered's re-query.
func (t *SimpleTrigger) mustNext() time.Time {
	if nf, ok := t.NextFireTime(); ok {
		return nf
	}
	return t.startTime
}

// UpdateAfterMisfire implements Trigger (spec.md §7). The smart policy for
// a SimpleTrigger with remaining repeats is RescheduleNowWithRemainingCount;
// for a one-shot or exhausted trigger it is FireOnceNow.
func (t *SimpleTrigger) UpdateAfterMisfire(cal Calendar) {
	instr := t.misfireInstruction
	if instr == MisfireSmartPolicy {
		if t.RepeatCount == 0 {
			instr = MisfireFireOnceNow
		} else {
			instr = MisfireRescheduleNowWithRemainingCount
		}
	}

	now := GetDefaultClock().Now()

	switch instr {
	case MisfireDoNothing:
		next, ok := t.nextFireTimeAfter(now, t.timesTriggered)
		if ok {
			t.SetNextFireTime(next)
		} else {
			t.ClearNextFireTime()
		}
	case MisfireFireOnceNow:
		t.SetNextFireTime(now)
	case MisfireRescheduleNowWithExistingCount:
		t.SetNextFireTime(now)
	case MisfireRescheduleNowWithRemainingCount:
		t.RepeatCount = t.remainingCount()
		t.SetNextFireTime(now)
	case MisfireRescheduleNextWithExistingCount, MisfireRescheduleNextWithRemainingCount:
		if instr == MisfireRescheduleNextWithRemainingCount {
			t.RepeatCount = t.remainingCount()
		}
		next, ok := t.nextFireTimeAfter(now, t.timesTriggered)
		if ok {
			t.SetNextFireTime(next)
		} else {
			t.ClearNextFireTime()
		}
	}
	_ = cal
}

func (t *SimpleTrigger) remainingCount() int {
	if t.RepeatCount == SimpleTriggerRepeatIndefinitely {
		return SimpleTriggerRepeatIndefinitely
	}
	remaining := t.RepeatCount - t.timesTriggered
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// MayFireAgain implements Trigger.
func (t *SimpleTrigger) MayFireAgain() bool {
	_, ok := t.GetNextFireTimeAfter(GetDefaultClock().Now().Add(-time.Nanosecond))
	return ok
}

// Validate implements Trigger.
func (t *SimpleTrigger) Validate() error {
	if !t.key.Valid() {
		return fmt.Errorf("%w: trigger key %s invalid", ErrInvalidConfiguration, t.key)
	}
	if t.RepeatInterval < 0 {
		return fmt.Errorf("%w: negative repeat interval", ErrInvalidConfiguration)
	}
	if !t.endTime.IsZero() && t.endTime.Before(t.startTime) {
		return fmt.Errorf("%w: end time before start time", ErrInvalidConfiguration)
	}
	if !t.endTime.IsZero() && t.startTime.After(t.endTime) {
		return fmt.Errorf("%w: trigger %s never fires", ErrTriggerDoesNotFire, t.key)
	}
	return nil
}

var _ Trigger = (*SimpleTrigger)(nil)
