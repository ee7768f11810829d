package core

import (
	"fmt"
	"time"
)

// CronTrigger fires on the recurring schedule described by a
// CronExpression (spec.md §3 "CronTrigger").
type CronTrigger struct {
	triggerHeader

	Expr *CronExpression
}

// NewCronTrigger parses expr and returns a CronTrigger, or a
// *CronParseError if the expression is malformed.
func NewCronTrigger(key TriggerKey, jobKey JobKey, expr string, startTime time.Time) (*CronTrigger, error) {
	ce, err := ParseCronExpression(expr)
	if err != nil {
		return nil, err
	}
	return &CronTrigger{
		triggerHeader: triggerHeader{
			key:       key,
			jobKey:    jobKey,
			startTime: startTime,
		},
		Expr: ce,
	}, nil
}

func (t *CronTrigger) WithEndTime(end time.Time) *CronTrigger { t.endTime = end; return t }
func (t *CronTrigger) WithDescription(d string) *CronTrigger  { t.description = d; return t }
func (t *CronTrigger) WithCalendarName(c string) *CronTrigger { t.calendarName = c; return t }
func (t *CronTrigger) WithPriority(p int) *CronTrigger        { t.priority = p; return t }
func (t *CronTrigger) WithTimeZone(loc *time.Location) *CronTrigger {
	t.Expr.Location = loc
	return t
}

func (t *CronTrigger) CronExpressionString() string { return t.Expr.Expression() }

// GetNextFireTimeAfter implements Trigger (spec.md §3). The candidate is
// never earlier than StartTime and never later than EndTime.
func (t *CronTrigger) GetNextFireTimeAfter(after time.Time) (time.Time, bool) {
	if after.Before(t.startTime.Add(-time.Second)) {
		after = t.startTime.Add(-time.Second)
	}
	candidate, ok := t.Expr.NextFireTime(after)
	if !ok {
		return time.Time{}, false
	}
	if !t.endTime.IsZero() && candidate.After(t.endTime) {
		return time.Time{}, false
	}
	return candidate, true
}

func (t *CronTrigger) GetFireTimeAfter(after time.Time) (time.Time, bool) {
	return t.GetNextFireTimeAfter(after)
}

// GetFinalFireTime implements Trigger. A CronTrigger with no EndTime fires
// indefinitely.
func (t *CronTrigger) GetFinalFireTime() (time.Time, bool) {
	if t.endTime.IsZero() {
		return time.Time{}, false
	}
	// Walk forward fire by fire from StartTime, keeping the last fire time
	// that does not exceed EndTime.
	probe := t.startTime.Add(-time.Second)
	var last time.Time
	found := false
	for {
		next, ok := t.Expr.NextFireTime(probe)
		if !ok || next.After(t.endTime) {
			break
		}
		last = next
		found = true
		probe = next
	}
	return last, found
}

// Triggered implements Trigger (spec.md §4.4). When a Calendar is present,
// instants it excludes are skipped by re-querying the expression forward;
// spec.md §7 caps this search so a calendar excluding everything cannot
// spin forever.
func (t *CronTrigger) Triggered(cal Calendar) bool {
	cur, ok := t.NextFireTime()
	if !ok {
		cur, ok = t.GetNextFireTimeAfter(t.startTime.Add(-time.Second))
		if !ok {
			t.ClearNextFireTime()
			return false
		}
	}

	next, ok := t.GetNextFireTimeAfter(cur)
	for i := 0; ok && cal != nil && !cal.IsTimeIncluded(next) && i < maxCalendarSkipAttempts; i++ {
		next, ok = t.GetNextFireTimeAfter(next)
	}
	if ok && cal != nil && !cal.IsTimeIncluded(next) {
		ok = false
	}

	t.SetPreviousFireTime(cur)
	if ok {
		t.SetNextFireTime(next)
	} else {
		t.ClearNextFireTime()
	}
	return ok
}

// maxCalendarSkipAttempts bounds how many excluded instants Triggered will
// walk past looking for an included one (spec.md §7 "misfire handling must
// terminate").
const maxCalendarSkipAttempts = 366

// UpdateAfterMisfire implements Trigger (spec.md §7). The smart policy for
// a CronTrigger is FireNow: fire immediately, then resume the normal
// schedule from "now" forward.
func (t *CronTrigger) UpdateAfterMisfire(cal Calendar) {
	instr := t.misfireInstruction
	if instr == MisfireSmartPolicy {
		instr = MisfireFireNow
	}

	switch instr {
	case MisfireDoNothing:
		now := GetDefaultClock().Now()
		next, ok := t.GetNextFireTimeAfter(now)
		if ok {
			t.SetNextFireTime(next)
		} else {
			t.ClearNextFireTime()
		}
	case MisfireFireNow:
		t.SetNextFireTime(GetDefaultClock().Now())
	}
	_ = cal
}

// MayFireAgain implements Trigger.
func (t *CronTrigger) MayFireAgain() bool {
	_, ok := t.GetNextFireTimeAfter(GetDefaultClock().Now())
	return ok
}

// Validate implements Trigger.
func (t *CronTrigger) Validate() error {
	if !t.key.Valid() {
		return fmt.Errorf("%w: trigger key %s invalid", ErrInvalidConfiguration, t.key)
	}
	if t.Expr == nil {
		return fmt.Errorf("%w: nil cron expression", ErrInvalidConfiguration)
	}
	if !t.endTime.IsZero() && t.endTime.Before(t.startTime) {
		return fmt.Errorf("%w: end time before start time", ErrInvalidConfiguration)
	}
	if _, ok := t.GetNextFireTimeAfter(t.startTime.Add(-time.Second)); !ok {
		return fmt.Errorf("%w: trigger %s never fires", ErrTriggerDoesNotFire, t.key)
	}
	return nil
}

var _ Trigger = (*CronTrigger)(nil)
