package core

import (
	"testing"
	"time"
)

func TestSimpleTriggerOneShot(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	trig := NewSimpleTrigger(NewTriggerKey("t1", ""), NewJobKey("j1", ""), start)

	next, ok := trig.GetNextFireTimeAfter(start.Add(-time.Second))
	if !ok || !next.Equal(start) {
		t.Fatalf("got (%v,%v), want (%v,true)", next, ok, start)
	}

	_, ok = trig.GetNextFireTimeAfter(start)
	if ok {
		t.Fatal("one-shot trigger should not fire again after its start time")
	}
}

func TestSimpleTriggerRepeating(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	trig := NewSimpleTrigger(NewTriggerKey("t1", ""), NewJobKey("j1", ""), start).
		WithRepeat(time.Minute, 2)

	trig.SetNextFireTime(start)
	if !trig.Triggered(nil) {
		t.Fatal("expected a second firing")
	}
	nf, ok := trig.NextFireTime()
	if !ok || !nf.Equal(start.Add(time.Minute)) {
		t.Fatalf("got %v, want %v", nf, start.Add(time.Minute))
	}

	if !trig.Triggered(nil) {
		t.Fatal("expected a third firing")
	}
	nf, ok = trig.NextFireTime()
	if !ok || !nf.Equal(start.Add(2*time.Minute)) {
		t.Fatalf("got %v, want %v", nf, start.Add(2*time.Minute))
	}

	if trig.Triggered(nil) {
		t.Fatal("expected no further firing after RepeatCount is exhausted")
	}
	if _, ok := trig.NextFireTime(); ok {
		t.Fatal("expected NextFireTime to be cleared once exhausted")
	}
}

func TestSimpleTriggerRespectsEndTime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Second)
	trig := NewSimpleTrigger(NewTriggerKey("t1", ""), NewJobKey("j1", ""), start).
		WithRepeat(time.Minute, SimpleTriggerRepeatIndefinitely).
		WithEndTime(end)

	next, ok := trig.GetNextFireTimeAfter(start)
	if !ok || !next.Equal(start.Add(time.Minute)) {
		t.Fatalf("got (%v,%v), want (%v,true)", next, ok, start.Add(time.Minute))
	}
	if _, ok := trig.GetNextFireTimeAfter(next); ok {
		t.Fatal("expected no firing after end time (next tick would be at 120s > 90s end)")
	}
}

func TestSimpleTriggerCalendarSkipsExcludedInstant(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	trig := NewSimpleTrigger(NewTriggerKey("t1", ""), NewJobKey("j1", ""), start).
		WithRepeat(24*time.Hour, SimpleTriggerRepeatIndefinitely)
	trig.SetNextFireTime(start)

	nextWeekday := start.Add(24 * time.Hour).Weekday() // the day the very next occurrence would land on
	cal := NewWeeklyCalendar("skip that day")
	cal.SetDayExcluded(nextWeekday, true)

	if !trig.Triggered(cal) {
		t.Fatal("expected trigger to keep firing past one excluded instant")
	}
	nf, ok := trig.NextFireTime()
	if !ok {
		t.Fatal("expected a next fire time")
	}
	if nf.Weekday() == nextWeekday {
		t.Fatalf("expected the excluded weekday to be skipped, got %v", nf.Weekday())
	}
	if !nf.Equal(start.Add(48 * time.Hour)) {
		t.Fatalf("got %v, want %v (two days forward, skipping the excluded one)", nf, start.Add(48*time.Hour))
	}
}
