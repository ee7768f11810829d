package core

import (
	"testing"
	"time"
)

// recordingTriggerListener captures every misfired trigger it observes, for
// assertions that a notification actually reached a listener.
type recordingTriggerListener struct {
	BaseTriggerListener
	misfired []TriggerKey
}

func (l *recordingTriggerListener) TriggerMisfired(trig Trigger) {
	l.misfired = append(l.misfired, trig.Key())
}

// TestMisfireDoNothingSkipsMissedFirings exercises the DO_NOTHING misfire
// policy: a trigger repeating every 5 minutes that falls 35 minutes behind
// must not replay any of the missed occurrences, only resume on the next
// aligned boundary after now.
func TestMisfireDoNothingSkipsMissedFirings(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFakeClock(t0)

	prevDefault := GetDefaultClock()
	SetDefaultClock(clock)
	defer SetDefaultClock(prevDefault)

	reg := NewRegistry(clock)
	jobKey := NewJobKey("job1", "")
	if err := reg.StoreJob(&JobDetail{Key: jobKey, JobClass: "noop"}, false); err != nil {
		t.Fatalf("StoreJob: %v", err)
	}

	trig := NewSimpleTrigger(NewTriggerKey("trig1", ""), jobKey, t0).
		WithRepeat(5*time.Minute, SimpleTriggerRepeatIndefinitely)
	trig.SetMisfireInstruction(MisfireDoNothing)
	if err := reg.StoreTrigger(trig, false); err != nil {
		t.Fatalf("StoreTrigger: %v", err)
	}

	// The scheduler never comes around to acquire trig1's first firing;
	// simulate 35 minutes passing with nothing acquiring it.
	clock.Advance(35 * time.Minute)

	listeners := NewListenerManager()
	handler := newMisfireHandler(reg, clock, listeners, nil, 60*time.Second, 60*time.Second)
	handler.scan()

	nf, ok := trig.NextFireTime()
	if !ok {
		t.Fatal("expected trig1 to still have a next fire time after a DO_NOTHING misfire")
	}

	missedDeadline := t0.Add(35 * time.Minute)
	if !nf.After(missedDeadline) {
		t.Fatalf("got next fire time %v, want strictly after %v (no replay of missed firings)", nf, missedDeadline)
	}
	if nf.Sub(t0)%(5*time.Minute) != 0 {
		t.Fatalf("expected next fire time %v to land on a 5-minute boundary from %v", nf, t0)
	}
}

// TestMisfireNotifiedAroundResume exercises pausing a trigger group long
// enough for the trigger's cached next fire time to fall behind, then
// resuming: the resume path must itself detect and correct the misfire and
// notify trigger listeners, rather than waiting for the next periodic
// misfire scan.
func TestMisfireNotifiedAroundResume(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFakeClock(t0)

	prevDefault := GetDefaultClock()
	SetDefaultClock(clock)
	defer SetDefaultClock(prevDefault)

	reg := NewRegistry(clock)
	listeners := NewListenerManager()
	reg.SetMisfireNotifier(listeners.fireTriggerMisfired)

	rec := &recordingTriggerListener{}
	listeners.AddTriggerListener(rec)

	jobKey := NewJobKey("job1", "")
	if err := reg.StoreJob(&JobDetail{Key: jobKey, JobClass: "noop"}, false); err != nil {
		t.Fatalf("StoreJob: %v", err)
	}

	trig := NewSimpleTrigger(NewTriggerKey("trig1", ""), jobKey, t0).
		WithRepeat(time.Second, SimpleTriggerRepeatIndefinitely)
	if err := reg.StoreTrigger(trig, false); err != nil {
		t.Fatalf("StoreTrigger: %v", err)
	}

	// Fire the trigger a few times so it has an established schedule, then
	// pause its group before the next firing would occur.
	for i := 0; i < 3; i++ {
		acquired, err := reg.AcquireNextTriggers(clock.Now(), 10, time.Second)
		if err != nil || len(acquired) != 1 {
			t.Fatalf("AcquireNextTriggers iteration %d: acquired=%d err=%v", i, len(acquired), err)
		}
		fctx, shouldRun := reg.TriggerFired(acquired[0])
		if !shouldRun {
			t.Fatalf("expected firing %d to run", i)
		}
		reg.TriggerComplete(trig, fctx, JobResult{Instruction: NoopInstruction})
		clock.Advance(time.Second)
	}

	if err := reg.PauseTriggerGroup(trig.Key().Group); err != nil {
		t.Fatalf("PauseTriggerGroup: %v", err)
	}

	// Let 10 seconds pass while paused, well past the trigger's 1-second
	// repeat interval, so its cached next fire time is now far in the past.
	clock.Advance(10 * time.Second)
	resumeTime := clock.Now()

	if err := reg.ResumeTriggerGroup(trig.Key().Group); err != nil {
		t.Fatalf("ResumeTriggerGroup: %v", err)
	}

	if len(rec.misfired) == 0 {
		t.Fatal("expected a misfire notification to be delivered as part of resuming")
	}
	if rec.misfired[len(rec.misfired)-1] != trig.Key() {
		t.Fatalf("expected the misfire notification to name %v, got %v", trig.Key(), rec.misfired)
	}

	nf, ok := trig.NextFireTime()
	if !ok {
		t.Fatal("expected trig1 to have a next fire time after resume")
	}
	if nf.After(resumeTime.Add(DefaultMisfireThreshold)) {
		t.Fatalf("expected next fire time %v within the misfire threshold of resume %v", nf, resumeTime)
	}
}
