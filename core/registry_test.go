package core

import (
	"testing"
	"time"
)

func newTestRegistry() (*Registry, *FakeClock) {
	clock := NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	return NewRegistry(clock), clock
}

func TestRegistryStoreAndAcquire(t *testing.T) {
	reg, clock := newTestRegistry()

	jobKey := NewJobKey("job1", "")
	if err := reg.StoreJob(&JobDetail{Key: jobKey, JobClass: "noop"}, false); err != nil {
		t.Fatalf("StoreJob: %v", err)
	}

	trigKey := NewTriggerKey("trig1", "")
	trig := NewSimpleTrigger(trigKey, jobKey, clock.Now())
	if err := reg.StoreTrigger(trig, false); err != nil {
		t.Fatalf("StoreTrigger: %v", err)
	}

	acquired, err := reg.AcquireNextTriggers(clock.Now(), 10, time.Second)
	if err != nil {
		t.Fatalf("AcquireNextTriggers: %v", err)
	}
	if len(acquired) != 1 {
		t.Fatalf("expected 1 acquired trigger, got %d", len(acquired))
	}

	fctx, shouldRun := reg.TriggerFired(acquired[0])
	if !shouldRun {
		t.Fatal("expected shouldRun=true for a fresh NORMAL trigger")
	}
	if fctx.JobDetail.Key != jobKey {
		t.Fatalf("got job key %v, want %v", fctx.JobDetail.Key, jobKey)
	}

	reg.TriggerComplete(trig, fctx, JobResult{Instruction: NoopInstruction})

	state, err := reg.GetTriggerState(trigKey)
	if err != nil {
		t.Fatalf("GetTriggerState: %v", err)
	}
	// One-shot SimpleTrigger has no more firings, so it completes.
	if state != TriggerComplete {
		t.Fatalf("got state %v, want COMPLETE", state)
	}
}

func TestRegistryDuplicateJobRejected(t *testing.T) {
	reg, _ := newTestRegistry()
	jobKey := NewJobKey("job1", "")
	detail := &JobDetail{Key: jobKey, JobClass: "noop"}
	if err := reg.StoreJob(detail, false); err != nil {
		t.Fatalf("StoreJob: %v", err)
	}
	if err := reg.StoreJob(detail, false); err == nil {
		t.Fatal("expected ErrObjectAlreadyExists on duplicate store")
	}
	if err := reg.StoreJob(detail, true); err != nil {
		t.Fatalf("replaceExisting store should succeed: %v", err)
	}
}

func TestRegistryPauseJobBlocksAcquisition(t *testing.T) {
	reg, clock := newTestRegistry()
	jobKey := NewJobKey("job1", "")
	reg.StoreJob(&JobDetail{Key: jobKey, JobClass: "noop"}, false)
	trig := NewSimpleTrigger(NewTriggerKey("trig1", ""), jobKey, clock.Now())
	reg.StoreTrigger(trig, false)

	if err := reg.PauseJob(jobKey); err != nil {
		t.Fatalf("PauseJob: %v", err)
	}
	acquired, _ := reg.AcquireNextTriggers(clock.Now(), 10, time.Second)
	if len(acquired) != 0 {
		t.Fatalf("expected no acquisitions while paused, got %d", len(acquired))
	}

	if err := reg.ResumeJob(jobKey); err != nil {
		t.Fatalf("ResumeJob: %v", err)
	}
	acquired, _ = reg.AcquireNextTriggers(clock.Now(), 10, time.Second)
	if len(acquired) != 1 {
		t.Fatalf("expected 1 acquisition after resume, got %d", len(acquired))
	}
}

func TestRegistryStatefulJobBlocksConcurrentFiring(t *testing.T) {
	reg, clock := newTestRegistry()
	jobKey := NewJobKey("job1", "")
	reg.StoreJob(&JobDetail{Key: jobKey, JobClass: "noop", Stateful: true}, false)

	trig1 := NewSimpleTrigger(NewTriggerKey("trig1", ""), jobKey, clock.Now()).
		WithRepeat(time.Minute, SimpleTriggerRepeatIndefinitely)
	trig2 := NewSimpleTrigger(NewTriggerKey("trig2", ""), jobKey, clock.Now()).
		WithRepeat(time.Minute, SimpleTriggerRepeatIndefinitely)
	reg.StoreTrigger(trig1, false)
	reg.StoreTrigger(trig2, false)

	acquired, _ := reg.AcquireNextTriggers(clock.Now(), 10, time.Second)
	if len(acquired) != 2 {
		t.Fatalf("expected both triggers acquired, got %d", len(acquired))
	}

	fctx1, run1 := reg.TriggerFired(acquired[0])
	if !run1 {
		t.Fatal("expected the first firing of a stateful job to run")
	}

	_, run2 := reg.TriggerFired(acquired[1])
	if run2 {
		t.Fatal("expected the second concurrent firing of a stateful job to be blocked")
	}

	state2, _ := reg.GetTriggerState(acquired[1].Key())
	if state2 != TriggerBlocked {
		t.Fatalf("got state %v, want BLOCKED", state2)
	}

	reg.TriggerComplete(trig1, fctx1, JobResult{Instruction: NoopInstruction})

	state2, _ = reg.GetTriggerState(acquired[1].Key())
	if state2 != TriggerNormal {
		t.Fatalf("expected trigger2 unblocked after trigger1 completes, got %v", state2)
	}
}

func TestRegistryRemoveNonDurableJobWithLastTrigger(t *testing.T) {
	reg, clock := newTestRegistry()
	jobKey := NewJobKey("job1", "")
	reg.StoreJob(&JobDetail{Key: jobKey, JobClass: "noop", Durable: false}, false)
	trig := NewSimpleTrigger(NewTriggerKey("trig1", ""), jobKey, clock.Now())
	reg.StoreTrigger(trig, false)

	ok, err := reg.RemoveTrigger(trig.Key())
	if err != nil || !ok {
		t.Fatalf("RemoveTrigger: ok=%v err=%v", ok, err)
	}
	if _, ok := reg.GetJobDetail(jobKey); ok {
		t.Fatal("expected non-durable job to be removed with its last trigger")
	}
}

func TestRegistryDurableJobSurvivesLastTrigger(t *testing.T) {
	reg, clock := newTestRegistry()
	jobKey := NewJobKey("job1", "")
	reg.StoreJob(&JobDetail{Key: jobKey, JobClass: "noop", Durable: true}, false)
	trig := NewSimpleTrigger(NewTriggerKey("trig1", ""), jobKey, clock.Now())
	reg.StoreTrigger(trig, false)

	reg.RemoveTrigger(trig.Key())
	if _, ok := reg.GetJobDetail(jobKey); !ok {
		t.Fatal("expected durable job to survive its last trigger's removal")
	}
}
