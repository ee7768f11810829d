package core

import (
	"context"
	"testing"
	"time"
)

func TestSchedulerCoreFiresImmediateTrigger(t *testing.T) {
	clock := NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	fired := make(chan struct{}, 1)
	factory := NewDefaultJobFactory()
	factory.Register("noop", func(detail *JobDetail) (Job, error) {
		return JobFunc(func(fctx *FireContext) JobResult {
			fired <- struct{}{}
			return JobResult{Instruction: NoopInstruction}
		}), nil
	})

	sched, err := NewSchedulerCore(SchedulerConfig{
		Submitter: InlineSubmitter{},
		Factory:   factory,
		Clock:     clock,
		Logger:    NewLogrusAdapter(nil),
	})
	if err != nil {
		t.Fatalf("NewSchedulerCore: %v", err)
	}

	jobKey := NewJobKey("job1", "")
	if err := sched.AddJob(&JobDetail{Key: jobKey, JobClass: "noop"}, false); err != nil {
		t.Fatalf("AddJob: %v", err)
	}

	trig := NewSimpleTrigger(NewTriggerKey("trig1", ""), jobKey, clock.Now())
	if err := sched.ScheduleTrigger(trig, false); err != nil {
		t.Fatalf("ScheduleTrigger: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := sched.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not fired within the wall-clock timeout")
	}

	if err := sched.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestSchedulerCoreRejectsMissingCollaborators(t *testing.T) {
	if _, err := NewSchedulerCore(SchedulerConfig{}); err == nil {
		t.Fatal("expected an error when Submitter and Factory are both nil")
	}
}

func TestSchedulerCorePauseResumeJob(t *testing.T) {
	clock := NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	factory := NewDefaultJobFactory()
	factory.Register("noop", func(detail *JobDetail) (Job, error) {
		return JobFunc(func(fctx *FireContext) JobResult {
			return JobResult{Instruction: NoopInstruction}
		}), nil
	})

	sched, _ := NewSchedulerCore(SchedulerConfig{
		Submitter: InlineSubmitter{},
		Factory:   factory,
		Clock:     clock,
	})

	jobKey := NewJobKey("job1", "")
	sched.AddJob(&JobDetail{Key: jobKey, JobClass: "noop"}, false)
	trig := NewSimpleTrigger(NewTriggerKey("trig1", ""), jobKey, clock.Now())
	sched.ScheduleTrigger(trig, false)

	if err := sched.PauseJob(jobKey); err != nil {
		t.Fatalf("PauseJob: %v", err)
	}
	state, _ := sched.GetTriggerState(trig.Key())
	if state != TriggerPaused {
		t.Fatalf("got %v, want PAUSED", state)
	}

	if err := sched.ResumeJob(jobKey); err != nil {
		t.Fatalf("ResumeJob: %v", err)
	}
	state, _ = sched.GetTriggerState(trig.Key())
	if state != TriggerNormal {
		t.Fatalf("got %v, want NORMAL", state)
	}
}
