package config

import (
	"testing"

	"github.com/cronforge/quartzcore/core"
	"github.com/cronforge/quartzcore/jobs"
)

func newTestScheduler(t *testing.T) *core.SchedulerCore {
	t.Helper()
	factory := core.NewDefaultJobFactory()
	factory.Register("shell", func(detail *core.JobDetail) (core.Job, error) {
		return jobs.NewShellJobFromDetail(detail)
	})
	factory.Register("noop", func(detail *core.JobDetail) (core.Job, error) {
		return jobs.NewNoopJobFromDetail(detail)
	})

	sched, err := core.NewSchedulerCore(core.SchedulerConfig{
		Submitter: core.InlineSubmitter{},
		Factory:   factory,
	})
	if err != nil {
		t.Fatalf("NewSchedulerCore: %v", err)
	}
	return sched
}

func TestApplyRegistersJobsTriggersAndCalendars(t *testing.T) {
	path := writeManifest(t, `
calendars:
  - name: weekends
    kind: weekly
    excludedWeekdays: ["saturday", "sunday"]

jobs:
  - name: nightly-cleanup
    class: shell
    data:
      command: "true"
    triggers:
      - name: nightly-cleanup-trigger
        calendar: weekends
        cron:
          expression: "0 0 2 * * ?"
  - name: heartbeat
    class: noop
    triggers:
      - name: heartbeat-trigger
        simple:
          interval: 30s
          repeat: -1
`)

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	sched := newTestScheduler(t)
	if err := Apply(m, sched); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if _, ok := sched.GetCalendar("weekends"); !ok {
		t.Fatal("expected calendar \"weekends\" to be registered")
	}

	jobKeys := sched.JobKeys()
	if len(jobKeys) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobKeys))
	}

	triggerKeys := sched.TriggerKeys()
	if len(triggerKeys) != 2 {
		t.Fatalf("expected 2 triggers, got %d", len(triggerKeys))
	}

	trig, ok := sched.GetTrigger(core.NewTriggerKey("nightly-cleanup-trigger", ""))
	if !ok {
		t.Fatal("expected nightly-cleanup-trigger to be registered")
	}
	if trig.CalendarName() != "weekends" {
		t.Fatalf("expected trigger calendar %q, got %q", "weekends", trig.CalendarName())
	}
}

func TestApplyAcceptsUnknownJobClass(t *testing.T) {
	path := writeManifest(t, `
jobs:
  - name: mystery
    class: does-not-exist
    triggers:
      - name: mystery-trigger
        cron:
          expression: "0 0 2 * * ?"
`)

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	sched := newTestScheduler(t)
	if err := Apply(m, sched); err != nil {
		t.Fatalf("Apply should not itself resolve job classes: %v", err)
	}
}
