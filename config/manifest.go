// Package config loads a YAML manifest describing jobs, triggers, and
// calendars into the core package's types, applying struct defaults and
// validating the result before anything is handed to a SchedulerCore
// (spec.md §4.1: parse errors surface at construction, never at fire
// time).
package config

import (
	"time"

	"github.com/cronforge/quartzcore/core"
)

// Manifest is the top-level YAML document shape.
type Manifest struct {
	Jobs      []JobManifest      `yaml:"jobs" validate:"dive"`
	Calendars []CalendarManifest `yaml:"calendars,omitempty" validate:"dive"`
}

// JobManifest describes one job and the trigger(s) that fire it.
type JobManifest struct {
	Name     string            `yaml:"name" validate:"required"`
	Group    string            `yaml:"group,omitempty"`
	Class    string            `yaml:"class" validate:"required"`
	Durable  bool              `yaml:"durable,omitempty" default:"false"`
	Stateful bool              `yaml:"stateful,omitempty" default:"false"`
	Data     map[string]any    `yaml:"data,omitempty"`
	Triggers []TriggerManifest `yaml:"triggers" validate:"required,min=1,dive"`
}

// TriggerManifest describes one trigger. Exactly one of Cron or Simple
// must be set (validated in validate.go, since go-playground/validator's
// struct tags alone can't express a mutually-exclusive oneof across
// nested structs cleanly).
type TriggerManifest struct {
	Name        string                `yaml:"name" validate:"required"`
	Group       string                `yaml:"group,omitempty"`
	Priority    int                   `yaml:"priority,omitempty"`
	Calendar    string                `yaml:"calendar,omitempty"`
	Misfire     string                `yaml:"misfire,omitempty" default:"smart" validate:"misfire"`
	Cron        *CronTriggerManifest  `yaml:"cron,omitempty"`
	Simple      *SimpleTriggerManifest `yaml:"simple,omitempty"`
}

// CronTriggerManifest configures a core.CronTrigger.
type CronTriggerManifest struct {
	Expression string `yaml:"expression" validate:"required"`
	TimeZone   string `yaml:"timeZone,omitempty"`
	EndTime    *time.Time `yaml:"endTime,omitempty"`
}

// SimpleTriggerManifest configures a core.SimpleTrigger.
type SimpleTriggerManifest struct {
	StartTime *time.Time     `yaml:"startTime,omitempty"`
	Interval  *time.Duration `yaml:"interval,omitempty"`
	Repeat    int            `yaml:"repeat,omitempty" default:"0"`
	EndTime   *time.Time     `yaml:"endTime,omitempty"`
}

// CalendarManifest describes one named exclusion calendar, registered
// under Name and referenced from a TriggerManifest's Calendar field.
type CalendarManifest struct {
	Name           string   `yaml:"name" validate:"required"`
	Kind           string   `yaml:"kind" validate:"required,oneof=holiday weekly daily monthly annual"`
	ExcludedDays   []string `yaml:"excludedDays,omitempty"`   // holiday: RFC3339 dates
	ExcludedWeekdays []string `yaml:"excludedWeekdays,omitempty"` // weekly: "monday", ...
	ExcludedDaysOfMonth []int `yaml:"excludedDaysOfMonth,omitempty"` // monthly
	ExcludedMonthDays []string `yaml:"excludedMonthDays,omitempty"` // annual: "MM-DD"
	RangeStart     string   `yaml:"rangeStart,omitempty"` // daily: "HH:MM:SS"
	RangeEnd       string   `yaml:"rangeEnd,omitempty"`
	Invert         bool     `yaml:"invert,omitempty"`
}

func misfireFromString(s string) core.MisfireInstruction {
	switch s {
	case "fireNow":
		return core.MisfireFireNow
	case "doNothing":
		return core.MisfireDoNothing
	case "rescheduleNextWithExistingCount":
		return core.MisfireRescheduleNextWithExistingCount
	case "rescheduleNextWithRemainingCount":
		return core.MisfireRescheduleNextWithRemainingCount
	case "rescheduleNowWithExistingCount":
		return core.MisfireRescheduleNowWithExistingCount
	case "rescheduleNowWithRemainingCount":
		return core.MisfireRescheduleNowWithRemainingCount
	case "ignore":
		return core.MisfireIgnorePolicy
	default:
		return core.MisfireSmartPolicy
	}
}
