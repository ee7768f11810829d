package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"github.com/cronforge/quartzcore/core"
)

// Load reads a YAML manifest from path, applies struct defaults, and
// validates it. The returned Manifest has not been applied to a
// scheduler yet; call Apply for that.
func Load(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // path is operator-provided, not user input over the wire
	if err != nil {
		return nil, fmt.Errorf("%w: read manifest %q: %v", core.ErrInvalidConfiguration, path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: parse manifest %q: %v", core.ErrInvalidConfiguration, path, err)
	}

	for i := range m.Jobs {
		if err := defaults.Set(&m.Jobs[i]); err != nil {
			return nil, fmt.Errorf("%w: apply defaults to job %d: %v", core.ErrInvalidConfiguration, i, err)
		}
		for j := range m.Jobs[i].Triggers {
			if err := defaults.Set(&m.Jobs[i].Triggers[j]); err != nil {
				return nil, fmt.Errorf("%w: apply defaults to job %d trigger %d: %v", core.ErrInvalidConfiguration, i, j, err)
			}
		}
	}

	if err := Validate(&m); err != nil {
		return nil, err
	}

	return &m, nil
}

// Apply registers every calendar and job/trigger in m with sched. It
// stops at the first error, matching spec.md §4.1: a malformed manifest
// must never leave the scheduler partially loaded and running.
func Apply(m *Manifest, sched *core.SchedulerCore) error {
	for i := range m.Calendars {
		cal, err := buildCalendar(&m.Calendars[i])
		if err != nil {
			return fmt.Errorf("calendar %q: %w", m.Calendars[i].Name, err)
		}
		if err := sched.AddCalendar(m.Calendars[i].Name, cal, true, true); err != nil {
			return fmt.Errorf("register calendar %q: %w", m.Calendars[i].Name, err)
		}
	}

	for i := range m.Jobs {
		jm := &m.Jobs[i]
		detail := &core.JobDetail{
			Key:      core.NewJobKey(jm.Name, jm.Group),
			JobClass: jm.Class,
			Durable:  jm.Durable,
			Stateful: jm.Stateful,
			DataMap:  core.JobDataMap(jm.Data),
		}
		if err := sched.AddJob(detail, false); err != nil {
			return fmt.Errorf("add job %s: %w", detail.Key, err)
		}

		for j := range jm.Triggers {
			trig, err := buildTrigger(&jm.Triggers[j], detail.Key)
			if err != nil {
				return fmt.Errorf("job %s trigger %d: %w", detail.Key, j, err)
			}
			if err := sched.ScheduleTrigger(trig, false); err != nil {
				return fmt.Errorf("schedule trigger for job %s: %w", detail.Key, err)
			}
		}
	}

	return nil
}

func buildTrigger(tm *TriggerManifest, jobKey core.JobKey) (core.Trigger, error) {
	key := core.NewTriggerKey(tm.Name, tm.Group)
	misfire := misfireFromString(tm.Misfire)

	switch {
	case tm.Cron != nil:
		trig, err := core.NewCronTrigger(key, jobKey, tm.Cron.Expression, time.Now())
		if err != nil {
			return nil, err
		}
		if tm.Cron.TimeZone != "" {
			loc, err := time.LoadLocation(tm.Cron.TimeZone)
			if err != nil {
				return nil, fmt.Errorf("load time zone %q: %w", tm.Cron.TimeZone, err)
			}
			trig = trig.WithTimeZone(loc)
		}
		if tm.Cron.EndTime != nil {
			trig = trig.WithEndTime(*tm.Cron.EndTime)
		}
		if tm.Calendar != "" {
			trig = trig.WithCalendarName(tm.Calendar)
		}
		trig = trig.WithPriority(tm.Priority)
		trig.SetMisfireInstruction(misfire)
		return trig, nil

	case tm.Simple != nil:
		start := time.Now()
		if tm.Simple.StartTime != nil {
			start = *tm.Simple.StartTime
		}
		trig := core.NewSimpleTrigger(key, jobKey, start)
		if tm.Simple.Interval != nil {
			trig = trig.WithRepeat(*tm.Simple.Interval, tm.Simple.Repeat)
		}
		if tm.Simple.EndTime != nil {
			trig = trig.WithEndTime(*tm.Simple.EndTime)
		}
		if tm.Calendar != "" {
			trig = trig.WithCalendarName(tm.Calendar)
		}
		trig = trig.WithPriority(tm.Priority)
		trig.SetMisfireInstruction(misfire)
		return trig, nil

	default:
		return nil, fmt.Errorf("%w: trigger %s has neither cron nor simple", core.ErrInvalidConfiguration, key)
	}
}

func buildCalendar(cm *CalendarManifest) (core.Calendar, error) {
	switch cm.Kind {
	case "holiday":
		cal := core.NewHolidayCalendar(cm.Name)
		for _, d := range cm.ExcludedDays {
			t, err := time.Parse(time.RFC3339, d)
			if err != nil {
				t, err = time.Parse("2006-01-02", d)
				if err != nil {
					return nil, fmt.Errorf("excluded day %q: %w", d, err)
				}
			}
			cal.AddExcludedDate(t)
		}
		return cal, nil

	case "weekly":
		cal := core.NewWeeklyCalendar(cm.Name)
		for _, w := range cm.ExcludedWeekdays {
			day, err := parseWeekday(w)
			if err != nil {
				return nil, err
			}
			cal.SetDayExcluded(day, true)
		}
		return cal, nil

	case "daily":
		start, err := parseClockDuration(cm.RangeStart)
		if err != nil {
			return nil, fmt.Errorf("rangeStart %q: %w", cm.RangeStart, err)
		}
		end, err := parseClockDuration(cm.RangeEnd)
		if err != nil {
			return nil, fmt.Errorf("rangeEnd %q: %w", cm.RangeEnd, err)
		}
		cal := core.NewDailyCalendar(cm.Name, start, end)
		cal.SetInvertTimeRange(cm.Invert)
		return cal, nil

	case "monthly":
		cal := core.NewMonthlyCalendar(cm.Name)
		for _, d := range cm.ExcludedDaysOfMonth {
			cal.SetDayExcluded(d, true)
		}
		return cal, nil

	case "annual":
		cal := core.NewAnnualCalendar(cm.Name)
		for _, md := range cm.ExcludedMonthDays {
			month, day, err := parseMonthDay(md)
			if err != nil {
				return nil, err
			}
			cal.SetDayExcluded(month, day, true)
		}
		return cal, nil

	default:
		return nil, fmt.Errorf("%w: unknown calendar kind %q", core.ErrInvalidConfiguration, cm.Kind)
	}
}

// parseClockDuration parses an "HH:MM:SS" clock time into the duration
// since midnight, since time.ParseDuration has no notion of clock time.
func parseClockDuration(s string) (time.Duration, error) {
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second, nil
}

func parseWeekday(s string) (time.Weekday, error) {
	switch strings.ToLower(s) {
	case "sunday":
		return time.Sunday, nil
	case "monday":
		return time.Monday, nil
	case "tuesday":
		return time.Tuesday, nil
	case "wednesday":
		return time.Wednesday, nil
	case "thursday":
		return time.Thursday, nil
	case "friday":
		return time.Friday, nil
	case "saturday":
		return time.Saturday, nil
	default:
		return 0, fmt.Errorf("%w: unknown weekday %q", core.ErrInvalidConfiguration, s)
	}
}

func parseMonthDay(s string) (time.Month, int, error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: month-day %q must be MM-DD", core.ErrInvalidConfiguration, s)
	}
	m, err := strconv.Atoi(parts[0])
	if err != nil || m < 1 || m > 12 {
		return 0, 0, fmt.Errorf("%w: invalid month in %q", core.ErrInvalidConfiguration, s)
	}
	d, err := strconv.Atoi(parts[1])
	if err != nil || d < 1 || d > 31 {
		return 0, 0, fmt.Errorf("%w: invalid day in %q", core.ErrInvalidConfiguration, s)
	}
	return time.Month(m), d, nil
}
