package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/cronforge/quartzcore/core"
)

// ErrValidationFailed wraps struct validation failures with a
// user-friendly, field-by-field message list. It itself wraps
// core.ErrInvalidConfiguration.
var ErrValidationFailed = fmt.Errorf("%w: manifest validation failed", core.ErrInvalidConfiguration)

var manifestValidator *validator.Validate

func init() {
	manifestValidator = validator.New()
	_ = manifestValidator.RegisterValidation("cron", validateCronTag)
	_ = manifestValidator.RegisterValidation("misfire", validateMisfireTag)
}

// Validate runs struct-tag validation over m, then the cross-field checks
// struct tags alone can't express (see validateTrigger/validateCalendar).
func Validate(m *Manifest) error {
	if err := manifestValidator.Struct(m); err != nil {
		return formatValidationErrors(err)
	}

	names := make(map[core.JobKey]bool)
	for i := range m.Jobs {
		job := &m.Jobs[i]
		key := core.NewJobKey(job.Name, job.Group)
		if names[key] {
			return fmt.Errorf("%w: duplicate job %s", ErrValidationFailed, key)
		}
		names[key] = true

		for j := range job.Triggers {
			if err := validateTrigger(&job.Triggers[j]); err != nil {
				return fmt.Errorf("%w: job %s trigger %d: %v", ErrValidationFailed, key, j, err)
			}
		}
	}

	calNames := make(map[string]bool)
	for i := range m.Calendars {
		cal := &m.Calendars[i]
		if calNames[cal.Name] {
			return fmt.Errorf("%w: duplicate calendar %q", ErrValidationFailed, cal.Name)
		}
		calNames[cal.Name] = true
	}

	return nil
}

func validateTrigger(t *TriggerManifest) error {
	if t.Cron == nil && t.Simple == nil {
		return fmt.Errorf("exactly one of cron or simple must be set")
	}
	if t.Cron != nil && t.Simple != nil {
		return fmt.Errorf("cron and simple are mutually exclusive")
	}
	if t.Cron != nil {
		if _, err := core.ParseCronExpression(t.Cron.Expression); err != nil {
			return fmt.Errorf("cron expression %q: %w", t.Cron.Expression, err)
		}
	}
	if t.Simple != nil && t.Simple.Repeat != 0 {
		if t.Simple.Interval == nil || *t.Simple.Interval <= 0 {
			return fmt.Errorf("a repeating simple trigger needs a positive interval")
		}
	}
	return nil
}

func validateCronTag(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, err := core.ParseCronExpression(value)
	return err == nil
}

func validateMisfireTag(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	switch value {
	case "", "smart", "fireNow", "doNothing",
		"rescheduleNextWithExistingCount", "rescheduleNextWithRemainingCount",
		"rescheduleNowWithExistingCount", "rescheduleNowWithRemainingCount", "ignore":
		return true
	default:
		return false
	}
}

func formatValidationErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (got %v)", e.Namespace(), e.Tag(), e.Value()))
	}
	return fmt.Errorf("%w:\n  %s", ErrValidationFailed, strings.Join(msgs, "\n  "))
}
