package core

import "fmt"

// DefaultGroup is used whenever a caller does not specify a group.
const DefaultGroup = "DEFAULT"

// Reserved group names for internally-created triggers (spec.md §6).
const (
	GroupManualTrigger  = "MANUAL_TRIGGER"
	GroupRecoveringJobs = "RECOVERING_JOBS"
	GroupFailedOverJobs = "FAILED_OVER_JOBS"
)

// JobKey uniquely identifies a JobDetail within the registry.
type JobKey struct {
	Name  string
	Group string
}

// NewJobKey returns a JobKey, defaulting an empty group to DefaultGroup.
func NewJobKey(name, group string) JobKey {
	if group == "" {
		group = DefaultGroup
	}
	return JobKey{Name: name, Group: group}
}

func (k JobKey) String() string {
	return fmt.Sprintf("%s.%s", k.Group, k.Name)
}

// Valid reports whether both name and group are non-empty.
func (k JobKey) Valid() bool {
	return k.Name != "" && k.Group != ""
}

// TriggerKey uniquely identifies a Trigger within the registry.
type TriggerKey struct {
	Name  string
	Group string
}

// NewTriggerKey returns a TriggerKey, defaulting an empty group to DefaultGroup.
func NewTriggerKey(name, group string) TriggerKey {
	if group == "" {
		group = DefaultGroup
	}
	return TriggerKey{Name: name, Group: group}
}

func (k TriggerKey) String() string {
	return fmt.Sprintf("%s.%s", k.Group, k.Name)
}

// Valid reports whether both name and group are non-empty.
func (k TriggerKey) Valid() bool {
	return k.Name != "" && k.Group != ""
}
