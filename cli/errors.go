package cli

import "errors"

// Validation errors surfaced by the init wizard's prompts.
var (
	ErrJobNameEmpty   = errors.New("job name cannot be empty")
	ErrJobNameInvalid = errors.New("job name must be alphanumeric with hyphens or underscores only")
	ErrCommandEmpty   = errors.New("command cannot be empty")
	ErrScheduleEmpty  = errors.New("schedule cannot be empty")
)
