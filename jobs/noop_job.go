package jobs

import "github.com/cronforge/quartzcore/core"

// NoopJob does nothing. It is useful for manifests and tests that only
// care about scheduling behavior, not side effects.
type NoopJob struct{}

// NewNoopJobFromDetail ignores its detail entirely.
func NewNoopJobFromDetail(*core.JobDetail) (core.Job, error) {
	return NoopJob{}, nil
}

// Execute implements core.Job.
func (NoopJob) Execute(*core.FireContext) core.JobResult {
	return core.JobResult{Instruction: core.NoopInstruction}
}

var _ core.Job = NoopJob{}
