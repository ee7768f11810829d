// Package jobs provides concrete core.Job implementations: shelling out to
// a local command, calling an HTTP endpoint, and a no-op used in tests and
// manifests that only care about scheduling, not side effects.
package jobs

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/gobs/args"

	"github.com/cronforge/quartzcore/core"
)

// ShellJob runs a local command through os/exec, capturing stdout/stderr
// into a pooled circular buffer (spec.md job-data keys: "command", "dir",
// "environment").
type ShellJob struct {
	Command     string
	Dir         string
	Environment []string

	bufferPool *core.BufferPool
}

// NewShellJobFromDetail builds a ShellJob from a JobDetail's data map,
// suitable for registration with a core.DefaultJobFactory under a job
// class such as "shell".
func NewShellJobFromDetail(detail *core.JobDetail) (core.Job, error) {
	command, ok := detail.DataMap.String("command")
	if !ok || command == "" {
		return nil, fmt.Errorf("%w: shell job %s missing \"command\"", core.ErrInvalidConfiguration, detail.Key)
	}
	dir, _ := detail.DataMap.String("dir")

	var env []string
	if raw, ok := detail.DataMap["environment"]; ok {
		if list, ok := raw.([]string); ok {
			env = list
		}
	}

	return &ShellJob{
		Command:     command,
		Dir:         dir,
		Environment: env,
		bufferPool:  core.DefaultBufferPool,
	}, nil
}

// Execute implements core.Job.
func (j *ShellJob) Execute(fctx *core.FireContext) core.JobResult {
	cmdArgs := args.GetArgs(j.Command)
	if len(cmdArgs) == 0 {
		return core.JobResult{Instruction: core.NoopInstruction, Err: fmt.Errorf("%w: empty command", core.ErrInvalidConfiguration)}
	}

	bin, err := exec.LookPath(cmdArgs[0])
	if err != nil {
		return core.JobResult{Instruction: core.NoopInstruction, Err: fmt.Errorf("look path %q: %w", cmdArgs[0], err)}
	}

	stdout, err := j.bufferPool.Get()
	if err != nil {
		return core.JobResult{Instruction: core.NoopInstruction, Err: err}
	}
	defer j.bufferPool.Put(stdout)
	stderr, err := j.bufferPool.Get()
	if err != nil {
		return core.JobResult{Instruction: core.NoopInstruction, Err: err}
	}
	defer j.bufferPool.Put(stderr)

	ctx := fctx.RuntimeContext
	if ctx == nil {
		ctx = context.Background()
	}

	cmd := exec.CommandContext(ctx, bin, cmdArgs[1:]...)
	cmd.Dir = j.Dir
	cmd.Env = append(os.Environ(), j.Environment...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		return core.JobResult{
			Instruction: core.NoopInstruction,
			Err:         fmt.Errorf("shell job %s: %w: stderr=%q", fctx.TriggerKey, err, stderr.String()),
		}
	}

	return core.JobResult{Instruction: core.NoopInstruction}
}

var _ core.Job = (*ShellJob)(nil)
