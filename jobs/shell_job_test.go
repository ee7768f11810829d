package jobs

import (
	"context"
	"runtime"
	"testing"

	"github.com/cronforge/quartzcore/core"
)

func fireContext(t *testing.T) *core.FireContext {
	t.Helper()
	return &core.FireContext{
		TriggerKey:    core.NewTriggerKey("trig1", ""),
		RuntimeContext: context.Background(),
	}
}

func TestShellJobRunsCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("command is POSIX-only")
	}
	job, err := NewShellJobFromDetail(&core.JobDetail{
		Key:      core.NewJobKey("job1", ""),
		JobClass: "shell",
		DataMap:  core.JobDataMap{"command": "true"},
	})
	if err != nil {
		t.Fatalf("NewShellJobFromDetail: %v", err)
	}
	result := job.Execute(fireContext(t))
	if result.Err != nil {
		t.Fatalf("Execute: %v", result.Err)
	}
}

func TestShellJobSurfacesNonZeroExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("command is POSIX-only")
	}
	job, err := NewShellJobFromDetail(&core.JobDetail{
		Key:      core.NewJobKey("job1", ""),
		JobClass: "shell",
		DataMap:  core.JobDataMap{"command": "false"},
	})
	if err != nil {
		t.Fatalf("NewShellJobFromDetail: %v", err)
	}
	result := job.Execute(fireContext(t))
	if result.Err == nil {
		t.Fatal("expected an error for a non-zero exit")
	}
}

func TestShellJobRejectsMissingCommand(t *testing.T) {
	_, err := NewShellJobFromDetail(&core.JobDetail{
		Key:      core.NewJobKey("job1", ""),
		JobClass: "shell",
	})
	if err == nil {
		t.Fatal("expected an error for a missing command")
	}
}
