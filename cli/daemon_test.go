package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestManifest(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDaemonBootBuildsSchedulerFromManifest(t *testing.T) {
	path := writeTestManifest(t, `
jobs:
  - name: heartbeat
    class: noop
    triggers:
      - name: heartbeat-trigger
        cron:
          expression: "0 0 2 * * ?"
`)

	cmd := &DaemonCommand{
		ManifestFile:      path,
		WorkerConcurrency: 2,
		WorkerQueueSize:   4,
	}

	err := cmd.boot()
	require.NoError(t, err)

	sched := cmd.Scheduler()
	require.NotNil(t, sched)
	assert.Len(t, sched.JobKeys(), 1)
	assert.Len(t, sched.TriggerKeys(), 1)
}

func TestDaemonBootFailsOnMissingManifest(t *testing.T) {
	cmd := &DaemonCommand{
		ManifestFile:      filepath.Join(t.TempDir(), "missing.yaml"),
		WorkerConcurrency: 2,
		WorkerQueueSize:   4,
	}

	err := cmd.boot()
	assert.Error(t, err)
}

func TestDaemonBootRejectsBadLogLevel(t *testing.T) {
	path := writeTestManifest(t, `
jobs:
  - name: heartbeat
    class: noop
    triggers:
      - name: heartbeat-trigger
        cron:
          expression: "0 0 2 * * ?"
`)

	cmd := &DaemonCommand{
		ManifestFile:      path,
		LogLevel:          "bogus",
		WorkerConcurrency: 2,
		WorkerQueueSize:   4,
	}

	err := cmd.boot()
	assert.Error(t, err)
}

func TestDaemonBootWithWebhookConfiguresListener(t *testing.T) {
	path := writeTestManifest(t, `
jobs:
  - name: heartbeat
    class: noop
    triggers:
      - name: heartbeat-trigger
        cron:
          expression: "0 0 2 * * ?"
`)

	cmd := &DaemonCommand{
		ManifestFile:      path,
		WebhookURL:        "https://example.test/hook",
		WorkerConcurrency: 2,
		WorkerQueueSize:   4,
	}

	require.NoError(t, cmd.boot())
	assert.NotNil(t, cmd.Scheduler())
}

func TestDaemonBootWithMetricsEnablesRecorder(t *testing.T) {
	path := writeTestManifest(t, `
jobs:
  - name: heartbeat
    class: noop
    triggers:
      - name: heartbeat-trigger
        cron:
          expression: "0 0 2 * * ?"
`)

	cmd := &DaemonCommand{
		ManifestFile:      path,
		MetricsAddr:       "127.0.0.1:0",
		WorkerConcurrency: 2,
		WorkerQueueSize:   4,
	}

	require.NoError(t, cmd.boot())
	assert.NotNil(t, cmd.recorder)
}
