package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cronforge/quartzcore/config"
)

func TestJobNamePattern(t *testing.T) {
	assert.True(t, jobNamePattern.MatchString("nightly-cleanup"))
	assert.True(t, jobNamePattern.MatchString("heartbeat_1"))
	assert.False(t, jobNamePattern.MatchString("has a space"))
	assert.False(t, jobNamePattern.MatchString("slash/illegal"))
}

func TestSaveManifestWritesLoadableYAML(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "nested", "quartzcore.yaml")

	cmd := &InitCommand{Output: out}
	manifest := &config.Manifest{
		Jobs: []config.JobManifest{{
			Name:  "heartbeat",
			Class: "noop",
			Triggers: []config.TriggerManifest{{
				Name: "heartbeat-trigger",
				Cron: &config.CronTriggerManifest{Expression: "0 0 2 * * ?"},
			}},
		}},
	}

	require.NoError(t, cmd.saveManifest(manifest))

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.False(t, info.IsDir())

	loaded, err := config.Load(out)
	require.NoError(t, err)
	require.Len(t, loaded.Jobs, 1)
	assert.Equal(t, "heartbeat", loaded.Jobs[0].Name)
}
