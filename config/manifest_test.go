package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoadAppliesDefaultsAndValidates(t *testing.T) {
	path := writeManifest(t, `
jobs:
  - name: nightly-cleanup
    class: shell
    data:
      command: "rm -rf /tmp/cache"
    triggers:
      - name: nightly-cleanup-trigger
        cron:
          expression: "0 0 2 * * ?"
`)

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(m.Jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(m.Jobs))
	}
	job := m.Jobs[0]
	if job.Triggers[0].Misfire != "smart" {
		t.Fatalf("expected default misfire %q, got %q", "smart", job.Triggers[0].Misfire)
	}
	if job.Durable {
		t.Fatal("expected default durable=false")
	}
}

func TestLoadRejectsMissingClass(t *testing.T) {
	path := writeManifest(t, `
jobs:
  - name: broken
    triggers:
      - name: broken-trigger
        cron:
          expression: "0 0 2 * * ?"
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for missing job class")
	}
}

func TestLoadRejectsBadCronExpression(t *testing.T) {
	path := writeManifest(t, `
jobs:
  - name: broken
    class: shell
    triggers:
      - name: broken-trigger
        cron:
          expression: "not a cron expression"
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for malformed cron expression")
	}
}

func TestLoadRejectsTriggerWithNeitherCronNorSimple(t *testing.T) {
	path := writeManifest(t, `
jobs:
  - name: broken
    class: shell
    triggers:
      - name: broken-trigger
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for a trigger with neither cron nor simple")
	}
}

func TestLoadRejectsDuplicateJobNames(t *testing.T) {
	path := writeManifest(t, `
jobs:
  - name: dup
    class: shell
    triggers:
      - name: dup-trigger-1
        cron:
          expression: "0 0 2 * * ?"
  - name: dup
    class: shell
    triggers:
      - name: dup-trigger-2
        cron:
          expression: "0 0 3 * * ?"
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for duplicate job names")
	}
}

func TestLoadRejectsRepeatingSimpleTriggerWithoutInterval(t *testing.T) {
	path := writeManifest(t, `
jobs:
  - name: repeat-me
    class: shell
    triggers:
      - name: repeat-trigger
        simple:
          repeat: 5
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for a repeating simple trigger with no interval")
	}
}
