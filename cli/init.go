package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"gopkg.in/yaml.v3"

	"github.com/cronforge/quartzcore/config"
	"github.com/cronforge/quartzcore/core"
)

// InitCommand is an interactive wizard that writes a new job manifest
// as a config.Manifest YAML file instead of an INI file of Docker labels.
type InitCommand struct {
	Output   string `long:"output" short:"o" description:"Output file path" default:"./quartzcore.yaml"`
	LogLevel string `long:"log-level" env:"QUARTZCORE_LOG_LEVEL" description:"Set log level"`
	Logger   core.Logger
}

var jobNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Execute runs the interactive manifest wizard.
func (c *InitCommand) Execute(_ []string) error {
	if c.Logger == nil {
		c.Logger = core.NewLogrusAdapter(nil)
	}
	if c.LogLevel != "" {
		if l, ok := c.Logger.(*core.LogrusAdapter); ok {
			level, err := logrusLevel(c.LogLevel)
			if err != nil {
				c.Logger.Warningf("failed to apply log level (using default): %v", err)
			} else {
				l.SetLevel(level)
			}
		}
	}

	c.Logger.Noticef("Welcome to the quartzcore manifest wizard.")
	c.Logger.Noticef("This will help you create your first job manifest.")

	if _, err := os.Stat(c.Output); err == nil {
		if !c.confirmOverwrite() {
			c.Logger.Noticef("Setup canceled")
			return nil
		}
	}

	manifest := &config.Manifest{}

	if err := c.promptJobs(manifest); err != nil {
		return fmt.Errorf("gather job configuration: %w", err)
	}

	if err := c.saveManifest(manifest); err != nil {
		return fmt.Errorf("save manifest: %w", err)
	}

	c.Logger.Noticef("Manifest saved to: %s", c.Output)

	if err := c.postCreationActions(); err != nil {
		c.Logger.Warningf("post-creation action failed: %v", err)
	}

	c.printNextSteps()
	return nil
}

func (c *InitCommand) confirmOverwrite() bool {
	prompt := promptui.Prompt{
		Label:     fmt.Sprintf("File %s already exists. Overwrite", c.Output),
		IsConfirm: true,
		Default:   "n",
	}
	_, err := prompt.Run()
	return err == nil
}

func (c *InitCommand) promptJobs(manifest *config.Manifest) error {
	c.Logger.Noticef("=== Job Configuration ===")

	for {
		jobTypePrompt := promptui.Select{
			Label: "Trigger type",
			Items: []string{"cron (recurring schedule)", "simple (fixed interval)", "Skip - finish setup"},
		}
		_, selection, err := jobTypePrompt.Run()
		if err != nil {
			return err //nolint:wrapcheck // promptui errors are user interaction failures
		}
		if strings.HasPrefix(selection, "Skip") {
			if len(manifest.Jobs) == 0 {
				c.Logger.Warningf("no jobs configured; the manifest will schedule nothing")
			}
			break
		}

		var job config.JobManifest
		if strings.HasPrefix(selection, "cron") {
			job, err = c.promptCronJob()
		} else {
			job, err = c.promptSimpleJob()
		}
		if err != nil {
			return err
		}
		manifest.Jobs = append(manifest.Jobs, job)
		c.Logger.Noticef("added job: %s", job.Name)

		addMore := promptui.Prompt{Label: "Add another job", IsConfirm: true, Default: "n"}
		if _, err := addMore.Run(); err != nil {
			break
		}
	}

	return nil
}

func (c *InitCommand) promptJobName() (string, error) {
	prompt := promptui.Prompt{
		Label: "Job name (alphanumeric, hyphens, underscores)",
		Validate: func(input string) error {
			if input == "" {
				return ErrJobNameEmpty
			}
			if !jobNamePattern.MatchString(input) {
				return ErrJobNameInvalid
			}
			return nil
		},
	}
	return prompt.Run() //nolint:wrapcheck // promptui errors are user interaction failures
}

func (c *InitCommand) promptCommand() (string, error) {
	prompt := promptui.Prompt{
		Label: "Shell command to run",
		Validate: func(input string) error {
			if input == "" {
				return ErrCommandEmpty
			}
			return nil
		},
	}
	return prompt.Run() //nolint:wrapcheck // promptui errors are user interaction failures
}

func (c *InitCommand) promptCronJob() (config.JobManifest, error) {
	name, err := c.promptJobName()
	if err != nil {
		return config.JobManifest{}, err
	}

	schedulePrompt := promptui.Prompt{
		Label:   "Cron expression (Quartz-style, 6 or 7 fields)",
		Default: "0 0 * * * ?",
		Validate: func(input string) error {
			if input == "" {
				return ErrScheduleEmpty
			}
			if _, err := core.ParseCronExpression(input); err != nil {
				return fmt.Errorf("invalid cron expression: %w", err)
			}
			return nil
		},
	}
	expr, err := schedulePrompt.Run()
	if err != nil {
		return config.JobManifest{}, err //nolint:wrapcheck // promptui errors are user interaction failures
	}

	command, err := c.promptCommand()
	if err != nil {
		return config.JobManifest{}, err
	}

	return config.JobManifest{
		Name:  name,
		Class: "shell",
		Data:  map[string]any{"command": command},
		Triggers: []config.TriggerManifest{{
			Name: name + "-trigger",
			Cron: &config.CronTriggerManifest{Expression: expr},
		}},
	}, nil
}

func (c *InitCommand) promptSimpleJob() (config.JobManifest, error) {
	name, err := c.promptJobName()
	if err != nil {
		return config.JobManifest{}, err
	}

	intervalPrompt := promptui.Prompt{
		Label:   "Repeat interval (Go duration syntax, e.g. 30s, 5m, 1h)",
		Default: "1h",
	}
	intervalStr, err := intervalPrompt.Run()
	if err != nil {
		return config.JobManifest{}, err //nolint:wrapcheck // promptui errors are user interaction failures
	}
	interval, err := time.ParseDuration(intervalStr)
	if err != nil {
		return config.JobManifest{}, fmt.Errorf("invalid interval %q: %w", intervalStr, err)
	}

	command, err := c.promptCommand()
	if err != nil {
		return config.JobManifest{}, err
	}

	return config.JobManifest{
		Name:  name,
		Class: "shell",
		Data:  map[string]any{"command": command},
		Triggers: []config.TriggerManifest{{
			Name:   name + "-trigger",
			Simple: &config.SimpleTriggerManifest{Interval: &interval, Repeat: -1},
		}},
	}, nil
}

func (c *InitCommand) saveManifest(manifest *config.Manifest) error {
	dir := filepath.Dir(c.Output)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}

	raw, err := yaml.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(c.Output, raw, 0o600); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

func (c *InitCommand) postCreationActions() error {
	validatePrompt := promptui.Prompt{Label: "Validate manifest now", IsConfirm: true, Default: "Y"}
	if _, err := validatePrompt.Run(); err != nil {
		return nil //nolint:nilerr // declining validation is normal flow
	}

	if _, err := config.Load(c.Output); err != nil {
		c.Logger.Errorf("manifest validation failed: %v", err)
		return err
	}
	c.Logger.Noticef("manifest is valid")

	showPrompt := promptui.Prompt{Label: "Show generated manifest", IsConfirm: true, Default: "n"}
	if _, err := showPrompt.Run(); err == nil {
		content, _ := os.ReadFile(c.Output)
		c.Logger.Noticef("\n%s", string(content))
	}

	return nil
}

func (c *InitCommand) printNextSteps() {
	c.Logger.Noticef("Setup complete. Next steps:")
	c.Logger.Noticef("  -> Review manifest: cat %s", c.Output)
	c.Logger.Noticef("  -> Start the daemon: quartzcored daemon --manifest=%s", c.Output)
}
