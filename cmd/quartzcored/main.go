package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"

	"github.com/cronforge/quartzcore/cli"
	"github.com/cronforge/quartzcore/core"
)

var (
	version string
	build   string
)

func buildLogger(level string) *core.LogrusAdapter {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	switch strings.ToLower(level) {
	case "trace":
		logger.SetLevel(logrus.TraceLevel)
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "", "info", "notice":
		logger.SetLevel(logrus.InfoLevel)
	case "warning", "warn":
		logger.SetLevel(logrus.WarnLevel)
	case "error", "fatal", "panic", "critical":
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}
	return core.NewLogrusAdapter(logger)
}

func main() {
	var pre struct {
		LogLevel string `long:"log-level"`
	}
	args := os.Args[1:]
	preParser := flags.NewParser(&pre, flags.IgnoreUnknown)
	_, _ = preParser.ParseArgs(args)

	logger := buildLogger(pre.LogLevel)

	parser := flags.NewNamedParser("quartzcored", flags.Default|flags.AllowBoolValues)
	_, _ = parser.AddCommand(
		"daemon",
		"run the scheduler daemon",
		"",
		&cli.DaemonCommand{Logger: logger, LogLevel: pre.LogLevel},
	)
	_, _ = parser.AddCommand(
		"init",
		"creates a job manifest through an interactive wizard",
		"",
		&cli.InitCommand{Logger: logger, LogLevel: pre.LogLevel},
	)

	if _, err := parser.ParseArgs(args); err != nil {
		if flags.WroteHelp(err) {
			return
		}

		var flagErr *flags.Error
		if errors.As(err, &flagErr) {
			parser.WriteHelp(os.Stdout)
			_, _ = fmt.Fprintf(os.Stdout, "\nBuild information\n  commit: %s\n  date: %s\n", version, build)
		}

		logger.Errorf("command failed to execute: %v", err)
		return
	}
}
