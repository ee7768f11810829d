package cli

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrInvalidLogLevel indicates an invalid log level string was provided.
var ErrInvalidLogLevel = fmt.Errorf("invalid log level")

// logrusLevel maps a CLI/env log-level string onto logrus's level
// vocabulary, accepting a few syslog-flavored aliases ("notice",
// "critical") alongside the usual ones.
func logrusLevel(level string) (logrus.Level, error) {
	switch strings.ToLower(level) {
	case "trace":
		return logrus.TraceLevel, nil
	case "debug":
		return logrus.DebugLevel, nil
	case "info", "notice":
		return logrus.InfoLevel, nil
	case "warn", "warning":
		return logrus.WarnLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	case "fatal", "critical":
		return logrus.FatalLevel, nil
	case "panic":
		return logrus.PanicLevel, nil
	default:
		return 0, fmt.Errorf("%w: %q (valid levels are trace, debug, info, warn, error, fatal, panic)", ErrInvalidLogLevel, level)
	}
}
