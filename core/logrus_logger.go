package core

import "github.com/sirupsen/logrus"

// Logger is the minimal levelled-logging contract the scheduler core
// depends on. It deliberately mirrors logrus's level vocabulary so
// LogrusAdapter is a near-direct pass-through; callers that don't want
// logrus can satisfy it with any other backend.
type Logger interface {
	Criticalf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Noticef(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// LogrusAdapter wraps a logrus.Logger to satisfy the Logger interface.
type LogrusAdapter struct {
	*logrus.Logger
}

// NewLogrusAdapter wraps logger, or a new logrus.Logger with default
// settings if logger is nil.
func NewLogrusAdapter(logger *logrus.Logger) *LogrusAdapter {
	if logger == nil {
		logger = logrus.New()
	}
	return &LogrusAdapter{Logger: logger}
}

var _ Logger = (*LogrusAdapter)(nil)

func (l *LogrusAdapter) Criticalf(format string, args ...interface{}) {
	l.Logger.Logf(logrus.FatalLevel, format, args...)
}

func (l *LogrusAdapter) Debugf(format string, args ...interface{}) {
	l.Logger.Debugf(format, args...)
}

func (l *LogrusAdapter) Errorf(format string, args ...interface{}) {
	l.Logger.Errorf(format, args...)
}

func (l *LogrusAdapter) Noticef(format string, args ...interface{}) {
	l.Logger.Infof(format, args...)
}

func (l *LogrusAdapter) Warningf(format string, args ...interface{}) {
	l.Logger.Warnf(format, args...)
}
