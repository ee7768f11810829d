package cli

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogrusLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected logrus.Level
		wantErr  bool
	}{
		{name: "debug", input: "debug", expected: logrus.DebugLevel},
		{name: "info", input: "info", expected: logrus.InfoLevel},
		{name: "warn", input: "warn", expected: logrus.WarnLevel},
		{name: "warning", input: "warning", expected: logrus.WarnLevel},
		{name: "error", input: "error", expected: logrus.ErrorLevel},
		{name: "invalid", input: "bogus", wantErr: true},
		{name: "notice maps to info", input: "notice", expected: logrus.InfoLevel},
		{name: "trace", input: "trace", expected: logrus.TraceLevel},
		{name: "fatal maps to fatal", input: "fatal", expected: logrus.FatalLevel},
		{name: "critical maps to fatal", input: "critical", expected: logrus.FatalLevel},
		{name: "panic", input: "panic", expected: logrus.PanicLevel},
		{name: "case insensitive DEBUG", input: "DEBUG", expected: logrus.DebugLevel},
		{name: "typo in debug", input: "degub", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			level, err := logrusLevel(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, level)
		})
	}
}
