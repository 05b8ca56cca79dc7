package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	for _, tc := range []struct {
		level string
		json  bool
		want  zapcore.Level
	}{
		{"debug", false, zapcore.DebugLevel},
		{"info", true, zapcore.InfoLevel},
		{"warn", true, zapcore.WarnLevel},
		{"error", false, zapcore.ErrorLevel},
	} {
		l, err := New(tc.level, tc.json)
		require.NoError(t, err, tc.level)
		assert.True(t, l.Core().Enabled(tc.want))
		assert.False(t, l.Core().Enabled(tc.want-1), tc.level)
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("loud", false)
	assert.Error(t, err)
}
