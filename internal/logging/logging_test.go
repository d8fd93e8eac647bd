package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level, format string
		enabled       zap.AtomicLevel
		want          bool
	}{
		{"debug", "console", zap.NewAtomicLevelAt(zap.DebugLevel), true},
		{"", "", zap.NewAtomicLevelAt(zap.DebugLevel), false},
		{"WARN", "json", zap.NewAtomicLevelAt(zap.InfoLevel), false},
		{"error", "json", zap.NewAtomicLevelAt(zap.ErrorLevel), true},
	}
	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			log, err := New(tt.level, tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.want, log.Core().Enabled(tt.enabled.Level()))
		})
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	t.Parallel()

	_, err := New("chatty", "console")
	assert.Error(t, err)

	_, err = New("info", "xml")
	assert.Error(t, err)
}
