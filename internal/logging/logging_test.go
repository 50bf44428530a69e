package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"venue-booking-backend/config"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		raw  string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{" WARN ", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			assert.Equal(t, tc.want, parseLevel(tc.raw))
		})
	}
}

func TestNew(t *testing.T) {
	for _, asJSON := range []bool{false, true} {
		log, err := New(config.LogConfig{Level: "warn", JSON: asJSON})
		require.NoError(t, err)
		assert.False(t, log.Desugar().Core().Enabled(zapcore.InfoLevel))
		assert.True(t, log.Desugar().Core().Enabled(zapcore.WarnLevel))
	}
}
