package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerWritesToConfiguredOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&Config{Level: DebugLevel, Output: &buf})

	l.Info("hello")

	assert.Contains(t, buf.String(), `"message":"hello"`)
	assert.Contains(t, buf.String(), `"level":"info"`)
}

func TestNewLoggerDefaultsMissingFields(t *testing.T) {
	// A partial config leaves Output and TimeFormat unset; logging must
	// still reach a real writer instead of being dropped or panicking.
	l := NewLogger(&Config{Level: InfoLevel})
	require.NotPanics(t, func() { l.Info("partial config") })

	pretty := NewLogger(&Config{Level: InfoLevel, Pretty: true})
	require.NotPanics(t, func() { pretty.Info("partial pretty config") })
}

func TestZLInstallsAsGlobalLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&Config{Level: InfoLevel, Output: &buf})

	zl := l.ZL()
	zl.Info().Msg("via accessor")

	assert.Contains(t, buf.String(), "via accessor")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&Config{Level: WarnLevel, Output: &buf})

	l.Info("filtered")
	l.Warn("kept")

	assert.NotContains(t, buf.String(), "filtered")
	assert.Contains(t, buf.String(), "kept")
}
