package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/coursenobi/internal/config"
)

func TestNewJSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := New(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)
	defer closeFn()

	logger.Info().Msg("hidden")
	logger.Warn().Str("course", "MATH 2B").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"course":"MATH 2B"`)
	assert.Contains(t, out, `"level":"warn"`)
}

func TestNewConsoleIsPlainOffTerminal(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(config.LoggingConfig{Level: "info", Format: "console"}, &buf)
	require.NoError(t, err)

	logger.Info().Msg("schedule ready")
	out := buf.String()
	assert.Contains(t, out, "schedule ready")
	assert.NotContains(t, out, "\x1b[")
}

func TestNewAppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "coursenobi.log")
	var buf bytes.Buffer
	logger, closeFn, err := New(config.LoggingConfig{Level: "debug", Format: "json", File: path}, &buf)
	require.NoError(t, err)

	logger.Debug().Msg("first")
	require.NoError(t, closeFn())

	logger, closeFn, err = New(config.LoggingConfig{Format: "json", File: path}, &buf)
	require.NoError(t, err)
	logger.Info().Msg("second")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "first")
	assert.Contains(t, lines[1], "second")
}

func TestParseLevelRejectsUnknown(t *testing.T) {
	_, _, err := New(config.LoggingConfig{Level: "loud"}, nil)
	assert.Error(t, err)
}
