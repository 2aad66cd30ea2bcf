package config_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/addrsync/internal/config"
)

func readLogFile(t *testing.T, path string) []byte {
	t.Helper()
	// #nosec G304 -- test file path
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return content
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected config.LogLevel
	}{
		{"off", config.LogLevelOff},
		{"none", config.LogLevelOff},
		{"error", config.LogLevelError},
		{"ERROR", config.LogLevelError},
		{" debug ", config.LogLevelDebug},
		{"verbose", config.LogLevelError},
		{"", config.LogLevelError},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, config.ParseLogLevel(tc.input))
		})
	}
}

func TestLogLevel_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "off", config.LogLevelOff.String())
	assert.Equal(t, "error", config.LogLevelError.String())
	assert.Equal(t, "debug", config.LogLevelDebug.String())
	assert.Equal(t, "error", config.LogLevel(42).String())
}

func TestNewLogger_LevelOff(t *testing.T) {
	t.Parallel()
	logPath := filepath.Join(t.TempDir(), "test.log")

	logger, err := config.NewLogger(config.LogLevelOff, logPath)
	require.NoError(t, err)
	logger.Error("dropped")
	require.NoError(t, logger.Close())

	_, err = os.Stat(logPath)
	assert.True(t, os.IsNotExist(err))
}

func TestNewLogger_EmptyPath(t *testing.T) {
	t.Parallel()
	logger, err := config.NewLogger(config.LogLevelDebug, "")
	require.NoError(t, err)
	assert.Equal(t, config.LogLevelDebug, logger.Level())
	assert.Empty(t, logger.FilePath())
	logger.Debug("nowhere")
}

func TestNewLogger_WritesJSONLines(t *testing.T) {
	t.Parallel()
	logPath := filepath.Join(t.TempDir(), "subdir", "test.log")

	logger, err := config.NewLogger(config.LogLevelDebug, logPath)
	require.NoError(t, err)
	logger.Debug("scanning %d addresses", 10)
	logger.Error("remote failed")
	require.NoError(t, logger.Close())

	lines := strings.Split(strings.TrimSpace(string(readLogFile(t, logPath))), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "debug", first["level"])
	assert.Equal(t, "scanning 10 addresses", first["message"])
	assert.Contains(t, first, "time")

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "error", second["level"])
}

func TestNewLogger_InvalidPath(t *testing.T) {
	t.Parallel()
	_, err := config.NewLogger(config.LogLevelDebug, "/proc/nonexistent/test.log")
	assert.Error(t, err)
}

func TestNullLogger(t *testing.T) {
	t.Parallel()
	logger := config.NullLogger()
	assert.Equal(t, config.LogLevelOff, logger.Level())

	logger.Debug("test debug")
	logger.Error("test error")
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())
}

func TestLogger_LevelFiltering(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := config.NewConsoleLogger(&buf, config.LogLevelError, true)

	logger.Debug("hidden")
	logger.Error("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	logger.SetLevel(config.LogLevelDebug)
	assert.Equal(t, config.LogLevelDebug, logger.Level())
	logger.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")

	buf.Reset()
	logger.SetLevel(config.LogLevelOff)
	logger.Error("silenced")
	assert.Empty(t, buf.String())
}

func TestLogger_WithComponent(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := config.NewConsoleLogger(&buf, config.LogLevelDebug, true).With("ledger")

	logger.Debug("batch done")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "ledger", entry["component"])
	assert.Equal(t, "batch done", entry["message"])
	require.NoError(t, logger.Close())
}

func TestNewConsoleLogger_Text(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := config.NewConsoleLogger(&buf, config.LogLevelDebug, false)

	logger.Error("plain %s", "text")
	assert.Contains(t, buf.String(), "plain text")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestLogger_Writer(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := config.NewConsoleLogger(&buf, config.LogLevelError, true)

	n, err := logger.Writer(config.LogLevelError).Write([]byte("from writer\n"))
	require.NoError(t, err)
	assert.Equal(t, len("from writer\n"), n)
	assert.Contains(t, buf.String(), "from writer")

	buf.Reset()
	_, err = logger.Writer(config.LogLevelDebug).Write([]byte("filtered"))
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}
