package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput redirects logger output to a buffer for testing.
// Returns the buffer and a cleanup function restoring the original output.
func captureOutput() (*bytes.Buffer, func()) {
	buf := new(bytes.Buffer)

	mu.Lock()
	originalOutput := output
	originalColor := useColor
	output = buf
	useColor = false // disable colors for easier assertions
	mu.Unlock()

	reconfigure()

	cleanup := func() {
		mu.Lock()
		output = originalOutput
		useColor = originalColor
		mu.Unlock()
		reconfigure()
	}

	return buf, cleanup
}

func TestLevelFiltering(t *testing.T) {
	t.Run("DebugLevelShowsAllMessages", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("DEBUG")
		defer SetLevel("INFO")

		Debug("debug message")
		Info("info message")
		Warn("warn message")
		Error("error message")

		out := buf.String()
		assert.Contains(t, out, "debug message")
		assert.Contains(t, out, "info message")
		assert.Contains(t, out, "warn message")
		assert.Contains(t, out, "error message")
	})

	t.Run("WarnLevelFiltersDebugAndInfo", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("WARN")
		defer SetLevel("INFO")

		Debug("debug message")
		Info("info message")
		Warn("warn message")

		out := buf.String()
		assert.NotContains(t, out, "debug message")
		assert.NotContains(t, out, "info message")
		assert.Contains(t, out, "warn message")
	})
}

func TestSetLevel_WarningAlias(t *testing.T) {
	defer SetLevel("INFO")

	SetLevel("warning")
	assert.Equal(t, LevelWarn, Level(currentLevel.Load()))
}

func TestSetLevel_IgnoresInvalid(t *testing.T) {
	defer SetLevel("INFO")

	SetLevel("INFO")
	SetLevel("verbose")
	assert.Equal(t, LevelInfo, Level(currentLevel.Load()))
}

func TestStructuredFields(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	Info("session opened", KeySessionID, "abc-123", KeyUserID, "alice")

	out := buf.String()
	assert.Contains(t, out, "session_id=abc-123")
	assert.Contains(t, out, "user_id=alice")
}

func TestJSONFormat(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetFormat("json")
	defer SetFormat("text")

	Info("hello", "key", "value")

	line := strings.TrimSpace(buf.String())
	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &record))
	assert.Equal(t, "hello", record["msg"])
	assert.Equal(t, "value", record["key"])
}

func TestColorTextHandler_NoColorOutput(t *testing.T) {
	buf := new(bytes.Buffer)
	h := NewColorTextHandler(buf, nil, false)
	l := slog.New(h)

	l.Info("plain", "k", 1)

	out := buf.String()
	assert.NotContains(t, out, "\033[")
	assert.Contains(t, out, "[INFO] plain k=1")
}

func TestColorTextHandler_ColorOutput(t *testing.T) {
	buf := new(bytes.Buffer)
	h := NewColorTextHandler(buf, nil, true)
	l := slog.New(h)

	l.Error("boom")

	assert.Contains(t, buf.String(), colorRed)
}
