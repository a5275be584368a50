package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		level string
		write func(*Logger)
		want  string
	}{
		{"debug", func(l *Logger) { l.Debug("feedback listed", "count", 3) }, "DEBUG"},
		{"info", func(l *Logger) { l.Info("feedback listed", "count", 3) }, "INFO"},
		{"warn", func(l *Logger) { l.Warn("feedback listed", "count", 3) }, "WARN"},
		{"error", func(l *Logger) { l.Error("feedback listed", "count", 3) }, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			tt.write(New(&buf, tt.level))

			entry := decodeEntry(t, &buf)
			assert.Equal(t, tt.want, entry["level"])
			assert.Equal(t, "feedback listed", entry["msg"])
			assert.EqualValues(t, 3, entry["count"])
			assert.NotEmpty(t, entry["time"])
		})
	}
}

func TestLogger_Duration(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "info").Info("request completed", "duration", 1500*time.Millisecond)

	assert.Equal(t, "1.5s", decodeEntry(t, &buf)["duration"])
}

func TestLogger_Zap(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "info").Zap().Info("direct")

	assert.Equal(t, "direct", decodeEntry(t, &buf)["msg"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		logFunc   func(*Logger)
		shouldLog bool
	}{
		{"debug logs at debug level", "debug", func(l *Logger) { l.Debug("msg") }, true},
		{"info logs at debug level", "debug", func(l *Logger) { l.Info("msg") }, true},
		{"debug skipped at info level", "info", func(l *Logger) { l.Debug("msg") }, false},
		{"info logs at info level", "info", func(l *Logger) { l.Info("msg") }, true},
		{"warn logs at info level", "info", func(l *Logger) { l.Warn("msg") }, true},
		{"info skipped at warn level", "warn", func(l *Logger) { l.Info("msg") }, false},
		{"error logs at error level", "error", func(l *Logger) { l.Error("msg") }, true},
		{"warn skipped at error level", "error", func(l *Logger) { l.Warn("msg") }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(&buf, tt.level)
			tt.logFunc(log)

			if tt.shouldLog {
				assert.NotEmpty(t, buf.String(), "expected log output")
			} else {
				assert.Empty(t, buf.String(), "expected no log output")
			}
		})
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info")

	childLog := log.With("service", "feedbackhub", "version", "1.0")
	childLog.Info("request handled")

	var entry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &entry)
	require.NoError(t, err)

	assert.Equal(t, "feedbackhub", entry["service"])
	assert.Equal(t, "1.0", entry["version"])
}

func TestLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info")

	log.Info("json test", "nested", map[string]string{"foo": "bar"})

	output := buf.String()
	assert.True(t, strings.HasPrefix(output, "{"))
	assert.True(t, strings.HasSuffix(strings.TrimSpace(output), "}"))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"INFO", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"ERROR", LevelError},
		{"invalid", LevelInfo}, // default to info
		{"", LevelInfo},        // default to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(999), "INFO"}, // invalid level defaults to INFO
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.level.String())
	}
}

func TestNew_NilOutput(t *testing.T) {
	assert.NotNil(t, New(nil, "info"))
}

func TestLogger_With_NonStringKey(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info")

	childLog := log.With(123, "value", "validkey", "validvalue")
	childLog.Info("test")

	var entry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &entry)
	require.NoError(t, err)

	_, hasIntKey := entry["123"]
	assert.False(t, hasIntKey)

	assert.Equal(t, "validvalue", entry["validkey"])
}

func TestLogger_With_CopiesExistingFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info")

	child1 := log.With("service", "feedbackhub")

	child2 := child1.With("request_id", "abc123")
	child2.Info("test")

	var entry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &entry)
	require.NoError(t, err)

	assert.Equal(t, "feedbackhub", entry["service"])
	assert.Equal(t, "abc123", entry["request_id"])
}

func TestLogger_Log_NonStringKeyval(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info")

	log.Info("message", 42, "skipme", "good", "value")

	var entry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &entry)
	require.NoError(t, err)

	assert.Equal(t, "value", entry["good"])
}

func TestLogger_ErrorValue(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info")

	log.Error("request failed", "error", errors.New("boom"))

	var entry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &entry)
	require.NoError(t, err)

	assert.Equal(t, "boom", entry["error"])
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Info("discarded", "key", "value")
	assert.NoError(t, log.With("a", 1).Sync())
}
