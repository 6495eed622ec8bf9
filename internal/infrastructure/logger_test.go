package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bankflow/internal/config"
)

func initTestLogger(t *testing.T, cfg config.LoggingConfig) *slog.Logger {
	t.Helper()

	ResetLoggerForTesting()
	t.Cleanup(ResetLoggerForTesting)

	logger, err := InitializeLogger(cfg)
	require.NoError(t, err)
	return logger
}

func readLogEntries(t *testing.T, path string) []map[string]interface{} {
	t.Helper()

	require.NoError(t, CloseLogFile())
	content, err := os.ReadFile(path)
	require.NoError(t, err)

	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(string(content)), "\n") {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), "log line is not JSON: %s", line)
		entries = append(entries, entry)
	}
	return entries
}

func TestInitializeLogger(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "test.log")
	logger := initTestLogger(t, config.LoggingConfig{
		Level:    "info",
		Format:   "json",
		Output:   "both",
		FilePath: logFile,
	})

	logger.Info("test message", "key", "value")

	entries := readLogEntries(t, logFile)
	require.Len(t, entries, 1)
	assert.Equal(t, "test message", entries[0]["msg"])
	assert.Equal(t, "value", entries[0]["key"])
	assert.Equal(t, "INFO", entries[0]["level"])
}

func TestTraceIDInjection(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "test.log")
	initTestLogger(t, config.LoggingConfig{
		Level:    "debug",
		Format:   "json",
		Output:   "both",
		FilePath: logFile,
	})

	ctx := WithTraceID(context.Background(), "test-trace-123")
	LoggerWithContext(ctx).InfoContext(ctx, "test with trace")

	entries := readLogEntries(t, logFile)
	last := entries[len(entries)-1]
	assert.Equal(t, "test-trace-123", last["trace_id"])
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		level    string
		expected string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"error", "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logFile := filepath.Join(t.TempDir(), "test.log")
			logger := initTestLogger(t, config.LoggingConfig{
				Level:    tt.level,
				Format:   "json",
				Output:   "both",
				FilePath: logFile,
			})

			switch tt.level {
			case "debug":
				logger.Debug("level check")
			case "info":
				logger.Info("level check")
			case "warn":
				logger.Warn("level check")
			case "error":
				logger.Error("level check")
			}

			entries := readLogEntries(t, logFile)
			require.Len(t, entries, 1)
			assert.Equal(t, tt.expected, entries[0]["level"])
		})
	}
}

func TestContextHelpers(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.FilePath = filepath.Join(t.TempDir(), "test.log")
	initTestLogger(t, cfg.Logging)

	ctx := ContextWithTraceID(context.Background())
	traceID := GetTraceID(ctx)
	require.NotEmpty(t, traceID)

	// EnsureTraceID keeps an existing trace ID.
	assert.Equal(t, traceID, GetTraceID(EnsureTraceID(ctx)))

	// And generates one when missing.
	assert.NotEmpty(t, GetTraceID(EnsureTraceID(context.Background())))
}

func TestLoggerHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	decode := func() map[string]interface{} {
		t.Helper()
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		return entry
	}

	WithComponent(logger, "test-component").Info("component test")
	assert.Equal(t, "test-component", decode()["component"])

	buf.Reset()
	WithError(logger, os.ErrNotExist).Info("error test")
	assert.Contains(t, decode()["error"], "file does not exist")

	buf.Reset()
	WithFields(logger, map[string]interface{}{
		"user_id": "123",
		"action":  "login",
	}).Info("fields test")
	entry := decode()
	assert.Equal(t, "123", entry["user_id"])
	assert.Equal(t, "login", entry["action"])
}
