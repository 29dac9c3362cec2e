// internal/observability/logger_test.go
package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xkilldash9x/tourguard-cli/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// syncBuffer adapts bytes.Buffer to zapcore.WriteSyncer so tests can inject
// it as the console writer.
type syncBuffer struct {
	bytes.Buffer
}

func (b *syncBuffer) Sync() error { return nil }

// -- Test Cases --

func TestInitialize(t *testing.T) {

	t.Run("should initialize console logger with colors", func(t *testing.T) {
		ResetForTest()
		var buf syncBuffer

		cfg := config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "TestService",
			Colors: config.ColorConfig{
				Info: "green",
			},
		}
		Initialize(cfg, &buf)
		logger := GetLogger()
		logger.Info("This is a test message.")

		output := buf.String()
		assert.Contains(t, output, "INFO", "Output should contain the log level")
		assert.Contains(t, output, "This is a test message.", "Output should contain the message")
		assert.Contains(t, output, colorGreen, "Info level should be colorized green")
		assert.Contains(t, output, colorReset, "Output should contain the reset color code")
		assert.Contains(t, output, "TestService.", "Console lines carry the suffixed service name")
	})

	t.Run("should initialize json logger", func(t *testing.T) {
		ResetForTest()
		var buf syncBuffer

		cfg := config.LoggerConfig{
			Level:       "info",
			Format:      "json",
			ServiceName: "JSONTest",
		}
		Initialize(cfg, &buf)
		logger := GetLogger()
		logger.Warn("This is a JSON message.", zap.String("key", "value"))

		var logEntry map[string]interface{}
		err := json.Unmarshal(buf.Bytes(), &logEntry)
		require.NoError(t, err, "Log output should be valid JSON")

		assert.Equal(t, "WARN", logEntry["level"])
		assert.Equal(t, "JSONTest", logEntry["logger"])
		assert.Equal(t, "This is a JSON message.", logEntry["msg"])
		assert.Equal(t, "value", logEntry["key"])
	})

	t.Run("should respect the configured level", func(t *testing.T) {
		ResetForTest()
		var buf syncBuffer

		Initialize(config.LoggerConfig{Level: "warn", Format: "json"}, &buf)
		logger := GetLogger()
		logger.Info("too quiet")
		logger.Warn("loud enough")

		output := buf.String()
		assert.NotContains(t, output, "too quiet")
		assert.Contains(t, output, "loud enough")
	})

	t.Run("should write to a log file if configured", func(t *testing.T) {
		ResetForTest()
		var buf syncBuffer
		logPath := filepath.Join(t.TempDir(), "tourguard-test.log")

		cfg := config.LoggerConfig{
			Level:   "debug",
			Format:  "json",
			LogFile: logPath,
			MaxSize: 1, // 1 MB
		}
		Initialize(cfg, &buf)
		logger := GetLogger()
		logger.Error("This should go to the file.")

		content, err := os.ReadFile(logPath)
		require.NoError(t, err)
		assert.Contains(t, string(content), "This should go to the file.", "Log file should contain the message")
	})

	t.Run("should only initialize once", func(t *testing.T) {
		ResetForTest()
		var buf syncBuffer

		Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "First"}, &buf)
		logger1 := GetLogger()

		// Second call must be ignored.
		Initialize(config.LoggerConfig{Level: "debug", Format: "json", ServiceName: "Second"}, &buf)
		logger2 := GetLogger()

		assert.Equal(t, logger1, logger2)
		logger2.Info("test")

		assert.True(t, strings.Contains(buf.String(), "First"))
		assert.False(t, strings.Contains(buf.String(), "Second"))
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		ResetForTest()
		var buf syncBuffer

		Initialize(config.LoggerConfig{Level: "shouting", Format: "json"}, &buf)
		logger := GetLogger()
		logger.Debug("hidden")
		logger.Info("visible")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "visible")
	})
}

func TestGetLogger(t *testing.T) {
	t.Run("should return a fallback logger if not initialized", func(t *testing.T) {
		ResetForTest()
		logger := GetLogger()
		require.NotNil(t, logger)
	})

	t.Run("should return the global logger after initialization", func(t *testing.T) {
		ResetForTest()
		var buf syncBuffer
		Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "GlobalTest"}, &buf)

		logger := GetLogger()
		assert.Equal(t, globalLogger.Load(), logger)
	})
}

func TestSyncDoesNotPanic(t *testing.T) {
	ResetForTest()
	var buf syncBuffer
	Initialize(config.LoggerConfig{Level: "info", Format: "json"}, &buf)
	assert.NotPanics(t, Sync)
}

var _ zapcore.WriteSyncer = (*syncBuffer)(nil)
