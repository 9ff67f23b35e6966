// internal/observability/logger_test.go
package observability

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/drover/internal/config"
)

// memSink collects log output in memory for assertions.
type memSink struct {
	lines []byte
}

func (s *memSink) Write(p []byte) (int, error) {
	s.lines = append(s.lines, p...)
	return len(p), nil
}

func (s *memSink) Sync() error { return nil }

func TestInitializeConsoleLoggerWithColors(t *testing.T) {
	ResetForTest()
	sink := &memSink{}

	cfg := config.LoggerConfig{
		Level:       "debug",
		Format:      "console",
		ServiceName: "testservice",
		Colors:      config.ColorConfig{Info: "green"},
	}
	Initialize(cfg, zapcore.Lock(zapcore.AddSync(sink)))
	GetLogger().Info("hello from the test")

	output := string(sink.lines)
	assert.Contains(t, output, "INFO")
	assert.Contains(t, output, "hello from the test")
	assert.Contains(t, output, colorGreen)
	assert.Contains(t, output, colorReset)
	assert.Contains(t, output, "testservice.")
}

func TestInitializeJSONLogger(t *testing.T) {
	ResetForTest()
	sink := &memSink{}

	cfg := config.LoggerConfig{Level: "info", Format: "json", ServiceName: "drover"}
	Initialize(cfg, zapcore.Lock(zapcore.AddSync(sink)))
	GetLogger().Info("structured entry")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(sink.lines, &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "structured entry", entry["msg"])
}

func TestFileSinkWritesJSON(t *testing.T) {
	ResetForTest()
	dir := t.TempDir()
	logPath := filepath.Join(dir, "drover.log")

	cfg := config.LoggerConfig{
		Level:       "info",
		Format:      "console",
		ServiceName: "drover",
		LogFile:     logPath,
		MaxSize:     1,
	}
	Initialize(cfg, zapcore.Lock(zapcore.AddSync(&memSink{})))
	GetLogger().Info("to the file")
	Sync()

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"to the file"`)
}

func TestGetLoggerBeforeInitializeFallsBack(t *testing.T) {
	ResetForTest()
	logger := GetLogger()
	require.NotNil(t, logger)
}

func TestInvalidLevelDefaultsToInfo(t *testing.T) {
	ResetForTest()
	sink := &memSink{}
	cfg := config.LoggerConfig{Level: "nonsense", Format: "json", ServiceName: "drover"}
	Initialize(cfg, zapcore.Lock(zapcore.AddSync(sink)))

	GetLogger().Debug("should be suppressed")
	assert.Empty(t, sink.lines)

	GetLogger().Info("should appear")
	assert.Contains(t, string(sink.lines), "should appear")
}
