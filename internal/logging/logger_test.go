package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLoggingConfig(t *testing.T, ws string, cfg loggingConfig) {
	t.Helper()
	dir := filepath.Join(ws, ".ticketflow")
	require.NoError(t, os.MkdirAll(dir, 0755))
	data, err := json.Marshal(configFile{Logging: cfg})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), data, 0644))
}

func resetLogging() {
	loggersMu.Lock()
	for cat, l := range loggers {
		if l.file != nil {
			_ = l.file.Close()
		}
		delete(loggers, cat)
	}
	loggersMu.Unlock()
	configMu.Lock()
	config = loggingConfig{}
	configLoaded = false
	logLevel = LevelInfo
	configMu.Unlock()
	logsDir = ""
	workspace = ""
}

func TestInitializeWithoutConfigIsSilent(t *testing.T) {
	defer resetLogging()
	ws := t.TempDir()

	require.NoError(t, Initialize(ws))
	assert.False(t, IsDebugMode())

	// No logs directory should be created in production mode.
	_, err := os.Stat(filepath.Join(ws, ".ticketflow", "logs"))
	assert.True(t, os.IsNotExist(err))
}

func TestInitializeDebugModeWritesLogs(t *testing.T) {
	defer resetLogging()
	ws := t.TempDir()
	writeLoggingConfig(t, ws, loggingConfig{DebugMode: true, Level: "debug"})

	require.NoError(t, Initialize(ws))
	assert.True(t, IsDebugMode())

	Store("store message %d", 42)
	PipelineDebug("pipeline debug")

	entries, err := os.ReadDir(filepath.Join(ws, ".ticketflow", "logs"))
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestCategoryFiltering(t *testing.T) {
	defer resetLogging()
	ws := t.TempDir()
	writeLoggingConfig(t, ws, loggingConfig{
		DebugMode:  true,
		Level:      "debug",
		Categories: map[string]bool{"store": false, "batch": true},
	})

	require.NoError(t, Initialize(ws))

	assert.False(t, IsCategoryEnabled(CategoryStore))
	assert.True(t, IsCategoryEnabled(CategoryBatch))
	// Unlisted categories default to enabled.
	assert.True(t, IsCategoryEnabled(CategoryDedupe))
}

func TestDisabledCategoryReturnsNoopLogger(t *testing.T) {
	defer resetLogging()
	ws := t.TempDir()
	writeLoggingConfig(t, ws, loggingConfig{
		DebugMode:  true,
		Categories: map[string]bool{"ocr": false},
	})
	require.NoError(t, Initialize(ws))

	l := Get(CategoryOCR)
	require.NotNil(t, l)
	assert.Nil(t, l.logger)
	// Logging through a no-op logger must not panic.
	l.Info("dropped")
	l.Error("dropped too")
}

func TestLevelFiltering(t *testing.T) {
	defer resetLogging()
	ws := t.TempDir()
	writeLoggingConfig(t, ws, loggingConfig{DebugMode: true, Level: "warn"})
	require.NoError(t, Initialize(ws))

	l := Get(CategoryBatch)
	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("visible warn")
	l.Error("visible error")

	date := l.file.Name()
	data, err := os.ReadFile(date)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "visible warn")
	assert.Contains(t, string(data), "visible error")
}

func TestTimerStop(t *testing.T) {
	defer resetLogging()
	ws := t.TempDir()
	writeLoggingConfig(t, ws, loggingConfig{DebugMode: true, Level: "debug"})
	require.NoError(t, Initialize(ws))

	timer := StartTimer(CategoryStore, "TestOp")
	elapsed := timer.Stop()
	assert.GreaterOrEqual(t, elapsed.Nanoseconds(), int64(0))
}
