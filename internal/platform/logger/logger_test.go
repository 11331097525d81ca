package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharos-audit/pharos/internal/config"
)

func TestSetup(t *testing.T) {
	logger := Setup(config.ServerConfig{Port: 8080, LogLevel: "info"})
	require.NotNil(t, logger)
}

func TestNew_EmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info")

	logger.Info("batch finished", "total", 5, "failed", 1)

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record), "log output should be valid JSON")
	assert.Equal(t, "batch finished", record["msg"])
	assert.Equal(t, float64(5), record["total"])
	assert.Equal(t, float64(1), record["failed"])
	assert.Equal(t, "INFO", record["level"])
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn")

	logger.Debug("too quiet")
	logger.Info("still too quiet")
	assert.Zero(t, buf.Len(), "records below the configured level should be dropped")

	logger.Warn("loud enough")
	assert.NotZero(t, buf.Len())
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "verbose")

	logger.Debug("dropped at info level")
	assert.Zero(t, buf.Len())

	logger.Info("visible at info level")
	assert.NotZero(t, buf.Len())
}

func TestNew_FatalMapsToError(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "fatal")

	logger.Warn("dropped")
	assert.Zero(t, buf.Len())

	logger.Error("kept")
	assert.NotZero(t, buf.Len())
}
