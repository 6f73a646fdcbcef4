package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ramonehamilton/deckforge/internal/config"
)

func TestNew_InstallsGlobalLogger(t *testing.T) {
	before := zap.L()

	logger, handle, err := New(config.LogConfig{Level: "warn", Format: "json"})
	require.NoError(t, err)

	assert.Same(t, logger, zap.L())
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	require.NoError(t, handle.SetLevel("info"))
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.Error(t, handle.SetLevel("loud"))

	handle.Close()
	assert.Same(t, before, zap.L(), "globals restored")
}

func TestNew_DebugLevel(t *testing.T) {
	logger, handle, err := New(config.LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	defer handle.Close()

	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_InvalidLevel(t *testing.T) {
	_, _, err := New(config.LogConfig{Level: "chatty"})
	assert.Error(t, err)
}
