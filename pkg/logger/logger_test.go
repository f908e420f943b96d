package logger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetRoutesGlobalCalls(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	Set(zap.New(core))
	t.Cleanup(func() { Set(nil) })

	Debug("hidden")
	Warn("remote voice delete failed", zap.String("voice_ref", "v-1"))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "remote voice delete failed", entry.Message)
	assert.Equal(t, "v-1", entry.ContextMap()["voice_ref"])
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	assert.Error(t, Init(LogConfig{Level: "loud"}, "debug"))
}

func TestInitWithFile(t *testing.T) {
	t.Cleanup(func() { Set(nil) })
	cfg := LogConfig{Level: "debug", Filename: filepath.Join(t.TempDir(), "app.log")}
	require.NoError(t, Init(cfg, "release"))
	Info("started")
	assert.NotNil(t, L())
}
