package util

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypedEnv(t *testing.T) {
	t.Setenv("TT_INT", "42")
	t.Setenv("TT_BOOL", "true")
	t.Setenv("TT_FLOAT", "0.75")
	t.Setenv("TT_DURATION", "90s")
	t.Setenv("TT_SECONDS", "15")
	t.Setenv("TT_BAD", "abc")

	assert.Equal(t, int64(42), GetIntEnv("TT_INT"))
	assert.True(t, GetBoolEnv("TT_BOOL"))
	assert.Equal(t, 0.75, GetFloatEnvOr("TT_FLOAT", 0))
	assert.Equal(t, 90*time.Second, GetDurationEnvOr("TT_DURATION", 0))
	assert.Equal(t, 15*time.Second, GetDurationEnvOr("TT_SECONDS", 0))
	assert.Equal(t, int64(7), GetIntEnvOr("TT_BAD", 7))
	assert.Equal(t, time.Minute, GetDurationEnvOr("TT_MISSING", time.Minute))
	assert.Equal(t, "fallback", GetEnvOr("TT_MISSING", "fallback"))
}

func TestLoadEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.test"), []byte("TT_FROM_FILE=file\nTT_PRESET=file\n"), 0o600))
	t.Setenv("TT_PRESET", "process")
	t.Setenv("TT_FROM_FILE", "")
	require.NoError(t, os.Unsetenv("TT_FROM_FILE"))

	require.NoError(t, LoadEnv("test"))
	assert.Equal(t, "file", GetEnv("TT_FROM_FILE"))
	assert.Equal(t, "process", GetEnv("TT_PRESET"))
}

func TestLoadEnvMissingFiles(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	assert.Error(t, LoadEnv("nowhere"))
}
