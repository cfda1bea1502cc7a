package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inTempDir runs the test from an empty directory so no stray .env is read.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	inTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "roster.db", cfg.DBPath)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 28, cfg.CycleLength)
	assert.Equal(t, 14, cfg.BufferDays)
	assert.Equal(t, 30*time.Second, cfg.RefreshInterval)
	assert.Equal(t, "2024-01-01", cfg.CycleOrigin.String())
	assert.True(t, cfg.Preload)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	// GIVEN: a .env file and one variable already in the environment
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("ROSTER_PORT=9090\nROSTER_BUFFER_DAYS=7\n"), 0o600))
	t.Setenv("ROSTER_PORT", "7070")
	t.Setenv("ROSTER_REFRESH_INTERVAL", "0s")
	// restored to unset after the test; the file fills it meanwhile
	t.Setenv("ROSTER_BUFFER_DAYS", "")
	os.Unsetenv("ROSTER_BUFFER_DAYS")

	// WHEN
	cfg, err := Load()

	// THEN
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, 7, cfg.BufferDays)
	assert.Zero(t, cfg.RefreshInterval)
}

func TestLoad_Invalid(t *testing.T) {
	inTempDir(t)

	t.Setenv("ROSTER_CYCLE_ORIGIN", "01/01/2024")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("ROSTER_CYCLE_ORIGIN", "2024-01-01")
	t.Setenv("ROSTER_CYCLE_LENGTH", "0")
	_, err = Load()
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	cfg := &Config{LogLevel: "debug"}
	assert.Equal(t, logrus.DebugLevel, cfg.NewLogger().GetLevel())

	cfg.LogLevel = "loud"
	assert.Equal(t, logrus.InfoLevel, cfg.NewLogger().GetLevel())
}
