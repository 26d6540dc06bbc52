package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmbeddedDefaults(t *testing.T) {
	t.Setenv(EnvConfigDir, t.TempDir())
	t.Setenv(EnvBackend, "")
	t.Setenv(EnvLogLevel, "")

	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendAuto, s.Backend)
	assert.Equal(t, WorkerModeThread, s.WorkerMode)
	assert.Equal(t, uint(3), s.RetryAttempts)
	assert.Equal(t, int64(64), s.ReactorThreads)

	ttl, err := s.TTL()
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, ttl)
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)
	t.Setenv(EnvBackend, "")
	t.Setenv(EnvLogLevel, "")

	yaml := "backend: parallel\ncache_ttl: 0\nworkers: 2\nworker_mode: process\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.yaml"), []byte(yaml), 0o600))

	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendParallel, s.Backend)
	assert.Equal(t, 2, s.Workers)
	assert.Equal(t, WorkerModeProcess, s.WorkerMode)
	ttl, err := s.TTL()
	require.NoError(t, err)
	assert.Zero(t, ttl)

	t.Setenv(EnvBackend, "Blocking")
	t.Setenv(EnvLogLevel, "debug")
	s, err = Load()
	require.NoError(t, err)
	assert.Equal(t, BackendBlocking, s.Backend)
	assert.Equal(t, "debug", s.LogLevel)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown backend", "backend: turbo\n"},
		{"unknown worker mode", "worker_mode: fiber\n"},
		{"bad ttl", "cache_ttl: soon\n"},
		{"not yaml", "backend: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			t.Setenv(EnvConfigDir, dir)
			t.Setenv(EnvBackend, "")
			require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.yaml"), []byte(tt.yaml), 0o600))

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestInitConfigDirAndSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cfg")
	t.Setenv(EnvConfigDir, dir)
	t.Setenv(EnvBackend, "")
	t.Setenv(EnvLogLevel, "")

	require.NoError(t, InitConfigDir())
	assert.FileExists(t, SettingsPath())

	s, err := Load()
	require.NoError(t, err)
	s.Backend = BackendReactor
	s.CacheTTL = "500ms"
	require.NoError(t, Save(s))

	again, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendReactor, again.Backend)
	assert.Equal(t, "500ms", again.CacheTTL)

	// An existing file is left alone.
	require.NoError(t, InitConfigDir())
	again, err = Load()
	require.NoError(t, err)
	assert.Equal(t, BackendReactor, again.Backend)
}

func TestSetupLogging(t *testing.T) {
	defer SetupLogging("off", nil)

	var buf bytes.Buffer
	SetupLogging("info", &buf)
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
	logrus.Info("visible")
	logrus.Debug("hidden")
	assert.Contains(t, buf.String(), "visible")
	assert.NotContains(t, buf.String(), "hidden")

	buf.Reset()
	SetupLogging("off", &buf)
	logrus.Warn("discarded")
	assert.Empty(t, buf.String())

	SetupLogging("verbose", &buf)
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
}
