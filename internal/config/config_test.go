package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useTempHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(homeEnv, dir)
	t.Setenv("TASKSYNC_SERVER_URL", "")
	return dir
}

func TestLoad_DefaultsWhenMissing(t *testing.T) {
	dir := useTempHome(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "tasks.db"), cfg.DBPath)
	assert.Equal(t, "http://localhost:3000", cfg.ServerURL)
	assert.Equal(t, 5*time.Second, cfg.Sync.DebounceDelay)
	assert.Equal(t, 3, cfg.Sync.MaxRetries)
	assert.True(t, cfg.ConfirmDelete)
}

func TestSaveAndLoad(t *testing.T) {
	useTempHome(t)

	cfg := DefaultConfig()
	cfg.ServerURL = "https://tasks.example.com"
	cfg.Sync.PollInterval = 2 * time.Minute
	cfg.ConfirmDelete = false
	require.NoError(t, cfg.Save())

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://tasks.example.com", loaded.ServerURL)
	assert.Equal(t, 2*time.Minute, loaded.Sync.PollInterval)
	assert.False(t, loaded.ConfirmDelete)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	dir := useTempHome(t)

	yamlData := "server_url: http://10.0.2.2:3000\nsync:\n  debounce_delay: 250ms\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFile), []byte(yamlData), 0644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.2.2:3000", cfg.ServerURL)
	assert.Equal(t, 250*time.Millisecond, cfg.Sync.DebounceDelay)
	assert.Equal(t, 500*time.Millisecond, cfg.Sync.OnlineDelay)
}

func TestLoad_EnvOverridesServerURL(t *testing.T) {
	useTempHome(t)
	t.Setenv("TASKSYNC_SERVER_URL", "http://env:1")

	cfg := DefaultConfig()
	cfg.ServerURL = "http://file:2"
	require.NoError(t, cfg.Save())

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://env:1", loaded.ServerURL)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := useTempHome(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFile), []byte("sync: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
}
