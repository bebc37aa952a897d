package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 17, cfg.Tables.InitialCount)
	assert.Equal(t, "windows-1253", cfg.Printer.Codepage)
	assert.False(t, cfg.Feed.Enabled)
}

func TestLoadConfigFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	content := `{
  "storage": {"driver": "postgres", "host": "db.local"},
  "printer": {"settle_delay_ms": 250},
  "feed": {"enabled": true, "port": 7000}
}`
	require.NoError(t, os.WriteFile(GetConfigPath(dir), []byte(content), 0600))
	t.Setenv("EORDERS_FEED_PORT", "9001")
	t.Setenv("EORDERS_TABLES_INITIAL_COUNT", "12")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, "db.local", cfg.Storage.Host)
	assert.Equal(t, 5432, cfg.Storage.Port)
	assert.Equal(t, 250, cfg.Printer.SettleDelayMs)
	assert.Equal(t, 5000, cfg.Printer.TimeoutMs)
	assert.True(t, cfg.Feed.Enabled)
	assert.Equal(t, 9001, cfg.Feed.Port)
	assert.Equal(t, 12, cfg.Tables.InitialCount)
}

func TestLoadConfigDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("EORDERS_LOG_LEVEL=debug\n"), 0600))
	t.Cleanup(func() { os.Unsetenv("EORDERS_LOG_LEVEL") })

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfigInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(GetConfigPath(dir), []byte("{not json"), 0600))

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

func TestSaveConfigEncryptsPassword(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Storage.Password = "hunter2"

	require.NoError(t, SaveConfig(dir, cfg))
	assert.Equal(t, "hunter2", cfg.Storage.Password)

	raw, err := os.ReadFile(GetConfigPath(dir))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "hunter2")

	loaded, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", loaded.Storage.Password)
}

func TestMarkSetupComplete(t *testing.T) {
	dir := t.TempDir()
	exists, err := ConfigExists(dir)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = CreateDefaultConfig(dir)
	require.NoError(t, err)
	require.NoError(t, MarkSetupComplete(dir))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.False(t, cfg.FirstRun)
}

func TestGetDataDirOverride(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	t.Setenv("EORDERS_DATA_DIR", dir)

	got, err := GetDataDir()
	require.NoError(t, err)
	assert.Equal(t, dir, got)
	assert.DirExists(t, dir)
}

func TestResolvePath(t *testing.T) {
	assert.Equal(t, filepath.Join("/data", "eorders.db"), ResolvePath("/data", "eorders.db"))
	assert.Equal(t, "/abs/x.db", ResolvePath("/data", "/abs/x.db"))
	assert.Equal(t, "", ResolvePath("/data", ""))
}
