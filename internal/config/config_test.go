package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, DefaultBaseURL, cfg.BaseURL)
	require.Equal(t, DefaultModel, cfg.DefaultModel)
	require.True(t, cfg.MemoryEnabled)
	require.True(t, cfg.SecurityScanning)
	require.False(t, cfg.Debug)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "config.json"),
		[]byte(`{"base_url":"http://proxy:9000","default_model":"claude-3-opus-20240229","memory_enabled":false}`),
		0o600,
	))

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, "http://proxy:9000", cfg.BaseURL)
	require.Equal(t, "claude-3-opus-20240229", cfg.DefaultModel)
	require.False(t, cfg.MemoryEnabled)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "config.json"),
		[]byte(`{"base_url":"http://proxy:9000"}`),
		0o600,
	))
	t.Setenv(EnvBaseURL, "http://override:8000")
	t.Setenv(EnvDefaultModel, "gpt-4")
	t.Setenv(EnvDebug, "true")

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, "http://override:8000", cfg.BaseURL)
	require.Equal(t, "gpt-4", cfg.DefaultModel)
	require.True(t, cfg.Debug)
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{nope`), 0o600))

	_, err := Load(dir)
	require.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)

	cfg.DefaultModel = "mistral-7b"
	cfg.MemoryEnabled = false
	require.NoError(t, cfg.Save())

	reloaded, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, "mistral-7b", reloaded.DefaultModel)
	require.False(t, reloaded.MemoryEnabled)
}

func TestPaths(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, dir, cfg.DataDir())
	require.Equal(t, filepath.Join(dir, "waddle.log"), cfg.LogFile())
}
