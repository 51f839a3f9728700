package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NotNil(t, cfg)
	assert.False(t, cfg.Quiet)
	assert.False(t, cfg.Verbose)
	assert.Equal(t, "runtime-basic", cfg.Defaults.Profile)
	assert.Equal(t, 256, cfg.Defaults.BufferSizeMB)
	assert.Empty(t, cfg.Defaults.Duration)
}

func TestLoad(t *testing.T) {
	t.Run("returns defaults when no config file exists", func(t *testing.T) {
		tmpDir := t.TempDir()
		origDir, _ := os.Getwd()
		os.Chdir(tmpDir)
		defer os.Chdir(origDir)

		cfg, err := Load()
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "runtime-basic", cfg.Defaults.Profile)
		assert.Equal(t, 256, cfg.Defaults.BufferSizeMB)
	})
}

func TestLoadFromFile(t *testing.T) {
	t.Run("returns error for non-existent file", func(t *testing.T) {
		cfg, err := LoadFromFile("/nonexistent/path/config.yaml")
		assert.Error(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "bad.yaml")
		err := os.WriteFile(configPath, []byte("invalid: yaml: content: ["), 0644)
		require.NoError(t, err)

		cfg, err := LoadFromFile(configPath)
		assert.Error(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("parses all config fields", func(t *testing.T) {
		tmpDir := t.TempDir()
		configContent := `
quiet: true
verbose: true
defaults:
  profile: gc-verbose
  buffer_size_mb: 64
  duration: "00:00:05:00"
  manifests:
    - /etc/evtap/custom.json
  socket_dir: /run/evtap
`
		configPath := filepath.Join(tmpDir, "evtap.yaml")
		err := os.WriteFile(configPath, []byte(configContent), 0644)
		require.NoError(t, err)

		cfg, err := LoadFromFile(configPath)
		require.NoError(t, err)

		assert.True(t, cfg.Quiet)
		assert.True(t, cfg.Verbose)
		assert.Equal(t, "gc-verbose", cfg.Defaults.Profile)
		assert.Equal(t, 64, cfg.Defaults.BufferSizeMB)
		assert.Equal(t, "00:00:05:00", cfg.Defaults.Duration)
		assert.Contains(t, cfg.Defaults.Manifests, "/etc/evtap/custom.json")
		assert.Equal(t, "/run/evtap", cfg.Defaults.SocketDir)
	})
}

func TestConfigEnvironmentVariables(t *testing.T) {
	t.Setenv("EVTAP_PROFILE", "cpu-sampling")
	t.Setenv("EVTAP_QUIET", "true")

	tmpDir := t.TempDir()
	origDir, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(origDir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "cpu-sampling", cfg.Defaults.Profile)
	assert.True(t, cfg.Quiet)
}
