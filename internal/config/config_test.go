package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 0.05, cfg.Recognition.ExtensionMargin)
	assert.Equal(t, 0.05, cfg.Recognition.SpreadThreshold)
	assert.Equal(t, 1500*time.Millisecond, cfg.Recognition.Cooldown)
	assert.Equal(t, 100*time.Millisecond, cfg.Notify.Timeout)
	assert.Equal(t, 5, cfg.Camera.IdleFPS)
	assert.Equal(t, 15, cfg.Camera.ActiveFPS)
	assert.Equal(t, 1, cfg.Detector.MaxHands)
	require.NoError(t, cfg.Validate())
}

func TestLoad_ExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
recognition:
  cooldown: 800ms
  extension_margin: 0.08
plugins:
  enabled: [speech]
  settings:
    speech:
      voice: Alex
log:
  level: debug
`)
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 800*time.Millisecond, cfg.Recognition.Cooldown)
	assert.Equal(t, 0.08, cfg.Recognition.ExtensionMargin)
	assert.Equal(t, 0.05, cfg.Recognition.SpreadThreshold, "unset keys keep defaults")
	assert.Equal(t, []string{"speech"}, cfg.Plugins.Enabled)
	assert.Equal(t, "Alex", cfg.Plugins.Settings["speech"]["voice"])
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 15, cfg.Camera.ActiveFPS)
	assert.NotContains(t, cfg.Store.Path, "~", "home directory is expanded")
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("recognition:\n  cooldown: 800ms\n"), 0644))

	t.Setenv("MUDRA_RECOGNITION_COOLDOWN", "2s")
	t.Setenv("MUDRA_SERVER_ADDR", "0.0.0.0:9000")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Recognition.Cooldown)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
}

func TestSaveToPath_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Recognition.Cooldown = 1200 * time.Millisecond
	cfg.Plugins.Enabled = []string{"speech", "keyboard"}

	require.NoError(t, cfg.SaveToPath(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1200*time.Millisecond, loaded.Recognition.Cooldown)
	assert.Equal(t, []string{"speech", "keyboard"}, loaded.Plugins.Enabled)
}

func TestApplySettings(t *testing.T) {
	cfg := DefaultConfig()

	err := cfg.ApplySettings(map[string]string{
		KeyExtensionMargin: "0.07",
		KeySpreadThreshold: "0.04",
		KeyCooldown:        "1s",
		"ui.theme":         "dark",
	})
	require.NoError(t, err)

	assert.Equal(t, 0.07, cfg.Recognition.ExtensionMargin)
	assert.Equal(t, 0.04, cfg.Recognition.SpreadThreshold)
	assert.Equal(t, time.Second, cfg.Recognition.Cooldown)

	assert.Error(t, cfg.ApplySettings(map[string]string{KeyCooldown: "soon"}))
	assert.Error(t, cfg.ApplySettings(map[string]string{KeyExtensionMargin: "wide"}))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero margin", func(c *Config) { c.Recognition.ExtensionMargin = 0 }},
		{"negative spread", func(c *Config) { c.Recognition.SpreadThreshold = -1 }},
		{"zero cooldown", func(c *Config) { c.Recognition.Cooldown = 0 }},
		{"zero notify timeout", func(c *Config) { c.Notify.Timeout = 0 }},
		{"zero fps", func(c *Config) { c.Camera.ActiveFPS = 0 }},
		{"zero queue", func(c *Config) { c.Plugins.QueueSize = 0 }},
		{"empty addr", func(c *Config) { c.Server.Addr = "" }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
