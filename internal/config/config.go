// Package config loads mudra's configuration from a YAML file, MUDRA_*
// environment variables and built-in defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/sign"
)

// EnvPrefix prefixes environment overrides, e.g. MUDRA_RECOGNITION_COOLDOWN.
const EnvPrefix = "MUDRA"

// Setting keys that may also be stored in the settings table.
const (
	KeyExtensionMargin = "recognition.extension_margin"
	KeySpreadThreshold = "recognition.spread_threshold"
	KeyCooldown        = "recognition.cooldown"
)

// Config holds all application configuration.
type Config struct {
	Recognition RecognitionConfig `mapstructure:"recognition" yaml:"recognition"`
	Notify      NotifyConfig      `mapstructure:"notify" yaml:"notify"`
	Camera      CameraConfig      `mapstructure:"camera" yaml:"camera"`
	Detector    detector.Config   `mapstructure:"detector" yaml:"detector"`
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
	Store       StoreConfig       `mapstructure:"store" yaml:"store"`
	Plugins     PluginsConfig     `mapstructure:"plugins" yaml:"plugins"`
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
	Tray        TrayConfig        `mapstructure:"tray" yaml:"tray"`
}

// RecognitionConfig tunes the classifier and the debounce gate.
type RecognitionConfig struct {
	ExtensionMargin float64       `mapstructure:"extension_margin" yaml:"extension_margin"`
	SpreadThreshold float64       `mapstructure:"spread_threshold" yaml:"spread_threshold"`
	Cooldown        time.Duration `mapstructure:"cooldown" yaml:"cooldown"`
}

// NotifyConfig bounds subscriber and commit hook calls.
type NotifyConfig struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// CameraConfig configures capture and the motion gate.
type CameraConfig struct {
	DeviceID        int           `mapstructure:"device_id" yaml:"device_id"`
	IdleFPS         int           `mapstructure:"idle_fps" yaml:"idle_fps"`
	ActiveFPS       int           `mapstructure:"active_fps" yaml:"active_fps"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	MotionThreshold float64       `mapstructure:"motion_threshold" yaml:"motion_threshold"` // percent of changed pixels
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr      string `mapstructure:"addr" yaml:"addr"`
	StaticDir string `mapstructure:"static_dir" yaml:"static_dir"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// PluginsConfig configures word output plugins.
type PluginsConfig struct {
	Dir       string        `mapstructure:"dir" yaml:"dir"`
	Enabled   []string      `mapstructure:"enabled" yaml:"enabled"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	QueueSize int           `mapstructure:"queue_size" yaml:"queue_size"`
	// Settings holds the config object sent to each plugin, keyed by name.
	Settings map[string]map[string]any `mapstructure:"settings" yaml:"settings,omitempty"`
}

// LogConfig configures the root logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"` // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty" yaml:"pretty"`
}

// TrayConfig configures the menu bar icon.
type TrayConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() *Config {
	return &Config{
		Recognition: RecognitionConfig{
			ExtensionMargin: sign.DefaultExtensionMargin,
			SpreadThreshold: sign.DefaultSpreadThreshold,
			Cooldown:        sign.DefaultCooldown,
		},
		Notify: NotifyConfig{
			Timeout: 100 * time.Millisecond,
		},
		Camera: CameraConfig{
			DeviceID:        0,
			IdleFPS:         5,
			ActiveFPS:       15,
			IdleTimeout:     2 * time.Second,
			MotionThreshold: 1.0,
		},
		Detector: detector.DefaultConfig(),
		Server: ServerConfig{
			Addr:      "127.0.0.1:8080",
			StaticDir: "web",
		},
		Store: StoreConfig{
			Path: "~/.mudra/mudra.db",
		},
		Plugins: PluginsConfig{
			Dir:       "~/.mudra/plugins",
			Enabled:   []string{},
			Timeout:   5 * time.Second,
			QueueSize: 16,
		},
		Log: LogConfig{
			Level:  "info",
			Pretty: true,
		},
		Tray: TrayConfig{
			Enabled: true,
		},
	}
}

// DefaultPath returns ~/.mudra/config.yaml.
func DefaultPath() string {
	return expandPath("~/.mudra/config.yaml")
}

// Load reads the configuration. An empty path searches ~/.mudra and the
// working directory for config.yaml and falls back to defaults when none is
// found; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	defaults, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("marshal defaults: %w", err)
	}
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, fmt.Errorf("read defaults: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(expandPath(path))
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(filepath.Dir(DefaultPath()))
		v.AddConfigPath(".")
	}

	if err := v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Store.Path = expandPath(cfg.Store.Path)
	cfg.Plugins.Dir = expandPath(cfg.Plugins.Dir)

	return &cfg, nil
}

// SaveToPath writes the configuration as YAML, creating parent directories.
func (c *Config) SaveToPath(path string) error {
	path = expandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// ApplySettings overrides recognition values with those stored in the
// settings table. Unknown keys are ignored.
func (c *Config) ApplySettings(settings map[string]string) error {
	for key, value := range settings {
		switch key {
		case KeyExtensionMargin:
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return fmt.Errorf("setting %s: %w", key, err)
			}
			c.Recognition.ExtensionMargin = f
		case KeySpreadThreshold:
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return fmt.Errorf("setting %s: %w", key, err)
			}
			c.Recognition.SpreadThreshold = f
		case KeyCooldown:
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("setting %s: %w", key, err)
			}
			c.Recognition.Cooldown = d
		}
	}
	return nil
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Recognition.ExtensionMargin <= 0 {
		return fmt.Errorf("recognition.extension_margin must be positive, got %v", c.Recognition.ExtensionMargin)
	}
	if c.Recognition.SpreadThreshold <= 0 {
		return fmt.Errorf("recognition.spread_threshold must be positive, got %v", c.Recognition.SpreadThreshold)
	}
	if c.Recognition.Cooldown <= 0 {
		return fmt.Errorf("recognition.cooldown must be positive, got %v", c.Recognition.Cooldown)
	}
	if c.Notify.Timeout <= 0 {
		return fmt.Errorf("notify.timeout must be positive, got %v", c.Notify.Timeout)
	}
	if c.Camera.IdleFPS <= 0 || c.Camera.ActiveFPS <= 0 {
		return fmt.Errorf("camera fps must be positive, got idle=%d active=%d", c.Camera.IdleFPS, c.Camera.ActiveFPS)
	}
	if c.Plugins.QueueSize <= 0 {
		return fmt.Errorf("plugins.queue_size must be positive, got %d", c.Plugins.QueueSize)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr cannot be empty")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level '%s', must be one of: debug, info, warn, error", c.Log.Level)
	}
	return nil
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
