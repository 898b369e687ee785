package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/neiam/apollos-kiosk/internal/domain"
)

// Config is the persisted kiosk configuration record: the panel assignment
// layout, the current theme, and the transport settings for both channels.
// It is loaded once at startup, mutated in memory by the engine, and written
// back synchronously after each mutation.
type Config struct {
	domain.Layout `yaml:",inline"`

	CurrentTheme string `yaml:"current_theme"`

	// Data channel.
	MQTTHost     string `yaml:"mqtt_host"`
	MQTTUsername string `yaml:"mqtt_username"`
	MQTTPassword string `yaml:"mqtt_password"`
	MQTTTopic    string `yaml:"mqtt_topic"`

	// Theme sync channel.
	ThemeSync     bool    `yaml:"mqtt_theme_sync"`
	ThemeHost     string  `yaml:"mqtt_theme_host"`
	ThemeUsername *string `yaml:"mqtt_theme_username,omitempty"`
	ThemePassword *string `yaml:"mqtt_theme_password,omitempty"`
	ThemeTopic    string  `yaml:"mqtt_theme_topic"`

	SnapshotDB string `yaml:"snapshot_db"`
	LogLevel   string `yaml:"log_level"`
}

// Load reads the config file at path, expanding ${VAR} references from the
// environment (a .env file is honored when present). A missing file yields
// the defaults rather than an error: first launch has nothing to load yet.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// First run: start from defaults.
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) setDefaults() {
	c.Layout.Normalize()

	if c.CurrentTheme == "" {
		c.CurrentTheme = "Dark"
	}
	if c.MQTTHost == "" {
		c.MQTTHost = "localhost"
	}
	if c.ThemeHost == "" {
		c.ThemeHost = "tcp://localhost:2883"
	}
	if c.ThemeTopic == "" {
		c.ThemeTopic = "neiam/sync/theme"
	}
	if c.SnapshotDB == "" {
		c.SnapshotDB = "kiosk.db"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Overrides are startup values from flags or the environment. Set fields
// take precedence over the loaded configuration, field by field.
type Overrides struct {
	MQTTHost     *string
	MQTTUsername *string
	MQTTPassword *string
	MQTTTopic    *string

	ThemeSync     *bool
	ThemeHost     *string
	ThemeUsername *string
	ThemePassword *string
	ThemeTopic    *string
}

// Apply merges set override fields into the configuration.
func (c *Config) Apply(o Overrides) {
	if o.MQTTHost != nil {
		c.MQTTHost = *o.MQTTHost
	}
	if o.MQTTUsername != nil {
		c.MQTTUsername = *o.MQTTUsername
	}
	if o.MQTTPassword != nil {
		c.MQTTPassword = *o.MQTTPassword
	}
	if o.MQTTTopic != nil {
		c.MQTTTopic = *o.MQTTTopic
	}
	if o.ThemeSync != nil {
		c.ThemeSync = *o.ThemeSync
	}
	if o.ThemeHost != nil {
		c.ThemeHost = *o.ThemeHost
	}
	if o.ThemeUsername != nil {
		c.ThemeUsername = o.ThemeUsername
	}
	if o.ThemePassword != nil {
		c.ThemePassword = o.ThemePassword
	}
	if o.ThemeTopic != nil {
		c.ThemeTopic = *o.ThemeTopic
	}
}

// Save writes the configuration to path atomically (temp file + rename),
// creating parent directories as needed.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close config: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

// FileStore persists a Config to a fixed path. It implements the engine's
// ConfigStore.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Save(cfg *Config) error {
	return cfg.Save(s.path)
}
