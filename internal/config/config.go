// Package config loads ~/.courseforge/config.yaml and applies COURSEFORGE_* overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"courseforge/internal/model"
)

const (
	DefaultDebounce      = 1500 * time.Millisecond
	DefaultHistoryLimit  = 50
	DefaultHTTPAddr      = "127.0.0.1:8420"
	DefaultRemoteTimeout = 15 * time.Second
)

type Config struct {
	DB       DBConfig       `yaml:"db"`
	Autosave AutosaveConfig `yaml:"autosave"`
	History  HistoryConfig  `yaml:"history"`
	Log      LogConfig      `yaml:"log"`
	HTTP     HTTPConfig     `yaml:"http"`
	Remote   RemoteConfig   `yaml:"remote"`

	// Templates replaces the built-in lesson templates when non-empty.
	Templates []model.LessonTemplate `yaml:"templates,omitempty"`
}

type DBConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn,omitempty"`
}

type AutosaveConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

type HistoryConfig struct {
	Limit int `yaml:"limit"`
}

type LogConfig struct {
	Mode string `yaml:"mode,omitempty"`
	File string `yaml:"file,omitempty"`
}

type HTTPConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"corsOrigins,omitempty"`
}

type RemoteConfig struct {
	URL     string        `yaml:"url,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

func Default() *Config {
	return &Config{
		DB:       DBConfig{Driver: "sqlite"},
		Autosave: AutosaveConfig{Debounce: DefaultDebounce},
		History:  HistoryConfig{Limit: DefaultHistoryLimit},
		HTTP:     HTTPConfig{Addr: DefaultHTTPAddr},
		Remote:   RemoteConfig{Timeout: DefaultRemoteTimeout},
	}
}

func Dir() (string, error) {
	// Keeps tests from touching ~/.courseforge.
	if v := strings.TrimSpace(os.Getenv("COURSEFORGE_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".courseforge"), nil
}

func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the config file (missing = defaults) and then applies env overrides.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

func LoadFile(path string) (*Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) fillDefaults() {
	d := Default()
	if strings.TrimSpace(c.DB.Driver) == "" {
		c.DB.Driver = d.DB.Driver
	}
	if c.Autosave.Debounce <= 0 {
		c.Autosave.Debounce = d.Autosave.Debounce
	}
	if c.History.Limit <= 0 {
		c.History.Limit = d.History.Limit
	}
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		c.HTTP.Addr = d.HTTP.Addr
	}
	if c.Remote.Timeout <= 0 {
		c.Remote.Timeout = d.Remote.Timeout
	}
}

func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.DB.Driver)) {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("db.driver: unknown driver %q (want sqlite or postgres)", c.DB.Driver)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("COURSEFORGE_DB_DRIVER")); v != "" {
		c.DB.Driver = v
	}
	if v := strings.TrimSpace(os.Getenv("COURSEFORGE_DB_DSN")); v != "" {
		c.DB.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("COURSEFORGE_LOG_MODE")); v != "" {
		c.Log.Mode = v
	}
	if v := strings.TrimSpace(os.Getenv("COURSEFORGE_HTTP_ADDR")); v != "" {
		c.HTTP.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("COURSEFORGE_REMOTE_URL")); v != "" {
		c.Remote.URL = v
	}
}

// Save writes cfg to the config path with a temp file + rename.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "config.yaml.*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, 0o600)
	return os.Rename(tmp, path)
}
