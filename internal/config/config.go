package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	PollInterval time.Duration  `yaml:"-"`
	RawInterval  string         `yaml:"poll_interval"`
	StateDir     string         `yaml:"state_dir"`
	LogFile      string         `yaml:"log_file"`
	Log          LogConfig      `yaml:"log"`
	TUI          TUIConfig      `yaml:"tui"`
	Store        StoreConfig    `yaml:"store"`
	Server       ServerConfig   `yaml:"server"`
	HTTP         HTTPConfig     `yaml:"http"`
	Defaults     DefaultsConfig `yaml:"defaults"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type TUIConfig struct {
	RefreshInterval time.Duration `yaml:"-"`
	RawInterval     string        `yaml:"refresh_interval"`
}

type StoreConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

type ServerConfig struct {
	Timeout    time.Duration `yaml:"-"`
	RawTimeout string        `yaml:"timeout"`
	Session    SessionConfig `yaml:"session"`
}

// SessionConfig holds the browser session cookies the client presents to
// the CI server.
type SessionConfig struct {
	Cookies map[string]string `yaml:"cookies"`
}

type HTTPConfig struct {
	Listen string `yaml:"listen"`
}

// DefaultsConfig seeds the user settings on first start.
type DefaultsConfig struct {
	ServerURL   string `yaml:"server_url"`
	WindowHours int    `yaml:"window_hours"`
	SortOrder   string `yaml:"sort_order"`
}

// Load reads the YAML file at path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.setDefaults(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) setDefaults() error {
	if c.RawInterval == "" {
		c.RawInterval = "1m"
	}
	d, err := time.ParseDuration(c.RawInterval)
	if err != nil {
		return fmt.Errorf("parse poll_interval %q: %w", c.RawInterval, err)
	}
	c.PollInterval = d

	if c.StateDir == "" {
		c.StateDir = defaultStateDir()
	}
	c.StateDir = expandHome(c.StateDir)
	c.LogFile = expandHome(c.LogFile)
	c.Store.Path = expandHome(c.Store.Path)
	if c.LogFile == "" {
		c.LogFile = filepath.Join(c.StateDir, "logs", "jobcheck.log")
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	if c.TUI.RawInterval == "" {
		c.TUI.RawInterval = "2s"
	}
	tuiInterval, err := time.ParseDuration(c.TUI.RawInterval)
	if err != nil {
		return fmt.Errorf("parse tui.refresh_interval %q: %w", c.TUI.RawInterval, err)
	}
	c.TUI.RefreshInterval = tuiInterval

	if c.Store.Backend == "" {
		c.Store.Backend = "bolt"
	}
	if c.Store.Path == "" {
		switch c.Store.Backend {
		case "sqlite":
			c.Store.Path = filepath.Join(c.StateDir, "settings.sqlite")
		default:
			c.Store.Path = filepath.Join(c.StateDir, "settings.db")
		}
	}

	if c.Server.RawTimeout == "" {
		c.Server.RawTimeout = "0s"
	}
	timeout, err := time.ParseDuration(c.Server.RawTimeout)
	if err != nil {
		return fmt.Errorf("parse server.timeout %q: %w", c.Server.RawTimeout, err)
	}
	c.Server.Timeout = timeout

	return nil
}

func (c *Config) validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.RawInterval)
	}
	if c.TUI.RefreshInterval <= 0 {
		return fmt.Errorf("tui.refresh_interval must be positive, got %s", c.TUI.RawInterval)
	}
	if c.Server.Timeout < 0 {
		return fmt.Errorf("server.timeout must not be negative, got %s", c.Server.RawTimeout)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level %q (debug|info|warn|error)", c.Log.Level)
	}
	switch c.Store.Backend {
	case "bolt", "sqlite", "memory":
	default:
		return fmt.Errorf("invalid store.backend %q (bolt|sqlite|memory)", c.Store.Backend)
	}
	if c.Defaults.WindowHours < 0 {
		return fmt.Errorf("defaults.window_hours must not be negative, got %d", c.Defaults.WindowHours)
	}
	switch c.Defaults.SortOrder {
	case "", "asc", "desc":
	default:
		return fmt.Errorf("invalid defaults.sort_order %q (asc|desc)", c.Defaults.SortOrder)
	}
	return nil
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(os.TempDir(), "jobcheck")
	}
	return filepath.Join(home, ".jobcheck")
}

// expandHome resolves a leading "~/" against the user's home directory.
func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}
