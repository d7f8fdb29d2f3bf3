package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	appName    = "taskdash"
	configFile = "config.yaml"
)

// Config is the user configuration read from config.yaml
type Config struct {
	Database    string        `yaml:"database"`
	LogFile     string        `yaml:"log_file"`
	LogLevel    string        `yaml:"log_level"`
	TokenTTL    time.Duration `yaml:"token_ttl"`
	NarrowWidth int           `yaml:"narrow_width"`
}

// Default returns the configuration used when no file exists
func Default() (*Config, error) {
	dataDir, err := xdgDir("XDG_DATA_HOME", ".local", "share")
	if err != nil {
		return nil, err
	}
	stateDir, err := xdgDir("XDG_STATE_HOME", ".local", "state")
	if err != nil {
		return nil, err
	}
	return &Config{
		Database:    filepath.Join(dataDir, appName, appName+".db"),
		LogFile:     filepath.Join(stateDir, appName, appName+".log"),
		LogLevel:    "info",
		TokenTTL:    72 * time.Hour,
		NarrowWidth: 60,
	}, nil
}

// Path returns the config file location, honouring TASKDASH_CONFIG
func Path() (string, error) {
	if p := os.Getenv("TASKDASH_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := xdgDir("XDG_CONFIG_HOME", ".config")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName, configFile), nil
}

// Load reads the config file, falling back to defaults when it is missing,
// then applies environment overrides.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile is Load for an explicit path
func LoadFile(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
		}
	}

	cfg.Database = getEnv("TASKDASH_DATABASE", cfg.Database)
	cfg.LogLevel = getEnv("TASKDASH_LOG_LEVEL", cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later at runtime
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	if c.Database == "" {
		return errors.New("database path is empty")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token_ttl must be positive, got %s", c.TokenTTL)
	}
	if c.NarrowWidth <= 0 {
		return fmt.Errorf("narrow_width must be positive, got %d", c.NarrowWidth)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// xdgDir returns $env, or ~/fallback... when it is unset
func xdgDir(env string, fallback ...string) (string, error) {
	if dir := os.Getenv(env); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append([]string{home}, fallback...)...), nil
}
