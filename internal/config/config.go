// Package config loads the dashboard's YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type ControllerConfig struct {
	// Address of the controller's REST API, e.g. "http://10.0.0.2:8000/api".
	Address string        `yaml:"address"`
	Timeout time.Duration `yaml:"timeout"`
}

// PollConfig sets the refresh interval of each poller.
type PollConfig struct {
	Statistics     time.Duration `yaml:"statistics"`
	TimeStatistics time.Duration `yaml:"time_statistics"`
	Tests          time.Duration `yaml:"tests"`
	// TimeLimit is the number of seconds of time series requested.
	TimeLimit int `yaml:"time_limit"`
}

type ServerConfig struct {
	Listen string `yaml:"listen"`
	// AllowOrigins enables CORS for browser front ends served elsewhere.
	AllowOrigins []string `yaml:"allow_origins"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"` // sqlite or duckdb
	Path   string `yaml:"path"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
	// File is appended to instead of stderr when set.
	File string `yaml:"file"`
}

type Config struct {
	Controller ControllerConfig `yaml:"controller"`
	Poll       PollConfig       `yaml:"poll"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Log        LogConfig        `yaml:"log"`
}

func DefaultConfig() *Config {
	return &Config{
		Controller: ControllerConfig{
			Address: "http://127.0.0.1:8000/api",
			Timeout: 5 * time.Second,
		},
		Poll: PollConfig{
			Statistics:     500 * time.Millisecond,
			TimeStatistics: 2 * time.Second,
			Tests:          3 * time.Second,
			TimeLimit:      100,
		},
		Server:  ServerConfig{Listen: ":8080"},
		Storage: StorageConfig{Driver: "sqlite", Path: "./tgdash.sqlite"},
		Log:     LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Controller.Address == "" {
		errs = append(errs, errors.New("controller.address is required"))
	}
	if c.Controller.Timeout <= 0 {
		errs = append(errs, errors.New("controller.timeout must be positive"))
	}
	for name, d := range map[string]time.Duration{
		"poll.statistics":      c.Poll.Statistics,
		"poll.time_statistics": c.Poll.TimeStatistics,
		"poll.tests":           c.Poll.Tests,
	} {
		if d < 100*time.Millisecond {
			errs = append(errs, fmt.Errorf("%s must be at least 100ms, got %s", name, d))
		}
	}
	if c.Poll.TimeLimit < 0 {
		errs = append(errs, errors.New("poll.time_limit must not be negative"))
	}
	switch c.Storage.Driver {
	case "sqlite", "duckdb":
	default:
		errs = append(errs, fmt.Errorf("storage.driver must be sqlite or duckdb, got %q", c.Storage.Driver))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	return errors.Join(errs...)
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
