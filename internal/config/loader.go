package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configDir      = ".config/procwatch"
	configFileName = "config.yaml"
)

// DefaultPath returns the default config file location under the user's
// home directory.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, configDir, configFileName), nil
}

// Load builds the effective configuration: defaults, overlaid with the
// YAML file at path (the default location when path is empty; a missing
// default file is not an error), overlaid with environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	fileCfg, err := loadFile(path)
	if err != nil {
		if explicit || !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	if fileCfg != nil {
		if err := merge(cfg, fileCfg); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	LoadFromEnv(cfg)

	return cfg, nil
}

// fileConfig mirrors Config but with durations as plain strings so the
// YAML file can say "1s" or "5m".
type fileConfig struct {
	Monitor struct {
		TargetProcesses       []string `yaml:"target_processes"`
		PollInterval          string   `yaml:"poll_interval"`
		InactivityTimeout     string   `yaml:"inactivity_timeout"`
		ProbeFailureThreshold int      `yaml:"probe_failure_threshold"`
	} `yaml:"monitor"`
	Database DatabaseConfig `yaml:"database"`
	Daemon   DaemonConfig   `yaml:"daemon"`
	Log      LogConfig      `yaml:"log"`
}

func loadFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return &cfg, nil
}

func merge(base *Config, override *fileConfig) error {
	if len(override.Monitor.TargetProcesses) > 0 {
		base.Monitor.TargetProcesses = override.Monitor.TargetProcesses
	}
	if override.Monitor.PollInterval != "" {
		d, err := time.ParseDuration(override.Monitor.PollInterval)
		if err != nil {
			return fmt.Errorf("invalid poll_interval %q: %w", override.Monitor.PollInterval, err)
		}
		base.Monitor.PollInterval = d
	}
	if override.Monitor.InactivityTimeout != "" {
		d, err := time.ParseDuration(override.Monitor.InactivityTimeout)
		if err != nil {
			return fmt.Errorf("invalid inactivity_timeout %q: %w", override.Monitor.InactivityTimeout, err)
		}
		base.Monitor.InactivityTimeout = d
	}
	if override.Monitor.ProbeFailureThreshold > 0 {
		base.Monitor.ProbeFailureThreshold = override.Monitor.ProbeFailureThreshold
	}
	if override.Database.Path != "" {
		base.Database.Path = override.Database.Path
	}
	if override.Daemon.PIDFile != "" {
		base.Daemon.PIDFile = override.Daemon.PIDFile
	}
	if override.Log.Level != "" {
		base.Log.Level = override.Log.Level
	}
	if override.Log.File != "" {
		base.Log.File = override.Log.File
	}
	return nil
}
