package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Monitor configuration
	Monitor MonitorConfig `yaml:"monitor"`

	// Database configuration
	Database DatabaseConfig `yaml:"database"`

	// Daemon configuration
	Daemon DaemonConfig `yaml:"daemon"`

	// Log configuration
	Log LogConfig `yaml:"log"`
}

// MonitorConfig holds the poll loop and session tracker configuration
type MonitorConfig struct {
	TargetProcesses []string `yaml:"target_processes"` // Process names to watch, case-insensitive

	PollInterval      time.Duration `yaml:"poll_interval"`      // How often to sample probes
	InactivityTimeout time.Duration `yaml:"inactivity_timeout"` // Max gap between inputs before a session closes

	// Consecutive probe failures tolerated before a process is treated
	// as stopped. 1 means no grace.
	ProbeFailureThreshold int `yaml:"probe_failure_threshold"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Path string `yaml:"path"` // Path to SQLite database file; empty means default
}

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	PIDFile string `yaml:"pid_file"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Monitor: MonitorConfig{
			TargetProcesses:       nil, // Must be supplied by config file or env
			PollInterval:          1 * time.Second,
			InactivityTimeout:     5 * time.Minute,
			ProbeFailureThreshold: 1,
		},
		Database: DatabaseConfig{
			Path: "", // Empty means ~/.config/procwatch/procwatch.db
		},
		Daemon: DaemonConfig{
			PIDFile: fmt.Sprintf("/tmp/procwatch-%d.pid", os.Getuid()),
		},
		Log: LogConfig{
			Level: "info",
			File:  "",
		},
	}
}

// Validate checks if the configuration is valid. Validation failures are
// fatal at startup, before the poll loop begins.
func (c *Config) Validate() error {
	if len(c.Monitor.TargetProcesses) == 0 {
		return fmt.Errorf("target process list cannot be empty")
	}
	for _, name := range c.Monitor.TargetProcesses {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("target process names cannot be blank")
		}
	}

	if c.Monitor.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be greater than 0, got %v", c.Monitor.PollInterval)
	}

	if c.Monitor.InactivityTimeout <= 0 {
		return fmt.Errorf("inactivity timeout must be greater than 0, got %v", c.Monitor.InactivityTimeout)
	}

	if c.Monitor.ProbeFailureThreshold < 1 {
		return fmt.Errorf("probe failure threshold must be at least 1, got %d", c.Monitor.ProbeFailureThreshold)
	}

	if c.Daemon.PIDFile == "" {
		return fmt.Errorf("PID file path cannot be empty")
	}

	return nil
}

// NormalizedTargets returns the target process names lowercased, trimmed
// and deduplicated. The tracker and gateway key on this form.
func (c *Config) NormalizedTargets() []string {
	seen := make(map[string]struct{}, len(c.Monitor.TargetProcesses))
	targets := make([]string, 0, len(c.Monitor.TargetProcesses))
	for _, name := range c.Monitor.TargetProcesses {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		targets = append(targets, name)
	}
	return targets
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  Monitor:
    Target Processes: %s
    Poll Interval: %v
    Inactivity Timeout: %v
    Probe Failure Threshold: %d
  Database:
    Path: %s
  Daemon:
    PID File: %s
  Log:
    Level: %s
    File: %s`,
		strings.Join(c.Monitor.TargetProcesses, ", "),
		c.Monitor.PollInterval,
		c.Monitor.InactivityTimeout,
		c.Monitor.ProbeFailureThreshold,
		c.Database.Path,
		c.Daemon.PIDFile,
		c.Log.Level,
		c.Log.File,
	)
}
