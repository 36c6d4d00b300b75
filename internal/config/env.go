package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFromEnv loads configuration from environment variables.
// Environment variables override file and default values.
func LoadFromEnv(cfg *Config) {
	if targets := os.Getenv("PROCWATCH_TARGETS"); targets != "" {
		var names []string
		for _, name := range strings.Split(targets, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
		if len(names) > 0 {
			cfg.Monitor.TargetProcesses = names
		}
	}

	if pollInterval := os.Getenv("PROCWATCH_POLL_INTERVAL"); pollInterval != "" {
		if d, err := time.ParseDuration(pollInterval); err == nil && d > 0 {
			cfg.Monitor.PollInterval = d
		}
	}

	if timeout := os.Getenv("PROCWATCH_INACTIVITY_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			cfg.Monitor.InactivityTimeout = d
		}
	}

	if threshold := os.Getenv("PROCWATCH_PROBE_FAILURE_THRESHOLD"); threshold != "" {
		if n, err := strconv.Atoi(threshold); err == nil && n >= 1 {
			cfg.Monitor.ProbeFailureThreshold = n
		}
	}

	if dbPath := os.Getenv("PROCWATCH_DB_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}

	if pidFile := os.Getenv("PROCWATCH_PID_FILE"); pidFile != "" {
		cfg.Daemon.PIDFile = pidFile
	}

	if level := os.Getenv("PROCWATCH_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	if file := os.Getenv("PROCWATCH_LOG_FILE"); file != "" {
		cfg.Log.File = file
	}
}
