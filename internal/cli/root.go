package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/engziada/procwatch/internal/config"
	"github.com/engziada/procwatch/internal/logger"
)

// Version information set via ldflags
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var (
	verbose    bool
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "procwatch",
	Short: "Process activity session tracker",
	Long: `Procwatch watches a configured set of process names and records
activity sessions: contiguous spans during which a process is running
and receiving user input. Sessions are persisted to SQLite for later
reporting.

Configure targets in ~/.config/procwatch/config.yaml or via
PROCWATCH_TARGETS.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("procwatch %s\n", Version)
		fmt.Printf("  commit: %s\n", Commit)
		fmt.Printf("  built:  %s\n", Date)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Override config file path")

	rootCmd.AddCommand(versionCmd)
}

// loadConfig builds the effective configuration for a command and
// initializes logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	if err := logger.Init(level, cfg.Log.File); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	return cfg, nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
