package cli

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/engziada/procwatch/internal/daemon"
)

// childEnv marks the re-executed background process.
const childEnv = "PROCWATCH_DAEMON_CHILD"

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the monitor in the background",
	RunE:  runStart,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background monitor",
	RunE:  runStop,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show monitor status and live session state",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	dm := daemon.New(cfg.Daemon.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		return fmt.Errorf("failed to check monitor status: %w", err)
	}
	if running && os.Getenv(childEnv) != "1" {
		return fmt.Errorf("monitor is already running (PID: %d)", pid)
	}

	if os.Getenv(childEnv) != "1" {
		return daemonize()
	}

	// Child: run the loop detached, without the live display.
	if err := dm.WritePID(); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	defer dm.RemovePID()

	return runLoop(cfg, nil, false)
}

// daemonize re-executes the current binary in a new session with the
// child marker set, then returns in the parent.
func daemonize() error {
	env := append(os.Environ(), childEnv+"=1")

	procAttr := &os.ProcAttr{
		Env:   env,
		Files: []*os.File{nil, nil, nil},
		Sys: &syscall.SysProcAttr{
			Setsid: true,
		},
	}

	process, err := os.StartProcess(os.Args[0], os.Args, procAttr)
	if err != nil {
		return fmt.Errorf("failed to start background monitor: %w", err)
	}

	fmt.Printf("Monitor started (PID: %d)\n", process.Pid)
	return nil
}

func runStop(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dm := daemon.New(cfg.Daemon.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		return fmt.Errorf("failed to check monitor status: %w", err)
	}
	if !running {
		fmt.Println("Monitor is not running")
		return nil
	}

	fmt.Printf("Stopping monitor (PID: %d)...\n", pid)
	if err := dm.Stop(); err != nil {
		return err
	}

	fmt.Println("Monitor stopped")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dm := daemon.New(cfg.Daemon.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		return fmt.Errorf("failed to check monitor status: %w", err)
	}

	if !running {
		fmt.Println("Status: not running")
	} else {
		fmt.Printf("Status: running (PID: %d)\n", pid)
	}

	fmt.Printf("Targets: %v\n", cfg.NormalizedTargets())
	fmt.Printf("Poll Interval: %v\n", cfg.Monitor.PollInterval)
	fmt.Printf("Inactivity Timeout: %v\n", cfg.Monitor.InactivityTimeout)

	return nil
}
