package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/engziada/procwatch/internal/config"
	"github.com/engziada/procwatch/internal/database"
	"github.com/engziada/procwatch/internal/display"
	"github.com/engziada/procwatch/internal/logger"
	"github.com/engziada/procwatch/internal/tracker"
	"github.com/engziada/procwatch/pkg/prober"
)

var (
	freshFlag     bool
	noDisplayFlag bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the monitor in the foreground",
	Long: `Run the monitor in the foreground with a live status display.

Stops on Ctrl+C; every open session is closed before exit.

Example:
  procwatch run
  procwatch run --fresh      # discard all recorded history first`,
	RunE: runMonitor,
}

func init() {
	runCmd.Flags().BoolVar(&freshFlag, "fresh", false, "Reset the database before monitoring")
	runCmd.Flags().BoolVar(&noDisplayFlag, "no-display", false, "Disable the live status table")

	rootCmd.AddCommand(runCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	var disp tracker.Display
	if !noDisplayFlag {
		disp = display.NewConsole(os.Stdout)
	}

	return runLoop(cfg, disp, freshFlag)
}

// runLoop wires the probes, store and tracker together and blocks until
// a shutdown signal arrives.
func runLoop(cfg *config.Config, disp tracker.Display, fresh bool) error {
	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if fresh {
		if err := db.Reset(); err != nil {
			return err
		}
		logger.Info().Msg("Database reset")
	}
	if err := db.Initialize(); err != nil {
		return err
	}

	gateway := database.NewGateway(db)

	// Rows left open by an earlier crashed run can never be extended;
	// close them before tracking starts.
	if n, err := gateway.CloseAllOpen(tracker.SystemClock().Now()); err != nil {
		logger.Warn().Err(err).Msg("Failed to sweep stale open sessions")
	} else if n > 0 {
		logger.Info().Int("count", n).Msg("Closed stale open sessions from a previous run")
	}

	inputProbe, err := prober.NewInputProbe()
	if err != nil {
		return fmt.Errorf("failed to initialize input probe: %w", err)
	}
	defer inputProbe.Close()

	processProbe := prober.NewProcessProbe(cfg.Monitor.PollInterval)
	defer processProbe.Close()

	service := tracker.NewService(cfg, gateway, processProbe, inputProbe, disp)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info().Msg("Received shutdown signal")
		service.Stop()
	}()

	if err := service.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("monitor error: %w", err)
	}

	logger.Info().Msg("Monitor stopped cleanly")
	return nil
}
