package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/engziada/procwatch/internal/database"
	"github.com/engziada/procwatch/internal/reporter"
)

var sessionsHours int

var reportCmd = &cobra.Command{
	Use:   "report [day|week|month]",
	Short: "Summarize recorded activity per process",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runReport,
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recent activity sessions",
	RunE:  runSessions,
}

func init() {
	sessionsCmd.Flags().IntVar(&sessionsHours, "hours", 24, "How far back to list sessions")

	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func openReporter() (*reporter.Reporter, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Initialize(); err != nil {
		db.Close()
		return nil, nil, err
	}

	rep := reporter.New(database.NewGateway(db))
	return rep, func() { db.Close() }, nil
}

func runReport(cmd *cobra.Command, args []string) error {
	period := "day"
	if len(args) > 0 {
		period = args[0]
	}

	rep, closeDB, err := openReporter()
	if err != nil {
		return err
	}
	defer closeDB()

	report, err := rep.GenerateReport(period)
	if err != nil {
		return err
	}

	fmt.Print(rep.FormatReportText(report))
	return nil
}

func runSessions(cmd *cobra.Command, args []string) error {
	rep, closeDB, err := openReporter()
	if err != nil {
		return err
	}
	defer closeDB()

	text, err := rep.FormatRecentSessions(sessionsHours)
	if err != nil {
		return err
	}

	fmt.Print(text)
	return nil
}
