package reporter

import (
	"fmt"
	"strings"
	"time"

	"github.com/engziada/procwatch/internal/database"
	"github.com/engziada/procwatch/internal/models"
	"github.com/engziada/procwatch/pkg/utils"
)

// Reporter handles report generation over persisted sessions
type Reporter struct {
	gateway *database.Gateway
}

// New creates a new reporter
func New(gateway *database.Gateway) *Reporter {
	return &Reporter{gateway: gateway}
}

// GenerateReport aggregates closed sessions for the specified period
func (r *Reporter) GenerateReport(periodType string) (*models.Report, error) {
	period, err := r.getPeriod(periodType)
	if err != nil {
		return nil, err
	}

	// SQL does the SUM; the runtime computes the derived fields.
	summaries, err := r.gateway.SessionSummaries(period.Start)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate sessions: %w", err)
	}

	var totalSeconds float64
	for i := range summaries {
		totalSeconds += summaries[i].TotalSeconds
	}

	if totalSeconds > 0 {
		for i := range summaries {
			summaries[i].Percentage = summaries[i].TotalSeconds / totalSeconds * 100.0
		}
	}

	return &models.Report{
		Period:       *period,
		Processes:    summaries,
		TotalSeconds: totalSeconds,
		GeneratedAt:  time.Now(),
	}, nil
}

// getPeriod calculates the time range for the report
func (r *Reporter) getPeriod(periodType string) (*models.ReportPeriod, error) {
	now := time.Now()
	var start, end time.Time

	switch periodType {
	case "day", "today":
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		end = start.Add(24 * time.Hour)

	case "week":
		// Start of week (Monday)
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7 // Sunday = 7
		}
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -(weekday - 1))
		end = start.AddDate(0, 0, 7)

	case "month":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 1, 0)

	default:
		return nil, fmt.Errorf("invalid period type: %s (valid: day, week, month)", periodType)
	}

	return &models.ReportPeriod{
		Start: start,
		End:   end,
		Type:  periodType,
	}, nil
}

// FormatReportText formats the report as human-readable text
func (r *Reporter) FormatReportText(report *models.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Activity Report - %s\n", report.Period.Type)
	fmt.Fprintf(&b, "Period: %s to %s\n",
		report.Period.Start.Format("2006-01-02 15:04"),
		report.Period.End.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Total Active Time: %s\n\n", utils.FormatClock(time.Duration(report.TotalSeconds)*time.Second))

	if len(report.Processes) == 0 {
		b.WriteString("No activity recorded for this period.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "%-25s %12s %10s %12s %9s\n", "Process", "Total", "Sessions", "Avg Session", "Percent")
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 72))

	for _, p := range report.Processes {
		fmt.Fprintf(&b, "%-25s %12s %10d %12s %8.1f%%\n",
			truncate(p.ProcessName, 25),
			utils.FormatClock(time.Duration(p.TotalSeconds)*time.Second),
			p.SessionCount,
			utils.FormatClock(time.Duration(p.AvgSeconds)*time.Second),
			p.Percentage)
	}

	return b.String()
}

// FormatRecentSessions lists every session of the monitored processes
// that started in the last N hours, oldest first.
func (r *Reporter) FormatRecentSessions(hours int) (string, error) {
	since := time.Now().Add(-time.Duration(hours) * time.Hour)

	procs, err := r.gateway.ListProcesses()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Sessions since %s\n\n", since.Format("2006-01-02 15:04"))

	any := false
	for _, proc := range procs {
		sessions, err := r.gateway.ListSessions(proc.ProcessName, since, time.Time{})
		if err != nil {
			return "", err
		}
		if len(sessions) == 0 {
			continue
		}
		any = true

		pid := "-"
		if proc.PID != nil {
			pid = fmt.Sprintf("%d", *proc.PID)
		}
		fmt.Fprintf(&b, "%s (pid %s, last seen %s)\n",
			proc.ProcessName, pid, proc.LastSeenAt.Format("2006-01-02 15:04:05"))

		for _, s := range sessions {
			end := "open"
			duration := "-"
			if s.EndTime != nil {
				end = s.EndTime.Format("15:04:05")
				if s.DurationSeconds != nil {
					duration = utils.FormatClock(time.Duration(*s.DurationSeconds * float64(time.Second)))
				}
			}
			fmt.Fprintf(&b, "  %s -> %-8s  last activity %s  duration %s\n",
				s.StartTime.Format("15:04:05"), end,
				s.LastActivityTime.Format("15:04:05"), duration)
		}
		b.WriteString("\n")
	}

	if !any {
		b.WriteString("No sessions recorded.\n")
	}

	return b.String(), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
