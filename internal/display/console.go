package display

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/engziada/procwatch/internal/tracker"
	"github.com/engziada/procwatch/pkg/utils"
)

// Console renders live monitoring status as a plain-text table, redrawn
// in place on every tick. It only ever reads the snapshot it is handed.
type Console struct {
	mu        sync.Mutex
	out       io.Writer
	lastLines int
}

// NewConsole creates a console display writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// Render implements tracker.Display.
func (c *Console) Render(snapshot tracker.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var b strings.Builder

	fmt.Fprintf(&b, "procwatch  %s\n", snapshot.TakenAt.Format("15:04:05"))
	fmt.Fprintf(&b, "%-20s %-8s %-8s %-10s %-12s %s\n",
		"PROCESS", "STATE", "PID", "SESSION", "DURATION", "LAST ACTIVITY")

	for _, p := range snapshot.Processes {
		state := "stopped"
		if p.Running {
			state = "running"
		}

		pid := "-"
		if p.Running && p.PID != 0 {
			pid = fmt.Sprintf("%d", p.PID)
		}

		session := "closed"
		duration := "-"
		if p.SessionOpen {
			session = "open"
			duration = utils.FormatClock(p.SessionDuration)
		}

		lastActivity := "-"
		if !p.LastActivity.IsZero() {
			lastActivity = p.LastActivity.Format("15:04:05")
		}

		warn := ""
		if p.StorageWarning {
			warn = "  [storage warning]"
		}

		fmt.Fprintf(&b, "%-20s %-8s %-8s %-10s %-12s %s%s\n",
			truncate(p.Name, 20), state, pid, session, duration, lastActivity, warn)
	}

	// Rewind over the previous frame so the table redraws in place.
	if c.lastLines > 0 {
		fmt.Fprintf(c.out, "\033[%dA", c.lastLines)
	}

	output := b.String()
	fmt.Fprint(c.out, output)
	c.lastLines = strings.Count(output, "\n")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
