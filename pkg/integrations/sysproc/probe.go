package sysproc

import (
	"context"
	"strings"
	"time"

	"github.com/shirou/gopsutil/process"

	"github.com/engziada/procwatch/pkg/probe"
)

// Probe implements probe.ProcessProbe over the OS process table.
type Probe struct {
	callTimeout time.Duration
}

// NewProbe creates a process probe. Every Find call is bounded by
// callTimeout so a stalled process-table scan cannot block a poll tick.
func NewProbe(callTimeout time.Duration) *Probe {
	if callTimeout <= 0 {
		callTimeout = 2 * time.Second
	}
	return &Probe{callTimeout: callTimeout}
}

// Find scans the process table for the first process whose name matches
// case-insensitively. A ".exe" suffix on either side is ignored so
// configured Windows-style names keep working.
func (p *Probe) Find(ctx context.Context, name string) (*probe.ProcessInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	want := normalizeName(name)

	for _, proc := range procs {
		if proc == nil {
			continue
		}

		procName, err := proc.NameWithContext(ctx)
		if err != nil {
			// Process may have exited mid-scan or be inaccessible;
			// it cannot be the one we are looking for.
			continue
		}

		if normalizeName(procName) != want {
			continue
		}

		createMs, err := proc.CreateTimeWithContext(ctx)
		if err != nil {
			return nil, err
		}

		return &probe.ProcessInfo{
			PID:       proc.Pid,
			StartedAt: time.UnixMilli(createMs),
		}, nil
	}

	return nil, nil
}

// Close implements probe.ProcessProbe. The probe holds no resources.
func (p *Probe) Close() error {
	return nil
}

func normalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.TrimSuffix(name, ".exe")
}
