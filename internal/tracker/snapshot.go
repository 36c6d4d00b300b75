package tracker

import (
	"time"
)

// ProcessStatus is the per-process read model published to the display
// adapter. It is recomputed every tick and never persisted.
type ProcessStatus struct {
	Name            string
	Running         bool
	PID             int32
	SessionOpen     bool
	SessionStart    time.Time
	SessionDuration time.Duration
	LastActivity    time.Time
	StorageWarning  bool
}

// Snapshot is an immutable copy of the tracker's current state, safe to
// hand to readers outside the poll loop.
type Snapshot struct {
	TakenAt   time.Time
	Processes []ProcessStatus
}

// Snapshot copies the current per-process state, in the configured
// process order.
func (m *Machine) Snapshot(now time.Time) Snapshot {
	snap := Snapshot{
		TakenAt:   now,
		Processes: make([]ProcessStatus, 0, len(m.names)),
	}

	for _, name := range m.names {
		state := m.states[name]
		status := ProcessStatus{
			Name:           name,
			Running:        state.running,
			PID:            state.pid,
			SessionOpen:    state.sessionOpen,
			LastActivity:   state.lastActivity,
			StorageWarning: state.storageWarn,
		}
		if state.sessionOpen {
			status.SessionStart = state.sessionStart
			status.SessionDuration = now.Sub(state.sessionStart)
		}
		snap.Processes = append(snap.Processes, status)
	}

	return snap
}
