package tracker

import (
	"time"

	"github.com/engziada/procwatch/internal/logger"
	"github.com/engziada/procwatch/internal/models"
)

// Clock is the machine's time source. Injected so tests can drive the
// state machine with a synthetic clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by the wall clock.
func SystemClock() Clock { return systemClock{} }

// Store is the slice of the persistence gateway the machine writes
// through. *database.Gateway satisfies it.
type Store interface {
	UpsertProcess(name string, pid int32, lastSeen time.Time, uptimeSeconds float64) (*models.MonitoredProcess, error)
	ClearPID(name string) error
	OpenSession(processID uint, start time.Time) (models.SessionHandle, error)
	UpdateActivity(handle models.SessionHandle, lastActivity time.Time) error
	CloseSession(handle models.SessionHandle, end time.Time) error
}

// Sample is one tick's observation for one process name.
type Sample struct {
	Now time.Time

	// ProbeFailed means a probe errored and the answer is unknown. The
	// remaining fields are meaningless when set.
	ProbeFailed bool

	Running      bool
	PID          int32
	ProcessStart time.Time

	// LastInput is the most recent global mouse/keyboard event.
	LastInput time.Time
}

// processState is the per-name tracking state. It lives for the whole
// monitoring run; the persisted rows it maps to are created lazily on
// first detection.
type processState struct {
	name string

	processID uint // monitored_processes row id, 0 until first upsert

	running    bool
	pid        int32
	lastSeenAt time.Time

	sessionOpen  bool
	handle       models.SessionHandle
	sessionStart time.Time
	lastActivity time.Time

	// idle means the process is running but its session was closed by
	// the inactivity timeout; a new session opens only once fresh input
	// arrives.
	idle bool

	failures    int
	storageWarn bool
}

// Machine turns the stream of per-tick samples into bounded activity
// sessions. It holds every per-name state explicitly; the poll loop owns
// the single Machine instance and drives it from one goroutine.
type Machine struct {
	store             Store
	inactivityTimeout time.Duration
	failureThreshold  int

	names  []string
	states map[string]*processState
}

// NewMachine creates a machine tracking the given process names.
// failureThreshold is the number of consecutive probe failures tolerated
// before a process is treated as stopped; 1 means no grace.
func NewMachine(store Store, names []string, inactivityTimeout time.Duration, failureThreshold int) *Machine {
	if failureThreshold < 1 {
		failureThreshold = 1
	}

	m := &Machine{
		store:             store,
		inactivityTimeout: inactivityTimeout,
		failureThreshold:  failureThreshold,
		names:             names,
		states:            make(map[string]*processState, len(names)),
	}
	for _, name := range names {
		m.states[name] = &processState{name: name}
	}
	return m
}

// Observe applies one tick's sample for one process name. Failures for
// one name never affect another; persistence errors are logged, flagged
// on the snapshot and reconciled by the next successful write.
func (m *Machine) Observe(name string, sample Sample) {
	state, ok := m.states[name]
	if !ok {
		state = &processState{name: name}
		m.states[name] = state
		m.names = append(m.names, name)
	}

	if sample.ProbeFailed {
		state.failures++
		if state.failures < m.failureThreshold {
			logger.Warn().
				Str("process", name).
				Int("failures", state.failures).
				Int("threshold", m.failureThreshold).
				Msg("Transient probe failure, keeping state")
			return
		}
		logger.Warn().
			Str("process", name).
			Int("failures", state.failures).
			Msg("Probe failure threshold reached, treating process as stopped")
		m.markStopped(state, sample.Now)
		return
	}
	state.failures = 0

	if !sample.Running {
		m.markStopped(state, sample.Now)
		return
	}

	// Keep the process record fresh on every running tick.
	uptime := sample.Now.Sub(sample.ProcessStart).Seconds()
	proc, err := m.store.UpsertProcess(name, sample.PID, sample.Now, uptime)
	if err != nil {
		state.storageWarn = true
		logger.Error().Err(err).Str("process", name).Msg("Failed to upsert process record")
	} else {
		state.storageWarn = false
		state.processID = proc.ID
	}

	state.running = true
	state.lastSeenAt = sample.Now

	// A restart shows up as a PID change on an open session. It takes
	// precedence over the inactivity check: close at now, open a fresh
	// session at now, as two separate writes.
	if state.sessionOpen && sample.PID != state.pid {
		logger.Info().
			Str("process", name).
			Int32("old_pid", state.pid).
			Int32("new_pid", sample.PID).
			Msg("PID changed, rolling session")
		m.closeSession(state, sample.Now)
		state.idle = false
		state.pid = sample.PID
		m.openSession(state, sample.Now)
		return
	}
	state.pid = sample.PID

	if state.sessionOpen {
		sinceActivity := sample.Now.Sub(sample.LastInput)
		if sinceActivity <= m.inactivityTimeout {
			if sample.LastInput.After(state.lastActivity) {
				state.lastActivity = sample.LastInput
				if err := m.store.UpdateActivity(state.handle, sample.LastInput); err != nil {
					state.storageWarn = true
					logger.Error().Err(err).Str("process", name).Msg("Failed to update session activity")
				}
			}
			return
		}

		// No qualifying input within the timeout. The session ends at
		// the instant the last genuine input stopped qualifying, not at
		// the tick that noticed. A session opened on detection with
		// already-stale input has a synthetic lastActivity near now, so
		// the end is clamped to the tick to keep it out of the future.
		end := state.lastActivity.Add(m.inactivityTimeout)
		if end.After(sample.Now) {
			end = sample.Now
		}
		logger.Info().
			Str("process", name).
			Time("end", end).
			Msg("Inactivity timeout, closing session")
		m.closeSession(state, end)
		state.idle = true
		return
	}

	if state.idle {
		// Reopen only once fresh input arrives; never speculatively.
		if sample.LastInput.After(state.lastActivity) &&
			sample.Now.Sub(sample.LastInput) <= m.inactivityTimeout {
			state.idle = false
			m.openSession(state, sample.Now)
		}
		return
	}

	// Process running with no session and no pending idle window: it is
	// newly detected, open a session.
	m.openSession(state, sample.Now)
}

// Shutdown closes every open session at now so no session is left
// dangling across a monitoring stop.
func (m *Machine) Shutdown(now time.Time) {
	for _, name := range m.names {
		state := m.states[name]
		if state.sessionOpen {
			m.closeSession(state, now)
		}
		state.idle = false
	}
}

// markStopped closes any open session at the last tick the process was
// confirmed running and clears the persisted pid.
func (m *Machine) markStopped(state *processState, now time.Time) {
	if state.sessionOpen {
		end := state.lastSeenAt
		if end.IsZero() {
			end = now
		}
		m.closeSession(state, end)
	}

	if state.running {
		if err := m.store.ClearPID(state.name); err != nil {
			state.storageWarn = true
			logger.Error().Err(err).Str("process", state.name).Msg("Failed to clear process pid")
		}
	}

	state.running = false
	state.idle = false
	state.pid = 0
}

func (m *Machine) openSession(state *processState, start time.Time) {
	if state.processID == 0 {
		// The process row write failed this tick; the open retries on
		// the next successful upsert.
		return
	}

	handle, err := m.store.OpenSession(state.processID, start)
	if err != nil {
		state.storageWarn = true
		logger.Error().Err(err).Str("process", state.name).Msg("Failed to open session")
		return
	}

	state.handle = handle
	state.sessionOpen = true
	state.sessionStart = start
	state.lastActivity = start

	logger.Debug().Str("process", state.name).Time("start", start).Msg("Session opened")
}

func (m *Machine) closeSession(state *processState, end time.Time) {
	if !state.sessionOpen {
		return
	}
	if end.Before(state.sessionStart) {
		end = state.sessionStart
	}

	if err := m.store.CloseSession(state.handle, end); err != nil {
		state.storageWarn = true
		logger.Error().Err(err).Str("process", state.name).Msg("Failed to close session")
	}
	state.sessionOpen = false

	logger.Debug().Str("process", state.name).Time("end", end).Msg("Session closed")
}
