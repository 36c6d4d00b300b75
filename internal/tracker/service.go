package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/engziada/procwatch/internal/config"
	"github.com/engziada/procwatch/internal/logger"
	"github.com/engziada/procwatch/pkg/probe"
)

// Display renders a live status snapshot. Implementations receive
// read-only copies and must not block the poll loop.
type Display interface {
	Render(snapshot Snapshot)
}

// Service drives the session tracker at a fixed poll interval. A single
// goroutine runs the loop; the store handle is owned by that goroutine
// exclusively. Cancellation is cooperative: the stop signal is checked
// between ticks, never mid-tick, so every session close/open pair is
// fully applied before shutdown.
type Service struct {
	config    *config.Config
	machine   *Machine
	processes probe.ProcessProbe
	input     probe.InputProbe
	clock     Clock
	display   Display
	targets   []string

	stopChan chan struct{}
	stopOnce sync.Once

	mu       sync.RWMutex
	running  bool
	snapshot Snapshot
}

// NewService wires the poll loop to its collaborators. The display may
// be nil.
func NewService(cfg *config.Config, store Store, processes probe.ProcessProbe, input probe.InputProbe, display Display) *Service {
	targets := cfg.NormalizedTargets()
	return &Service{
		config:    cfg,
		machine:   NewMachine(store, targets, cfg.Monitor.InactivityTimeout, cfg.Monitor.ProbeFailureThreshold),
		processes: processes,
		input:     input,
		clock:     SystemClock(),
		display:   display,
		targets:   targets,
		stopChan:  make(chan struct{}),
	}
}

// SetClock replaces the wall clock. Must be called before Start.
func (s *Service) SetClock(clock Clock) {
	s.clock = clock
}

// Start runs the poll loop until the context is cancelled or Stop is
// called. The in-flight tick always completes, and every open session is
// closed at the moment of shutdown.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("tracker is already running")
	}
	s.running = true
	s.mu.Unlock()

	logger.Info().
		Dur("poll_interval", s.config.Monitor.PollInterval).
		Dur("inactivity_timeout", s.config.Monitor.InactivityTimeout).
		Strs("targets", s.targets).
		Msg("Starting monitor")

	ticker := time.NewTicker(s.config.Monitor.PollInterval)
	defer ticker.Stop()

	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Monitor stopped by context")
			s.shutdown()
			return ctx.Err()

		case <-s.stopChan:
			logger.Info().Msg("Monitor stopped")
			s.shutdown()
			return nil

		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// Stop requests a cooperative stop. Safe to call from other goroutines
// and more than once.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// IsRunning reports whether the loop is active.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Snapshot returns the state published by the most recent tick.
func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// tick samples both probes for every target, feeds the machine and
// publishes a fresh snapshot. One name's failures never abort the
// others.
func (s *Service) tick(ctx context.Context) {
	now := s.clock.Now()

	lastInput, inputErr := s.input.LastInput(ctx)
	if inputErr != nil {
		logger.Warn().Err(inputErr).Msg("Input probe failed")
	}

	for _, name := range s.targets {
		sample := Sample{Now: now, LastInput: lastInput}

		if inputErr != nil {
			sample.ProbeFailed = true
		} else {
			info, err := s.processes.Find(ctx, name)
			switch {
			case err != nil:
				logger.Warn().Err(err).Str("process", name).Msg("Process probe failed")
				sample.ProbeFailed = true
			case info != nil:
				sample.Running = true
				sample.PID = info.PID
				sample.ProcessStart = info.StartedAt
			}
		}

		s.machine.Observe(name, sample)
	}

	snapshot := s.machine.Snapshot(now)

	s.mu.Lock()
	s.snapshot = snapshot
	s.mu.Unlock()

	if s.display != nil {
		s.display.Render(snapshot)
	}
}

// shutdown finishes the run by closing all open sessions at now.
func (s *Service) shutdown() {
	now := s.clock.Now()
	s.machine.Shutdown(now)

	snapshot := s.machine.Snapshot(now)
	s.mu.Lock()
	s.snapshot = snapshot
	s.running = false
	s.mu.Unlock()
}
