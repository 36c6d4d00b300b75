package tracker

import (
	"fmt"
	"strings"
	"time"

	"github.com/engziada/procwatch/internal/models"
)

// memStore is an in-memory Store with the same semantics as the sqlite
// gateway, so machine tests can run against deterministic storage and
// assert the persisted shape directly.
type memStore struct {
	procs    map[string]*models.MonitoredProcess
	sessions []*memSession

	nextProcID    uint
	nextSessionID uint

	failUpsert bool
	failOpen   bool
	failClose  bool
	failUpdate bool
}

type memSession struct {
	id           uint
	processID    uint
	start        time.Time
	lastActivity time.Time
	end          *time.Time
	duration     *float64
}

func newMemStore() *memStore {
	return &memStore{procs: make(map[string]*models.MonitoredProcess)}
}

func (s *memStore) UpsertProcess(name string, pid int32, lastSeen time.Time, uptimeSeconds float64) (*models.MonitoredProcess, error) {
	if s.failUpsert {
		return nil, fmt.Errorf("upsert failed")
	}

	name = strings.ToLower(name)
	proc, ok := s.procs[name]
	if !ok {
		s.nextProcID++
		proc = &models.MonitoredProcess{ID: s.nextProcID, ProcessName: name}
		s.procs[name] = proc
	}
	p := pid
	proc.PID = &p
	proc.LastSeenAt = lastSeen
	proc.LastUptimeSeconds = uptimeSeconds
	return proc, nil
}

func (s *memStore) ClearPID(name string) error {
	if proc, ok := s.procs[strings.ToLower(name)]; ok {
		proc.PID = nil
	}
	return nil
}

func (s *memStore) OpenSession(processID uint, start time.Time) (models.SessionHandle, error) {
	if s.failOpen {
		return models.SessionHandle{}, fmt.Errorf("open failed")
	}

	for _, sess := range s.sessions {
		if sess.processID == processID && sess.end == nil {
			return models.SessionHandle{}, fmt.Errorf("an open session already exists for process %d", processID)
		}
	}

	s.nextSessionID++
	sess := &memSession{
		id:           s.nextSessionID,
		processID:    processID,
		start:        start,
		lastActivity: start,
	}
	s.sessions = append(s.sessions, sess)
	return models.SessionHandle{SessionID: sess.id, ProcessID: processID}, nil
}

func (s *memStore) UpdateActivity(handle models.SessionHandle, lastActivity time.Time) error {
	if s.failUpdate {
		return fmt.Errorf("update failed")
	}

	sess := s.find(handle.SessionID)
	if sess == nil || sess.end != nil {
		return fmt.Errorf("stale handle for session %d", handle.SessionID)
	}
	sess.lastActivity = lastActivity
	return nil
}

func (s *memStore) CloseSession(handle models.SessionHandle, end time.Time) error {
	if s.failClose {
		return fmt.Errorf("close failed")
	}

	sess := s.find(handle.SessionID)
	if sess == nil {
		return fmt.Errorf("no such session %d", handle.SessionID)
	}
	if sess.end != nil {
		if sess.end.Equal(end) {
			return nil
		}
		return fmt.Errorf("session %d already closed", handle.SessionID)
	}

	e := end
	d := end.Sub(sess.start).Seconds()
	sess.end = &e
	sess.duration = &d
	return nil
}

func (s *memStore) find(id uint) *memSession {
	for _, sess := range s.sessions {
		if sess.id == id {
			return sess
		}
	}
	return nil
}

// openCount returns the number of open sessions per process id.
func (s *memStore) openCount() map[uint]int {
	counts := make(map[uint]int)
	for _, sess := range s.sessions {
		if sess.end == nil {
			counts[sess.processID]++
		}
	}
	return counts
}

func (s *memStore) sessionsFor(name string) []*memSession {
	proc, ok := s.procs[strings.ToLower(name)]
	if !ok {
		return nil
	}
	var out []*memSession
	for _, sess := range s.sessions {
		if sess.processID == proc.ID {
			out = append(out, sess)
		}
	}
	return out
}
