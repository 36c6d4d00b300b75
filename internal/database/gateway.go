package database

import (
	"strings"
	"time"

	"github.com/engziada/procwatch/internal/models"

	"github.com/pkg/errors"

	"gorm.io/gorm"
)

// Sentinel errors returned by the gateway. Callers match them with
// errors.Is.
var (
	// ErrSessionOpen means OpenSession was called while another session
	// for the same process is still open. The tracker never does this;
	// hitting it indicates a caller bug.
	ErrSessionOpen = errors.New("an open session already exists for this process")

	// ErrStaleHandle means the handle's session was already closed (or
	// never existed). Closed sessions are never resurrected.
	ErrStaleHandle = errors.New("session handle refers to a closed or missing session")

	// ErrAlreadyClosed means CloseSession was called on a closed session
	// with a different end time.
	ErrAlreadyClosed = errors.New("session already closed with a different end time")
)

// Gateway is the durable store of monitored-process records and their
// activity-log entries: upsert for process records, append-only for log
// entries. It is owned exclusively by the poll loop goroutine.
type Gateway struct {
	db *DB
}

// NewGateway creates a new gateway instance
func NewGateway(db *DB) *Gateway {
	return &Gateway{db: db}
}

// UpsertProcess creates or updates the record for a process name.
// Idempotent per name; names are lowercased so the key is
// case-insensitive.
func (g *Gateway) UpsertProcess(name string, pid int32, lastSeen time.Time, uptimeSeconds float64) (*models.MonitoredProcess, error) {
	name = strings.ToLower(name)

	var proc models.MonitoredProcess
	result := g.db.Where("process_name = ?", name).First(&proc)
	if result.Error != nil {
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errors.Wrap(result.Error, "failed to look up monitored process")
		}

		proc = models.MonitoredProcess{
			ProcessName:       name,
			PID:               &pid,
			LastSeenAt:        lastSeen,
			LastUptimeSeconds: uptimeSeconds,
		}
		if err := g.db.Create(&proc).Error; err != nil {
			return nil, errors.Wrap(err, "failed to insert monitored process")
		}
		return &proc, nil
	}

	proc.PID = &pid
	proc.LastSeenAt = lastSeen
	proc.LastUptimeSeconds = uptimeSeconds
	if err := g.db.Save(&proc).Error; err != nil {
		return nil, errors.Wrap(err, "failed to update monitored process")
	}

	return &proc, nil
}

// ClearPID marks the named process as not currently running. A no-op for
// names that were never seen.
func (g *Gateway) ClearPID(name string) error {
	result := g.db.Model(&models.MonitoredProcess{}).
		Where("process_name = ?", strings.ToLower(name)).
		Update("pid", nil)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to clear process pid")
	}
	return nil
}

// OpenSession appends a new open session for the process. Fails with
// ErrSessionOpen if one is already open.
func (g *Gateway) OpenSession(processID uint, start time.Time) (models.SessionHandle, error) {
	var open models.ActivitySession
	result := g.db.Where("process_id = ? AND end_time IS NULL", processID).First(&open)
	if result.Error == nil {
		return models.SessionHandle{}, errors.Wrapf(ErrSessionOpen, "process %d, session %d", processID, open.ID)
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return models.SessionHandle{}, errors.Wrap(result.Error, "failed to check for open session")
	}

	session := models.ActivitySession{
		ProcessID:        processID,
		StartTime:        start,
		LastActivityTime: start,
	}
	if err := g.db.Create(&session).Error; err != nil {
		return models.SessionHandle{}, errors.Wrap(err, "failed to insert activity session")
	}

	return models.SessionHandle{SessionID: session.ID, ProcessID: processID}, nil
}

// UpdateActivity advances the open session's last activity time. Fails
// with ErrStaleHandle when the session has already been closed; it never
// resurrects a closed session.
func (g *Gateway) UpdateActivity(handle models.SessionHandle, lastActivity time.Time) error {
	result := g.db.Model(&models.ActivitySession{}).
		Where("id = ? AND end_time IS NULL", handle.SessionID).
		Update("last_activity_time", lastActivity)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update session activity")
	}
	if result.RowsAffected == 0 {
		return errors.Wrapf(ErrStaleHandle, "session %d", handle.SessionID)
	}
	return nil
}

// CloseSession sets the session's end time and materializes its duration
// in one write. Idempotent when called again with the same end time;
// fails with ErrAlreadyClosed for a different one.
func (g *Gateway) CloseSession(handle models.SessionHandle, end time.Time) error {
	var session models.ActivitySession
	result := g.db.First(&session, handle.SessionID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return errors.Wrapf(ErrStaleHandle, "session %d", handle.SessionID)
		}
		return errors.Wrap(result.Error, "failed to look up session")
	}

	if session.EndTime != nil {
		if session.EndTime.Equal(end) {
			return nil
		}
		return errors.Wrapf(ErrAlreadyClosed, "session %d closed at %s", session.ID, session.EndTime)
	}

	duration := end.Sub(session.StartTime).Seconds()
	updates := map[string]interface{}{
		"end_time":         end,
		"duration_seconds": duration,
	}
	update := g.db.Model(&models.ActivitySession{}).
		Where("id = ? AND end_time IS NULL", session.ID).
		Updates(updates)
	if update.Error != nil {
		return errors.Wrap(update.Error, "failed to close session")
	}
	return nil
}

// CloseAllOpen closes every open session at the given end time. The poll
// loop closes its own sessions through handles on shutdown; this sweep
// also catches rows left open by an earlier crashed run.
func (g *Gateway) CloseAllOpen(end time.Time) (int, error) {
	var open []models.ActivitySession
	if err := g.db.Where("end_time IS NULL").Find(&open).Error; err != nil {
		return 0, errors.Wrap(err, "failed to list open sessions")
	}

	for _, session := range open {
		if err := g.CloseSession(models.SessionHandle{SessionID: session.ID, ProcessID: session.ProcessID}, end); err != nil {
			return 0, err
		}
	}

	return len(open), nil
}

// ListSessions returns the sessions of a process whose start time falls
// in [from, to), ordered by start time ascending. Zero bounds are
// treated as unbounded.
func (g *Gateway) ListSessions(name string, from, to time.Time) ([]models.ActivitySession, error) {
	query := g.db.Model(&models.ActivitySession{}).
		Joins("JOIN monitored_processes ON monitored_processes.id = activity_logs.process_id").
		Where("monitored_processes.process_name = ?", strings.ToLower(name))

	if !from.IsZero() {
		query = query.Where("activity_logs.start_time >= ?", from)
	}
	if !to.IsZero() {
		query = query.Where("activity_logs.start_time < ?", to)
	}

	var sessions []models.ActivitySession
	if err := query.Order("activity_logs.start_time ASC").Find(&sessions).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list sessions")
	}

	return sessions, nil
}

// ListProcesses returns every monitored process, most recently seen
// first.
func (g *Gateway) ListProcesses() ([]models.MonitoredProcess, error) {
	var procs []models.MonitoredProcess
	if err := g.db.Order("last_seen_at DESC").Find(&procs).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list monitored processes")
	}
	return procs, nil
}

// SessionSummaries aggregates closed sessions per process since the
// given time. SQL does the SUM; callers compute derived presentation
// fields.
func (g *Gateway) SessionSummaries(since time.Time) ([]models.SessionSummary, error) {
	var summaries []models.SessionSummary

	result := g.db.Model(&models.ActivitySession{}).
		Select("monitored_processes.process_name AS process_name, " +
			"SUM(activity_logs.duration_seconds) AS total_seconds, " +
			"COUNT(*) AS session_count, " +
			"AVG(activity_logs.duration_seconds) AS avg_seconds").
		Joins("JOIN monitored_processes ON monitored_processes.id = activity_logs.process_id").
		Where("activity_logs.end_time IS NOT NULL AND activity_logs.start_time >= ?", since).
		Group("monitored_processes.process_name").
		Order("total_seconds DESC").
		Scan(&summaries)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to aggregate session summaries")
	}

	return summaries, nil
}
