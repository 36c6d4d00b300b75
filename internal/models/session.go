package models

import (
	"time"
)

// ActivitySession is one contiguous span of detected activity for a
// monitored process. EndTime is nil while the session is open; a closed
// session is immutable. DurationSeconds is materialized at close time as
// end minus start and is never recomputed afterwards.
type ActivitySession struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	ProcessID        uint       `gorm:"not null;index" json:"process_id"`
	StartTime        time.Time  `gorm:"not null;index" json:"start_time"`
	EndTime          *time.Time `gorm:"index" json:"end_time"`
	LastActivityTime time.Time  `gorm:"not null" json:"last_activity_time"`
	DurationSeconds  *float64   `json:"duration_seconds"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName keeps the on-disk schema name stable.
func (ActivitySession) TableName() string {
	return "activity_logs"
}

// Open reports whether the session has not been closed yet.
func (s *ActivitySession) Open() bool {
	return s.EndTime == nil
}

// SessionHandle identifies an open session row for follow-up writes.
// It is handed out by the gateway when a session is opened and becomes
// stale once the session is closed.
type SessionHandle struct {
	SessionID uint
	ProcessID uint
}
