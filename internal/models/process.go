package models

import (
	"time"
)

// MonitoredProcess is the long-lived record for a process name that has
// been seen running at least once. Names are stored lowercased so the
// unique key is case-insensitive. Records are never deleted.
type MonitoredProcess struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	ProcessName       string    `gorm:"not null;uniqueIndex" json:"process_name"`
	PID               *int32    `gorm:"column:pid" json:"pid"` // nil while not running
	LastSeenAt        time.Time `gorm:"not null;index" json:"last_seen_at"`
	LastUptimeSeconds float64   `gorm:"not null;default:0" json:"last_uptime_seconds"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Sessions []ActivitySession `gorm:"foreignKey:ProcessID" json:"-"`
}

// SessionSummary is an aggregate over closed sessions of one process,
// computed in SQL for reporting.
type SessionSummary struct {
	ProcessName  string  `json:"process_name"`
	TotalSeconds float64 `json:"total_seconds"`
	SessionCount int     `json:"session_count"`
	AvgSeconds   float64 `json:"avg_seconds"`
	Percentage   float64 `json:"percentage,omitempty"`
}

type ReportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Type  string    `json:"type"` // "day", "week", "month"
}

type Report struct {
	Period       ReportPeriod     `json:"period"`
	Processes    []SessionSummary `json:"processes"`
	TotalSeconds float64          `json:"total_seconds"`
	GeneratedAt  time.Time        `json:"generated_at"`
}
