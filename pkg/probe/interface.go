package probe

import (
	"context"
	"time"
)

// ProcessInfo describes a running OS process found by name.
type ProcessInfo struct {
	PID       int32
	StartedAt time.Time
}

// ProcessProbe answers, on demand, whether a named process is running.
// Name comparison is case-insensitive.
type ProcessProbe interface {
	// Find returns info about the named process, or nil if it is not
	// currently running. An error means the probe itself failed and the
	// answer is unknown.
	Find(ctx context.Context, name string) (*ProcessInfo, error)

	// Close cleans up any resources used by the probe
	Close() error
}

// InputProbe reports the timestamp of the most recent mouse or keyboard
// event system-wide.
type InputProbe interface {
	// LastInput returns the time of the most recent global input event.
	LastInput(ctx context.Context) (time.Time, error)

	// IsAvailable checks if this probe can run on the current system
	IsAvailable() bool

	// Close cleans up any resources used by the probe
	Close() error
}
