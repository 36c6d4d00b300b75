package x11input

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/screensaver"
	"github.com/jezek/xgb/xproto"

	"github.com/engziada/procwatch/pkg/probe"
)

var _ probe.InputProbe = (*Probe)(nil)

// Probe implements probe.InputProbe for X11 sessions. It asks the X
// server how long ago the last input event happened, preferring the
// MIT-SCREEN-SAVER extension over a direct connection and falling back
// to the xprintidle tool.
type Probe struct {
	conn          *xgb.Conn
	root          xproto.Window
	hasXprintidle bool
}

// NewProbe creates an X11 input probe. The X connection is optional: if
// it cannot be established the probe still works through xprintidle.
func NewProbe() *Probe {
	p := &Probe{}
	p.hasXprintidle = commandExists("xprintidle")

	conn, err := xgb.NewConn()
	if err != nil {
		return p
	}

	if err := screensaver.Init(conn); err != nil {
		conn.Close()
		return p
	}

	p.conn = conn
	p.root = xproto.Setup(conn).DefaultScreen(conn).Root
	return p
}

func commandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

// IsAvailable checks if X11 input detection is available
func (p *Probe) IsAvailable() bool {
	if p.conn != nil {
		return true
	}
	return p.hasXprintidle && os.Getenv("DISPLAY") != ""
}

// LastInput returns the time of the most recent global input event,
// derived from the X server's idle counter.
func (p *Probe) LastInput(ctx context.Context) (time.Time, error) {
	idle, err := p.idleTime(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return time.Now().Add(-idle), nil
}

func (p *Probe) idleTime(ctx context.Context) (time.Duration, error) {
	if p.conn != nil {
		reply, err := screensaver.QueryInfo(p.conn, xproto.Drawable(p.root)).Reply()
		if err == nil {
			return time.Duration(reply.MsSinceUserInput) * time.Millisecond, nil
		}
		// Fall through to xprintidle on a broken connection.
	}

	if p.hasXprintidle {
		output, err := exec.CommandContext(ctx, "xprintidle").Output()
		if err != nil {
			return 0, fmt.Errorf("xprintidle failed: %w", err)
		}

		idleMs, err := strconv.ParseInt(strings.TrimSpace(string(output)), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("unexpected xprintidle output: %w", err)
		}

		return time.Duration(idleMs) * time.Millisecond, nil
	}

	return 0, fmt.Errorf("no X11 idle source available (X connection or xprintidle required)")
}

// Close cleans up the X connection
func (p *Probe) Close() error {
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
	return nil
}
