package prober

import (
	"fmt"
	"time"

	"github.com/engziada/procwatch/pkg/integrations/sysproc"
	"github.com/engziada/procwatch/pkg/integrations/x11input"
	"github.com/engziada/procwatch/pkg/probe"
)

// NewProcessProbe returns the process probe for the current system.
func NewProcessProbe(callTimeout time.Duration) probe.ProcessProbe {
	return sysproc.NewProbe(callTimeout)
}

// NewInputProbe returns the global-input probe for the current system,
// or an error when no input source is available.
func NewInputProbe() (probe.InputProbe, error) {
	p := x11input.NewProbe()
	if p.IsAvailable() {
		return p, nil
	}
	_ = p.Close()

	return nil, fmt.Errorf("no input probe available for this session")
}
