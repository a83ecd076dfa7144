// Package scan runs connect probes against one host with bounded parallelism.
package scan

import (
	"errors"
	"net/netip"
	"time"

	"connscan/internal/targets"
)

const (
	MinConcurrency = 1
	MaxConcurrency = 1000
)

// Session describes one scan. It is built before probing starts and only read afterwards.
type Session struct {
	Host        string // as given by the user, before resolution
	Addr        netip.Addr
	Timeout     time.Duration
	Concurrency int // clamped by ClampConcurrency at run time
	Ports       targets.PortSet
	Shuffle     bool // dispatch ports in random order instead of ascending
}

// ClampConcurrency bounds a requested worker count to [MinConcurrency, MaxConcurrency].
func ClampConcurrency(n int) int {
	return min(max(n, MinConcurrency), MaxConcurrency)
}

// Validate checks the fields Run depends on.
func (s Session) Validate() error {
	if !s.Addr.IsValid() {
		return errors.New("session has no target address")
	}
	if s.Ports.Empty() {
		return targets.ErrNoPorts
	}
	if s.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	return nil
}
