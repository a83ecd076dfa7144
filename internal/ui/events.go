package ui

import (
	"time"

	"connscan/internal/probe"
	"connscan/internal/scan"
)

// OpenMsg reports an open port as soon as the coordinator records it.
type OpenMsg probe.Result

// ProgressMsg carries the number of finished probes.
type ProgressMsg struct {
	Done  int
	Total int
}

// DoneMsg ends the interactive view once the scan has returned.
type DoneMsg struct {
	Report scan.Report
}

type tickMsg time.Time

// Mode selects the UI output mode.
type Mode int

const (
	ModeTUI    Mode = iota // full bubbletea interactive
	ModeText               // header, one line per open port, summary
	ModeSilent             // summary only
)

// SelectMode picks the output mode. The TUI needs a terminal on stdout.
func SelectMode(terminal, noTUI, quiet bool) Mode {
	switch {
	case quiet:
		return ModeSilent
	case noTUI || !terminal:
		return ModeText
	default:
		return ModeTUI
	}
}

func (m Mode) String() string {
	switch m {
	case ModeTUI:
		return "tui"
	case ModeText:
		return "text"
	case ModeSilent:
		return "silent"
	default:
		return "unknown"
	}
}
