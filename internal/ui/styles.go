package ui

import "github.com/charmbracelet/lipgloss"

var (
	// Header / chrome
	styleDim      = lipgloss.NewStyle().Faint(true)
	styleAccent   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true) // blue
	styleBar      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))            // green
	styleBarTrail = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))           // dark gray
	styleSep      = lipgloss.NewStyle().Faint(true)
	styleHelp     = lipgloss.NewStyle().Faint(true)
	styleWarn     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")) // yellow

	// Table
	styleColHeader = lipgloss.NewStyle().Bold(true).Faint(true)
	styleOpen      = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	styleService   = lipgloss.NewStyle().Foreground(lipgloss.Color("13")) // magenta
	styleCursor    = lipgloss.NewStyle().Background(lipgloss.Color("236")).Bold(true)
)
