package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"connscan/internal/probe"
)

const tickInterval = 250 * time.Millisecond

// Model is the bubbletea TUI model.
type Model struct {
	// Config
	Target   string
	Addr     string
	PortSpec string

	// Cancel stops the scan when the user quits.
	Cancel func()

	// Data
	open []probe.Result

	// Progress
	done, total int
	start       time.Time
	elapsed     time.Duration

	// View state
	cursor int
	offset int
	follow bool

	// Terminal
	width, height int
	finished      bool
	interrupted   bool
	quitting      bool
}

func NewModel(target, addr, portSpec string, total int, cancel func()) Model {
	return Model{
		Target:   target,
		Addr:     addr,
		PortSpec: portSpec,
		Cancel:   cancel,
		total:    total,
		start:    time.Now(),
		follow:   true,
		open:     make([]probe.Result, 0, 64),
	}
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.updateKeys(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ensureVisible()

	case OpenMsg:
		m.open = append(m.open, probe.Result(msg))
		if m.follow {
			m.cursorToEnd()
		}

	case ProgressMsg:
		m.done = msg.Done
		m.total = msg.Total

	case tickMsg:
		if m.finished || m.quitting {
			return m, nil
		}
		m.elapsed = time.Time(msg).Sub(m.start)
		return m, tick()

	case DoneMsg:
		m.finished = true
		m.interrupted = msg.Report.Interrupted
		m.elapsed = msg.Report.Elapsed
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		if m.Cancel != nil {
			m.Cancel()
		}
		return m, tea.Quit
	case "f":
		m.follow = !m.follow
		if m.follow {
			m.cursorToEnd()
		}
	case "j", "down":
		m.follow = false
		if m.cursor < len(m.open)-1 {
			m.cursor++
		}
		m.ensureVisible()
	case "k", "up":
		m.follow = false
		if m.cursor > 0 {
			m.cursor--
		}
		m.ensureVisible()
	case "pgdown", "ctrl+d":
		m.follow = false
		m.cursor = min(m.cursor+m.visibleRows(), max(len(m.open)-1, 0))
		m.ensureVisible()
	case "pgup", "ctrl+u":
		m.follow = false
		m.cursor = max(m.cursor-m.visibleRows(), 0)
		m.ensureVisible()
	case "g", "home":
		m.follow = false
		m.cursor = 0
		m.offset = 0
	case "G", "end":
		m.follow = true
		m.cursorToEnd()
	}
	return m, nil
}

func (m *Model) cursorToEnd() {
	m.cursor = max(len(m.open)-1, 0)
	m.ensureVisible()
}

func (m *Model) ensureVisible() {
	vis := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+vis {
		m.offset = m.cursor - vis + 1
	}
}

// visibleRows returns how many table rows fit on screen.
// Layout: header + progress + col header + separator + table + separator + help
func (m Model) visibleRows() int {
	return max(m.height-6, 1)
}

func (m Model) progress() float64 {
	if m.total <= 0 {
		return 0
	}
	return min(float64(m.done)/float64(m.total), 1)
}

// ── View ──────────────────────────────────────────────────────────────

func (m Model) View() string {
	if m.quitting || m.finished {
		return ""
	}

	w := m.width
	if w < 40 {
		w = 80
	}

	var b strings.Builder
	m.renderHeader(&b, w)
	m.renderProgress(&b, w)
	m.renderColHeader(&b, w)
	m.renderTable(&b, w)
	m.renderHelp(&b, w)
	return b.String()
}

func (m Model) renderHeader(b *strings.Builder, w int) {
	title := styleAccent.Render("connscan")
	target := m.Target
	if m.Addr != "" && m.Addr != m.Target {
		target += " (" + m.Addr + ")"
	}
	meta := styleDim.Render(fmt.Sprintf(" · %s · %s", truncStr(target, 40), truncStr(m.PortSpec, w/3)))
	b.WriteString(" " + title + meta + "\n")
}

func (m Model) renderProgress(b *strings.Builder, w int) {
	barW := 20
	if w > 120 {
		barW = 30
	}
	p := m.progress()
	filled := min(int(p*float64(barW)), barW)
	bar := styleBar.Render(strings.Repeat("█", filled)) + styleBarTrail.Render(strings.Repeat("░", barW-filled))
	pct := fmt.Sprintf("%3.0f%%", p*100)

	eta := ""
	if p > 0.001 && p < 1 {
		rem := m.elapsed.Seconds() * (1 - p) / p
		if rem < 60 {
			eta = fmt.Sprintf(" ETA %0.0fs", rem)
		} else {
			eta = fmt.Sprintf(" ETA %dm%02ds", int(rem)/60, int(rem)%60)
		}
	}
	if p >= 1 {
		eta = " done"
	}

	stats := fmt.Sprintf("  %s/%s probed  Open %s",
		fmtCompact(uint64(m.done)), fmtCompact(uint64(m.total)), styleOpen.Render(fmt.Sprintf("%d", len(m.open))))
	line := fmt.Sprintf(" %s %s%s%s  %s", bar, pct, eta, styleDim.Render(stats), styleDim.Render(FormatElapsed(m.elapsed)))
	b.WriteString(line + "\n")
}

// Column widths
const (
	colPort = 7
	colRTT  = 10
)

func (m Model) renderColHeader(b *strings.Builder, w int) {
	line := fmt.Sprintf(" %-*s %-*s %s", colPort, "PORT", colRTT, "RTT", "SERVICE")
	b.WriteString(styleColHeader.Render(line) + "\n")
	b.WriteString(styleSep.Render(" "+strings.Repeat("─", w-2)) + "\n")
}

func (m Model) renderTable(b *strings.Builder, w int) {
	vis := m.visibleRows()
	end := min(m.offset+vis, len(m.open))

	for i := m.offset; i < end; i++ {
		r := m.open[i]
		port := padRight(fmt.Sprintf("%d", r.Port), colPort)
		rtt := padRight(r.RTT.Round(time.Millisecond/10).String(), colRTT)
		svc := serviceOrDash(r.Service)

		if i == m.cursor && !m.follow {
			marker := styleAccent.Render("▸")
			content := fmt.Sprintf("%s %s %s", port, rtt, svc)
			b.WriteString(marker + styleCursor.Render(truncStr(content, w-2)) + "\n")
			continue
		}
		b.WriteString(fmt.Sprintf(" %s %s %s\n", styleOpen.Render(port), styleDim.Render(rtt), styleService.Render(svc)))
	}

	for i := end - m.offset; i < vis; i++ {
		b.WriteString(styleDim.Render(" ~") + "\n")
	}
}

func (m Model) renderHelp(b *strings.Builder, w int) {
	b.WriteString(styleSep.Render(" "+strings.Repeat("─", w-2)) + "\n")
	help := " q:quit  ↑↓/jk:scroll  g/G:top/end  f:follow"
	if m.follow {
		help += styleWarn.Render("  [follow]")
	}
	b.WriteString(styleHelp.Render(help))
}

// ── Formatting helpers ────────────────────────────────────────────────

func fmtCompact(n uint64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 10_000 {
		return fmt.Sprintf("%.1fk", float64(n)/1000)
	}
	return fmt.Sprintf("%.0fk", float64(n)/1000)
}

func padRight(s string, w int) string {
	if len(s) >= w {
		return s[:w]
	}
	return s + strings.Repeat(" ", w-len(s))
}

func truncStr(s string, w int) string {
	if len(s) <= w {
		return s
	}
	if w < 2 {
		return s[:max(w, 0)]
	}
	return s[:w-1] + "…"
}
