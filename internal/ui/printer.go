package ui

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"connscan/internal/probe"
	"connscan/internal/scan"
)

// TextPrinter writes the plain console report. Out defaults to stdout, Err to stderr.
type TextPrinter struct {
	Out io.Writer
	Err io.Writer
}

func (p *TextPrinter) out() io.Writer {
	if p.Out == nil {
		return os.Stdout
	}
	return p.Out
}

func (p *TextPrinter) err() io.Writer {
	if p.Err == nil {
		return os.Stderr
	}
	return p.Err
}

// PrintHeader describes the scan about to start.
func (p *TextPrinter) PrintHeader(s scan.Session) {
	w := p.out()
	fmt.Fprintf(w, "Target: %s (%s)\n", s.Host, s.Addr)
	fmt.Fprintf(w, "Ports: %d ports (%d-%d)\n", s.Ports.Len(), s.Ports.First(), s.Ports.Last())
	fmt.Fprintf(w, "Threads: %d, Timeout: %s\n", s.Concurrency, FormatSeconds(s.Timeout))
	fmt.Fprint(w, "Starting scan...\n\n")
}

// PrintOpen prints one discovered port.
func (p *TextPrinter) PrintOpen(r probe.Result) {
	fmt.Fprintf(p.out(), "[OPEN]  Port %5d  Service: %s\n", r.Port, serviceOrDash(r.Service))
}

// PrintSummary prints the footer. With sortPorts the list is ordered by port
// number, otherwise it keeps discovery order.
func (p *TextPrinter) PrintSummary(rep scan.Report, sortPorts bool) {
	if rep.Interrupted {
		fmt.Fprint(p.err(), "\n[!] Scan interrupted by user (Ctrl+C). Shutting down...\n")
	}
	open := rep.Open
	if sortPorts {
		open = scan.SortByPort(open)
	}
	w := p.out()
	fmt.Fprintf(w, "\nScan finished in %s\n", FormatElapsed(rep.Elapsed))
	fmt.Fprintf(w, "Open ports found: %d\n", len(open))
	for _, r := range open {
		fmt.Fprintf(w, " - %d  %s\n", r.Port, r.Service)
	}
}

// PrintSaved confirms a successful export.
func (p *TextPrinter) PrintSaved(path string) {
	fmt.Fprintf(p.out(), "Results saved to %s\n", path)
}

// FormatElapsed renders d as H:MM:SS, dropping fractions of a second.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", secs/3600, secs/60%60, secs%60)
}

// FormatSeconds renders d as seconds with the shortest exact decimal, e.g. "0.8s".
func FormatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64) + "s"
}

func serviceOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
