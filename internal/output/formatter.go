package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/netip"
	"path/filepath"
	"strconv"
	"strings"

	"connscan/internal/probe"
)

// Record is one exported open port.
type Record struct {
	Host    string `json:"host"`
	IP      string `json:"ip"`
	Port    uint16 `json:"port"`
	Service string `json:"service"`
}

// Records converts open probe results into export rows, keeping their order.
func Records(host string, ip netip.Addr, results []probe.Result) []Record {
	out := make([]Record, 0, len(results))
	for _, r := range results {
		if !r.Open {
			continue
		}
		out = append(out, Record{Host: host, IP: ip.String(), Port: r.Port, Service: r.Service})
	}
	return out
}

// Format names an export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatText Format = "text"
	FormatGrep Format = "grep"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatText, FormatGrep, FormatXLSX:
		return f, nil
	case "jsonl":
		return FormatJSON, nil
	case "txt":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want csv, json, text, grep or xlsx)", s)
	}
}

// FormatForPath infers the format from the file extension, defaulting to CSV.
func FormatForPath(path string) Format {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if f, err := ParseFormat(ext); err == nil {
		return f
	}
	if ext == "gnmap" {
		return FormatGrep
	}
	return FormatCSV
}

// Formatter encodes records onto a writer.
type Formatter interface {
	Write(rec *Record) error
	Flush() error
}

// NewFormatter returns the formatter for f.
func NewFormatter(f Format, w io.Writer) (Formatter, error) {
	switch f {
	case FormatCSV, "":
		return NewCSVFormatter(w)
	case FormatJSON:
		return NewJSONFormatter(w), nil
	case FormatText:
		return NewTextFormatter(w), nil
	case FormatGrep:
		return NewGrepFormatter(w), nil
	case FormatXLSX:
		return NewXLSXFormatter(w)
	default:
		return nil, fmt.Errorf("unknown output format %q", f)
	}
}

// CSVHeader is the first row of every CSV export.
var CSVHeader = []string{"host", "ip", "port", "service"}

// CSVFormatter writes CSV.
type CSVFormatter struct {
	writer *csv.Writer
}

func NewCSVFormatter(w io.Writer) (*CSVFormatter, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return nil, err
	}
	return &CSVFormatter{writer: cw}, nil
}

func (f *CSVFormatter) Write(rec *Record) error {
	return f.writer.Write([]string{
		rec.Host,
		rec.IP,
		strconv.Itoa(int(rec.Port)),
		strings.ToValidUTF8(rec.Service, ""),
	})
}

func (f *CSVFormatter) Flush() error {
	f.writer.Flush()
	return f.writer.Error()
}

// JSONFormatter writes JSONL.
type JSONFormatter struct {
	enc *json.Encoder
}

func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{enc: json.NewEncoder(w)}
}

func (f *JSONFormatter) Write(rec *Record) error {
	return f.enc.Encode(rec)
}

func (f *JSONFormatter) Flush() error { return nil }

// TextFormatter writes one "host:port | service" line per record.
type TextFormatter struct {
	w io.Writer
}

func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{w: w}
}

func (f *TextFormatter) Write(rec *Record) error {
	svc := ""
	if rec.Service != "" {
		svc = " | " + rec.Service
	}
	_, err := fmt.Fprintf(f.w, "%s:%d%s\n", rec.Host, rec.Port, svc)
	return err
}

func (f *TextFormatter) Flush() error { return nil }

// GrepFormatter writes nmap-style grepable output.
type GrepFormatter struct {
	w io.Writer
}

func NewGrepFormatter(w io.Writer) *GrepFormatter {
	return &GrepFormatter{w: w}
}

func (f *GrepFormatter) Write(rec *Record) error {
	host := rec.Host
	if host == rec.IP {
		host = ""
	}
	_, err := fmt.Fprintf(f.w, "Host: %s (%s)\tPorts: %d/open/tcp//%s///\n",
		rec.IP, host, rec.Port, rec.Service)
	return err
}

func (f *GrepFormatter) Flush() error { return nil }
