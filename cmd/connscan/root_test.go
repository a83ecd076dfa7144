package main

import (
	"bytes"
	"encoding/csv"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"connscan/internal/config"
	"connscan/internal/targets"
)

func fullTestConfig() *config.Config {
	return &config.Config{
		Scan: config.ScanConfig{
			Ports:    "22,80,443",
			Threads:  200,
			Timeout:  config.Duration{Duration: 1500 * time.Millisecond},
			Services: "/opt/services.yaml",
			Shuffle:  true,
		},
		Output: config.OutputConfig{
			File:    "results.json",
			Format:  "json",
			Quiet:   true,
			Verbose: true,
			NoTUI:   true,
			Sort:    true,
		},
	}
}

func TestApplyConfig_AllFieldsApplied(t *testing.T) {
	o := defaultOptions()
	applyConfig(fullTestConfig(), func(string) bool { return false }, &o)

	want := options{
		ports: "22,80,443", threads: 200, timeout: 1.5, services: "/opt/services.yaml",
		output: "results.json", format: "json", quiet: true, verbose: true, noTUI: true, sort: true, shuffle: true,
	}
	if o != want {
		t.Fatalf("options = %+v, want %+v", o, want)
	}
}

func TestApplyConfig_CLIOverrides(t *testing.T) {
	o := defaultOptions()
	o.ports = "8080"
	o.threads = 10
	set := map[string]bool{"ports": true, "threads": true}
	applyConfig(fullTestConfig(), func(name string) bool { return set[name] }, &o)

	if o.ports != "8080" || o.threads != 10 {
		t.Fatalf("CLI values overwritten: ports=%q threads=%d", o.ports, o.threads)
	}
	if o.timeout != 1.5 || o.output != "results.json" {
		t.Fatalf("config values not applied: timeout=%v output=%q", o.timeout, o.output)
	}
}

func TestApplyConfig_EmptyKeepsDefaults(t *testing.T) {
	o := defaultOptions()
	applyConfig(&config.Config{}, func(string) bool { return false }, &o)
	if o.ports != "1-1024" || o.threads != 50 || o.timeout != 0.8 {
		t.Fatalf("defaults changed: %+v", o)
	}
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func listenLoopback(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()
	return l.Addr().(*net.TCPAddr).Port
}

func TestRoot_LoopbackExport(t *testing.T) {
	port := listenLoopback(t)
	path := filepath.Join(t.TempDir(), "results.csv")

	stdout, _, err := execute(t, "127.0.0.1", "--ports", strconv.Itoa(port), "--no-tui", "--output", path)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, want := range []string{
		"Target: 127.0.0.1 (127.0.0.1)",
		"Starting scan...",
		"[OPEN]  Port " + strconv.Itoa(port),
		"Open ports found: 1",
		"Results saved to " + path,
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, stdout)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d CSV rows, want header + 1", len(rows))
	}
	if rows[1][0] != "127.0.0.1" || rows[1][2] != strconv.Itoa(port) {
		t.Fatalf("data row = %v", rows[1])
	}
}

func TestRoot_ExportFailureNonFatal(t *testing.T) {
	port := listenLoopback(t)
	blocker := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	stdout, stderr, err := execute(t, "127.0.0.1", "-p", strconv.Itoa(port), "--no-tui",
		"-o", filepath.Join(blocker, "out.csv"))
	if err != nil {
		t.Fatalf("export failure aborted the run: %v", err)
	}
	if !strings.Contains(stdout, "Open ports found: 1") {
		t.Fatalf("summary missing:\n%s", stdout)
	}
	if strings.Contains(stdout, "Results saved to") {
		t.Fatalf("failed export reported as saved:\n%s", stdout)
	}
	if !strings.Contains(stderr, "could not save results") {
		t.Fatalf("stderr missing export error:\n%s", stderr)
	}
}

func TestRoot_ExportToStdout(t *testing.T) {
	port := listenLoopback(t)
	stdout, stderr, err := execute(t, "127.0.0.1", "-p", strconv.Itoa(port), "-o", "-", "--format", "csv")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	rows, err := csv.NewReader(strings.NewReader(stdout)).ReadAll()
	if err != nil {
		t.Fatalf("stdout is not CSV: %v\n%s", err, stdout)
	}
	if len(rows) != 2 || rows[1][2] != strconv.Itoa(port) {
		t.Fatalf("rows = %v", rows)
	}
	if !strings.Contains(stderr, "Open ports found: 1") {
		t.Fatalf("console output not moved to stderr:\n%s", stderr)
	}
}

func TestRoot_QuietPrintsSummaryOnly(t *testing.T) {
	port := listenLoopback(t)
	stdout, _, err := execute(t, "127.0.0.1", "-p", strconv.Itoa(port), "-q")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if strings.Contains(stdout, "Starting scan") || strings.Contains(stdout, "[OPEN]") {
		t.Fatalf("quiet mode printed progress:\n%s", stdout)
	}
	if !strings.Contains(stdout, "Open ports found: 1") {
		t.Fatalf("quiet mode missing summary:\n%s", stdout)
	}
}

func TestRoot_ConfigFile(t *testing.T) {
	port := listenLoopback(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "scan.jsonl")
	cfg := filepath.Join(dir, "connscan.yaml")
	content := "scan:\n  ports: \"" + strconv.Itoa(port) + "\"\n  timeout: 500ms\noutput:\n  file: " + out + "\n  no_tui: true\n"
	if err := os.WriteFile(cfg, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := execute(t, "127.0.0.1", "-c", cfg); err != nil {
		t.Fatalf("execute: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("export missing: %v", err)
	}
	if !strings.Contains(string(data), `"port":`+strconv.Itoa(port)) {
		t.Fatalf("export = %s", data)
	}
}

func TestRoot_TokenWarnings(t *testing.T) {
	port := listenLoopback(t)
	_, stderr, err := execute(t, "127.0.0.1", "-p", "abc,"+strconv.Itoa(port), "--no-tui")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(stderr, "ignoring invalid port: 'abc'") {
		t.Fatalf("stderr missing token warning:\n%s", stderr)
	}
}

func TestRoot_FatalErrors(t *testing.T) {
	tests := map[string][]string{
		"no args":      {},
		"no ports":     {"127.0.0.1", "-p", "abc,0,70000"},
		"zero timeout": {"127.0.0.1", "--timeout", "0"},
		"bad format":   {"127.0.0.1", "--format", "yaml", "-o", "x"},
		"bad config":   {"127.0.0.1", "-c", filepath.Join(t.TempDir(), "missing.yaml")},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			if _, _, err := execute(t, args...); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	_, _, err := execute(t, "127.0.0.1", "-p", "abc")
	if !errors.Is(err, targets.ErrNoPorts) {
		t.Fatalf("got %v, want ErrNoPorts", err)
	}
}

func TestRoot_TimeoutBounds(t *testing.T) {
	tests := map[string]string{
		"0":    "timeout must be positive",
		"-2":   "timeout must be positive",
		"1e12": "timeout too large",
	}
	for value, want := range tests {
		t.Run(value, func(t *testing.T) {
			_, _, err := execute(t, "127.0.0.1", "-p", "80", "--timeout="+value)
			if err == nil || !strings.Contains(err.Error(), want) {
				t.Fatalf("got %v, want error containing %q", err, want)
			}
		})
	}
}

func TestRoot_Version(t *testing.T) {
	stdout, _, err := execute(t, "--version")
	if err != nil {
		t.Fatal(err)
	}
	if stdout != "connscan version dev\n" {
		t.Fatalf("version output = %q", stdout)
	}
}
