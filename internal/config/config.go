package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the top-level configuration structure.
type Config struct {
	Scan   ScanConfig   `yaml:"scan"`
	Output OutputConfig `yaml:"output"`
}

// ScanConfig holds all settings related to the scanning process.
type ScanConfig struct {
	Ports    string   `yaml:"ports"`    // e.g. "22,80,443,8000-8100"
	Threads  int      `yaml:"threads"`  // Concurrent probes
	Timeout  Duration `yaml:"timeout"`  // Per-connection timeout
	Services string   `yaml:"services"` // Extra service-name YAML file or directory
	Shuffle  bool     `yaml:"shuffle"`  // Random probe order
}

// OutputConfig controls how results are reported.
type OutputConfig struct {
	File    string `yaml:"file"`    // Export path, "-" for stdout
	Format  string `yaml:"format"`  // csv, json, text, grep, xlsx
	Quiet   bool   `yaml:"quiet"`   // Summary only
	Verbose bool   `yaml:"verbose"` // Debug logging
	NoTUI   bool   `yaml:"no_tui"`  // Disable TUI
	Sort    bool   `yaml:"sort"`    // Sort summary by port
}

// Duration wraps time.Duration for YAML unmarshalling from strings like
// "800ms" or plain numbers of seconds like 0.8.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	d.Duration = dur
	return nil
}

// ParseDuration accepts a Go duration string or a decimal number of seconds.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return dur, nil
}

// Validate rejects values no scan could run with.
func (c *Config) Validate() error {
	if c.Scan.Timeout.Duration < 0 {
		return fmt.Errorf("scan.timeout must be positive, got %s", c.Scan.Timeout.Duration)
	}
	if c.Scan.Threads < 0 {
		return fmt.Errorf("scan.threads must be positive, got %d", c.Scan.Threads)
	}
	return nil
}

// LoadConfig reads a YAML configuration file from the specified path.
// Unknown keys are rejected.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return &cfg, nil
}
