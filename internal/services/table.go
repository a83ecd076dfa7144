// Package services maps TCP port numbers to conventional service names.
package services

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/gopacket/layers"
	"gopkg.in/yaml.v3"
)

// SystemFile is the services database consulted by Default.
const SystemFile = "/etc/services"

// Table is a port-indexed service-name lookup. Sources are layered so that
// the first source to name a port wins.
type Table struct {
	byPort [65536]string
}

// Empty returns a table with no names at all.
func Empty() *Table {
	return &Table{}
}

// Default layers the override files, the system services database and the
// IANA registry bundled with gopacket, in that order. A missing system file
// is not an error.
func Default(overrides ...string) (*Table, error) {
	t := Empty()
	for _, path := range overrides {
		if err := t.LoadOverrides(path); err != nil {
			return nil, err
		}
	}
	if err := t.LoadSystemFile(SystemFile); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	t.FillIANA()
	return t, nil
}

// Lookup returns the service bound to port/tcp, or "" if unknown.
func (t *Table) Lookup(port uint16) string {
	if t == nil {
		return ""
	}
	return t.byPort[port]
}

// Set names a port unless a name is already present.
func (t *Table) Set(port uint16, name string) {
	name = strings.TrimSpace(name)
	if port == 0 || name == "" || t.byPort[port] != "" {
		return
	}
	t.byPort[port] = name
}

// Len returns how many ports have a name.
func (t *Table) Len() int {
	n := 0
	for _, s := range t.byPort {
		if s != "" {
			n++
		}
	}
	return n
}

// LoadSystemFile reads a services(5) file and records the tcp entries.
func (t *Table) LoadSystemFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return t.ReadServices(f)
}

// ReadServices parses services(5) lines: "name port/proto [aliases...] [# comment]".
func (t *Table) ReadServices(r io.Reader) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		num, proto, ok := strings.Cut(fields[1], "/")
		if !ok || proto != "tcp" {
			continue
		}
		port, err := strconv.ParseUint(num, 10, 16)
		if err != nil {
			continue
		}
		t.Set(uint16(port), fields[0])
	}
	return sc.Err()
}

// FillIANA names any remaining ports from the gopacket IANA registry.
func (t *Table) FillIANA() {
	for p := 1; p < len(t.byPort); p++ {
		if t.byPort[p] != "" {
			continue
		}
		if name := ianaName(uint16(p)); name != "" {
			t.byPort[p] = name
		}
	}
}

// ianaName extracts the name from layers.TCPPort's "80(http)" rendering.
func ianaName(port uint16) string {
	s := layers.TCPPort(port).String()
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return ""
	}
	return s[open+1 : len(s)-1]
}

// overrideYAML is the on-disk structure of a service-name override file.
type overrideYAML struct {
	Services []struct {
		Name  string   `yaml:"name"`
		Ports []uint16 `yaml:"ports"`
	} `yaml:"services"`
}

// LoadOverrides reads a YAML file, or every *.yaml file in a directory, of the form
//
//	services:
//	  - name: grafana
//	    ports: [3000]
func (t *Table) LoadOverrides(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("service overrides: %w", err)
	}
	files := []string{path}
	if info.IsDir() {
		files, err = filepath.Glob(filepath.Join(path, "*.yaml"))
		if err != nil {
			return fmt.Errorf("glob service overrides: %w", err)
		}
	}
	for _, f := range files {
		if err := t.loadOverrideFile(f); err != nil {
			return fmt.Errorf("load %s: %w", filepath.Base(f), err)
		}
	}
	return nil
}

func (t *Table) loadOverrideFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var raw overrideYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, svc := range raw.Services {
		if svc.Name == "" {
			return fmt.Errorf("service entry with ports %v has no name", svc.Ports)
		}
		for _, p := range svc.Ports {
			t.Set(p, svc.Name)
		}
	}
	return nil
}
