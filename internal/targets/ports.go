package targets

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	MinPort = 1
	MaxPort = 65535
)

// ErrNoPorts is returned when a port specification yields no usable ports.
var ErrNoPorts = errors.New("no valid ports to scan")

// TokenError describes a port token that was dropped during resolution.
type TokenError struct {
	Token  string
	Reason string
}

func (e TokenError) Error() string {
	return fmt.Sprintf("ignoring %s: '%s'", e.Reason, e.Token)
}

// PortSet is an ascending, deduplicated set of TCP ports. The zero value is empty.
type PortSet struct {
	ports []uint16
}

// NewPortSet builds a PortSet from arbitrary values, dropping anything outside 1-65535.
func NewPortSet(values ...int) PortSet {
	var seen [MaxPort + 1]bool
	for _, v := range values {
		if v >= MinPort && v <= MaxPort {
			seen[v] = true
		}
	}
	return fromBitmap(&seen)
}

func fromBitmap(seen *[MaxPort + 1]bool) PortSet {
	var ports []uint16
	for p := MinPort; p <= MaxPort; p++ {
		if seen[p] {
			ports = append(ports, uint16(p))
		}
	}
	return PortSet{ports: ports}
}

// Len returns the number of ports in the set.
func (s PortSet) Len() int { return len(s.ports) }

// Empty reports whether the set has no ports.
func (s PortSet) Empty() bool { return len(s.ports) == 0 }

// First returns the lowest port, or 0 for an empty set.
func (s PortSet) First() uint16 {
	if len(s.ports) == 0 {
		return 0
	}
	return s.ports[0]
}

// Last returns the highest port, or 0 for an empty set.
func (s PortSet) Last() uint16 {
	if len(s.ports) == 0 {
		return 0
	}
	return s.ports[len(s.ports)-1]
}

// Ports returns a copy of the ports in ascending order.
func (s PortSet) Ports() []uint16 {
	out := make([]uint16, len(s.ports))
	copy(out, s.ports)
	return out
}

// String renders the set compactly, collapsing consecutive runs: "22,80-82,443".
func (s PortSet) String() string {
	var b strings.Builder
	for i := 0; i < len(s.ports); {
		j := i
		for j+1 < len(s.ports) && s.ports[j+1] == s.ports[j]+1 {
			j++
		}
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		if j == i {
			b.WriteString(strconv.Itoa(int(s.ports[i])))
		} else {
			fmt.Fprintf(&b, "%d-%d", s.ports[i], s.ports[j])
		}
		i = j + 1
	}
	return b.String()
}

// ResolvePorts expands a comma-separated list of ports and A-B ranges.
//
// Empty tokens are skipped. Malformed tokens and out-of-range single ports are
// dropped and reported through warn (which may be nil). Reversed ranges are
// swapped and ranges are clamped to 1-65535. ErrNoPorts is returned when
// nothing survives.
func ResolvePorts(spec string, warn func(TokenError)) (PortSet, error) {
	if warn == nil {
		warn = func(TokenError) {}
	}
	var seen [MaxPort + 1]bool
	found := false

	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, "-") {
			lo, hi, ok := parseRange(part)
			if !ok {
				warn(TokenError{Token: part, Reason: "invalid port range"})
				continue
			}
			for p := lo; p <= hi; p++ {
				seen[p] = true
				found = true
			}
			continue
		}
		p, err := strconv.Atoi(part)
		if err != nil {
			warn(TokenError{Token: part, Reason: "invalid port"})
			continue
		}
		if p < MinPort || p > MaxPort {
			warn(TokenError{Token: part, Reason: "out-of-range port"})
			continue
		}
		seen[p] = true
		found = true
	}

	if !found {
		return PortSet{}, ErrNoPorts
	}
	return fromBitmap(&seen), nil
}

// parseRange parses "A-B", swapping reversed bounds and clamping to the port range.
// A range lying entirely outside 1-65535 clamps to an empty interval (lo > hi).
func parseRange(tok string) (lo, hi int, ok bool) {
	a, b, cut := strings.Cut(tok, "-")
	if !cut {
		return 0, 0, false
	}
	start, err1 := strconv.Atoi(strings.TrimSpace(a))
	end, err2 := strconv.Atoi(strings.TrimSpace(b))
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	if start > end {
		start, end = end, start
	}
	lo = max(start, MinPort)
	hi = min(end, MaxPort)
	return lo, hi, true
}
