package targets

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strings"
)

// ErrResolve wraps every host resolution failure.
var ErrResolve = errors.New("could not resolve host")

// Resolver is the subset of *net.Resolver used for name lookups.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// ResolveHost turns a hostname or IP literal into a single address to scan.
// IP literals are returned as-is; names prefer the first IPv4 answer and fall
// back to the first IPv6 one. A nil resolver uses net.DefaultResolver.
func ResolveHost(ctx context.Context, r Resolver, host string) (netip.Addr, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return netip.Addr{}, fmt.Errorf("%w: empty host", ErrResolve)
	}
	if r == nil {
		r = net.DefaultResolver
	}

	if ip, err := netip.ParseAddr(strings.Trim(host, "[]")); err == nil {
		return validAddr(host, ip.Unmap())
	}

	addrs, err := r.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w %s: %w", ErrResolve, host, err)
	}
	var firstV6 netip.Addr
	for _, a := range addrs {
		a = a.Unmap()
		if a.Is4() {
			return validAddr(host, a)
		}
		if !firstV6.IsValid() {
			firstV6 = a
		}
	}
	if firstV6.IsValid() {
		return validAddr(host, firstV6)
	}
	return netip.Addr{}, fmt.Errorf("%w %s: no addresses returned", ErrResolve, host)
}

func validAddr(host string, ip netip.Addr) (netip.Addr, error) {
	if !ip.IsValid() || ip.IsUnspecified() {
		return netip.Addr{}, fmt.Errorf("%w %s: resolved address %s is invalid", ErrResolve, host, ip)
	}
	return ip, nil
}
