// Package probe performs single TCP connect attempts.
package probe

import (
	"context"
	"net"
	"net/netip"
	"strconv"
	"time"
)

// Result is the outcome of one probe. Failures of any kind report Open=false;
// the reason is not kept.
type Result struct {
	Port    uint16
	Open    bool
	Service string
	RTT     time.Duration
}

// DialFunc opens a connection; it has the signature of (*net.Dialer).DialContext.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// ServiceLookup names the service bound to a TCP port, "" if unknown.
type ServiceLookup interface {
	Lookup(port uint16) string
}

// Prober issues connect probes with a fixed per-attempt timeout.
type Prober struct {
	Timeout  time.Duration
	Services ServiceLookup // nil disables service names
	Dial     DialFunc      // nil uses a net.Dialer
}

// Probe attempts one TCP connection to addr:port, giving up after p.Timeout.
// The connection, if any, is closed before Probe returns.
func (p *Prober) Probe(ctx context.Context, addr netip.Addr, port uint16) Result {
	res := Result{Port: port}

	dial := p.Dial
	if dial == nil {
		d := &net.Dialer{Timeout: p.Timeout}
		dial = d.DialContext
	}
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	target := net.JoinHostPort(addr.String(), strconv.Itoa(int(port)))
	start := time.Now()
	conn, err := dial(ctx, "tcp", target)
	res.RTT = time.Since(start)
	if err != nil {
		return res
	}
	_ = conn.Close()

	res.Open = true
	if p.Services != nil {
		res.Service = p.Services.Lookup(port)
	}
	return res
}
