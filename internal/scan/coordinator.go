package scan

import (
	"context"
	"net/netip"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"connscan/internal/logging"
	"connscan/internal/probe"
)

// fdReserve is the number of descriptors kept aside for stdio, log and export files.
const fdReserve = 32

// Report is what Run hands back once the scan is over.
type Report struct {
	Open        []probe.Result // completion order
	Completed   int
	Total       int
	Concurrency int
	Interrupted bool
	Elapsed     time.Duration
}

// Coordinator fans probes out over a bounded pool and gathers their results.
// The hooks are called from the goroutine running Run, in completion order.
type Coordinator struct {
	Services probe.ServiceLookup
	Dial     probe.DialFunc // nil dials with net.Dialer
	Logger   *zap.Logger

	OnOpen     func(probe.Result)
	OnProgress func(done, total int)
}

// Run probes every port of s and returns when all probes are done or ctx is
// cancelled. On cancellation no further probes are started; probes already in
// flight are left to finish on their own timeout and their results are dropped.
func (c *Coordinator) Run(ctx context.Context, s Session) (Report, error) {
	if err := s.Validate(); err != nil {
		return Report{}, err
	}
	log := logging.OrNop(c.Logger).With(zap.String("component", "scan"))

	workers := ClampConcurrency(s.Concurrency)
	if workers != s.Concurrency {
		log.Debug("concurrency clamped", zap.Int("requested", s.Concurrency), zap.Int("used", workers))
	}
	if limit, ok := openFileLimit(); ok && uint64(workers+fdReserve) > limit {
		log.Warn("concurrency exceeds open file limit",
			zap.Int("concurrency", workers), zap.Uint64("nofile", limit))
	}

	prober := &probe.Prober{Timeout: s.Timeout, Services: c.Services, Dial: c.Dial}
	ports := s.Ports.Ports()
	if s.Shuffle {
		ports = s.Ports.Shuffled()
	}
	start := time.Now()
	log.Debug("scan starting",
		zap.String("addr", s.Addr.String()),
		zap.Int("ports", len(ports)),
		zap.Int("concurrency", workers),
		zap.Duration("timeout", s.Timeout),
		zap.Bool("shuffle", s.Shuffle))

	// Buffered for every port so an abandoned probe can always deliver and exit.
	results := make(chan probe.Result, len(ports))
	dispatchCtx, stopDispatch := context.WithCancel(ctx)
	defer stopDispatch()
	probeCtx := context.WithoutCancel(ctx)

	sem := semaphore.NewWeighted(int64(workers))
	go func() {
		for _, port := range ports {
			if dispatchCtx.Err() != nil {
				return
			}
			if err := sem.Acquire(dispatchCtx, 1); err != nil {
				return
			}
			go func(port uint16) {
				defer sem.Release(1)
				results <- c.probeOne(probeCtx, log, prober, s.Addr, port)
			}(port)
		}
	}()

	var rs ResultSet
	rep := Report{Total: len(ports), Concurrency: workers}
loop:
	for rep.Completed < rep.Total {
		select {
		case res := <-results:
			rep.Completed++
			if rs.Record(res) && c.OnOpen != nil {
				c.OnOpen(res)
			}
			if c.OnProgress != nil {
				c.OnProgress(rep.Completed, rep.Total)
			}
		case <-ctx.Done():
			rep.Interrupted = true
			break loop
		}
	}
	stopDispatch()

	rep.Open = rs.Finalize()
	rep.Elapsed = time.Since(start)
	log.Debug("scan finished",
		zap.Int("completed", rep.Completed),
		zap.Int("open", len(rep.Open)),
		zap.Bool("interrupted", rep.Interrupted),
		zap.Duration("elapsed", rep.Elapsed))
	return rep, nil
}

// probeOne runs a single probe, converting a panic into a closed result.
func (c *Coordinator) probeOne(ctx context.Context, log *zap.Logger, p *probe.Prober, addr netip.Addr, port uint16) (res probe.Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn("probe failed", zap.Uint16("port", port), zap.Any("panic", r))
			res = probe.Result{Port: port}
		}
	}()
	return p.Probe(ctx, addr, port)
}
