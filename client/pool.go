package client

import (
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/jpillora/backoff"
	"github.com/relaytun/revtun/internal/tunlog"
)

// refillDebounce collapses a burst of simultaneous tunnel closures (e.g.
// the Proxy bouncing and dropping the whole pool at once) into a single
// refill pass instead of one immediately per closed tunnel (spec.md §4.7).
const refillDebounce = 300 * time.Millisecond

// pool is the Tunnel Pool Manager (spec.md §4.7): it keeps PoolSize
// tunnels dialed against the Proxy at all times, replacing each one as it
// ends. Grounded on the teacher's dialer retry loop, generalized from "one
// persistent connection" to "N interchangeable pooled connections".
type pool struct {
	cfg     *Config
	logger  *tunlog.Logger
	metrics *metrics

	mu      sync.Mutex
	active  int
	closing bool
	timer   *time.Timer

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func newPool(cfg *Config, logger *tunlog.Logger) *pool {
	instance := net.JoinHostPort(cfg.ProxyHost, strconv.Itoa(cfg.TunnelPort))
	return &pool{cfg: cfg, logger: logger, metrics: newMetrics(instance), stopCh: make(chan struct{})}
}

// start runs the boot-probe then fills the rest of the pool. The boot
// probe dials exactly one tunnel and waits for its connect event (both
// sockets ready, verified if a secret is configured) or a failure, so a
// misconfigured Proxy address is surfaced as an error out of start rather
// than discovered only in background goroutines.
func (p *pool) start() error {
	probeErr := make(chan error, 1)
	p.spawn(func(err error) {
		probeErr <- err
	})
	if err := <-probeErr; err != nil {
		return err
	}
	p.fill()
	return nil
}

// fill tops the pool back up to PoolSize, spawning one tunnel per missing
// slot.
func (p *pool) fill() {
	p.mu.Lock()
	missing := p.cfg.PoolSize - p.active
	p.mu.Unlock()
	for i := 0; i < missing; i++ {
		p.spawn(nil)
	}
}

// spawn dials one tunnel and, once it ends, arranges for a debounced
// refill unless the pool is shutting down. probeDone, if non-nil, is
// called once with the tunnel's first dial/handshake error (or nil) and is
// only meaningful for the boot probe.
func (p *pool) spawn(probeDone func(error)) {
	p.mu.Lock()
	p.active++
	active := p.active
	p.mu.Unlock()
	p.metrics.poolSize.Set(float64(active))

	t := newTunnel(p.cfg, p.logger.Fork("tunnel"))
	go func() {
		first := true
		signalProbe := func(err error) {
			if first && probeDone != nil {
				probeDone(err)
				first = false
			}
		}
		t.run(
			func() { signalProbe(nil) },
			func(err error) {
				signalProbe(err)
				p.mu.Lock()
				p.active--
				active := p.active
				shuttingDown := p.closing
				p.mu.Unlock()
				p.metrics.poolSize.Set(float64(active))
				if !shuttingDown {
					p.metrics.reconnectsTotal.Inc()
					p.scheduleRefill()
				}
			},
		)
	}()
}

func (p *pool) scheduleRefill() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closing {
		return
	}
	if p.timer != nil {
		return
	}
	p.timer = time.AfterFunc(refillDebounce, func() {
		p.mu.Lock()
		p.timer = nil
		closing := p.closing
		p.mu.Unlock()
		if closing {
			return
		}
		p.fillWithBackoff()
	})
}

// fillWithBackoff retries fill() with jpillora/backoff, seeded from
// Config.ReconnectDelay, when the pool has gone completely empty (a total
// outage per spec.md §4.7) — every dial in a fill pass failing immediately
// means the Proxy is very likely unreachable, so retrying at the
// debounce's pace would just hammer it.
func (p *pool) fillWithBackoff() {
	p.mu.Lock()
	active := p.active
	p.mu.Unlock()
	if active > 0 {
		p.fill()
		return
	}

	b := &backoff.Backoff{
		Min:    p.cfg.ReconnectDelay,
		Max:    p.cfg.ReconnectDelay * 10,
		Factor: 2,
		Jitter: true,
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-time.After(b.Duration()):
			case <-p.stopCh:
				return
			}
			done := make(chan error, 1)
			p.spawn(func(err error) { done <- err })
			if err := <-done; err == nil {
				p.fill()
				return
			}
		}
	}()
}

// close stops the pool: no further refills are scheduled and in-flight
// tunnels are left to end on their own (they are, after all, piping live
// application traffic). close waits for a running total-outage reconnect
// loop to return, but not for the tunnels themselves.
func (p *pool) close() {
	p.mu.Lock()
	p.closing = true
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.mu.Unlock()
	close(p.stopCh)
	p.wg.Wait()
}
