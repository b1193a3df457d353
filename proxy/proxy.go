// Package proxy implements the public-facing half of the tunnel system
// (spec.md §3/§4): the Public Listener, the Tunnel Listener, and the
// Dispatcher that pairs them. Grounded on the teacher's Server type and
// its ShutdownHelper-driven lifecycle, generalized to this package's
// two-listener shape.
package proxy

import (
	"fmt"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/relaytun/revtun/internal/tunlog"
)

// Proxy is a running instance: two listeners feeding one Dispatcher.
// Construct with New, then Start; Close tears both listeners down, after
// which their accept loops return on their own (Close does not wait for
// them).
type Proxy struct {
	cfg        Config
	logger     *tunlog.Logger
	dispatcher *dispatcher
	metrics    *metrics

	publicLn net.Listener
	tunnelLn net.Listener

	closed   atomic.Bool
	stopDone chan struct{}
}

// New validates cfg and constructs a Proxy without binding any sockets yet
// (spec.md §6, startProxy(config)). Call Start to begin listening.
func New(cfg Config) (*Proxy, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	logger := cfg.logger()
	m := newMetrics(fmt.Sprintf("%d-%d", cfg.ProxyPort, cfg.TunnelPort))
	d := newDispatcher(logger.Fork("dispatcher"), cfg.Encryption, m, cfg.OnAppConnected, cfg.OnAppDisconnected)
	return &Proxy{cfg: cfg, logger: logger, dispatcher: d, metrics: m, stopDone: make(chan struct{})}, nil
}

// Start binds both listeners and begins accepting. It returns once both
// sockets are open; the accept loops run in background goroutines.
func (p *Proxy) Start() error {
	publicLn, err := listenPublic(&p.cfg)
	if err != nil {
		return fmt.Errorf("revtun/proxy: public listener: %w", err)
	}
	tunnelLn, err := listenTunnel(&p.cfg)
	if err != nil {
		_ = publicLn.Close()
		return fmt.Errorf("revtun/proxy: tunnel listener: %w", err)
	}
	p.publicLn = publicLn
	p.tunnelLn = tunnelLn

	go func() {
		runPublicListener(publicLn, p.dispatcher, &p.cfg, p.logger.Fork("public"))
	}()
	go func() {
		runTunnelListener(tunnelLn, p.dispatcher, &p.cfg, p.logger.Fork("tunnel"))
	}()

	p.logger.Infof("listening: public=%s tunnel=%s", publicLn.Addr(), tunnelLn.Addr())
	return nil
}

// Close stops both listeners. In-flight pairs are left to finish or be
// closed by their own peers; Close does not forcibly sever established
// pairs.
func (p *Proxy) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	var err error
	if p.publicLn != nil {
		err = p.publicLn.Close()
	}
	if p.tunnelLn != nil {
		if e := p.tunnelLn.Close(); e != nil && err == nil {
			err = e
		}
	}
	close(p.stopDone)
	return err
}

// Healthy reports whether the idle-tunnel pool is currently non-empty, for
// a caller's own /healthz-style endpoint (SPEC_FULL.md §6).
func (p *Proxy) Healthy() bool {
	p.dispatcher.mu.Lock()
	defer p.dispatcher.mu.Unlock()
	return p.dispatcher.idle.Len() > 0
}

// PublicAddr returns the Public Listener's bound address.
func (p *Proxy) PublicAddr() net.Addr {
	if p.publicLn == nil {
		return nil
	}
	return p.publicLn.Addr()
}

// TunnelAddr returns the Tunnel Listener's bound address.
func (p *Proxy) TunnelAddr() net.Addr {
	if p.tunnelLn == nil {
		return nil
	}
	return p.tunnelLn.Addr()
}

func isClosedErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "use of closed network connection")
}

// acceptRetryMinDelay and acceptRetryMaxDelay bound the backoff a listener
// loop applies between failed Accept calls, the net/http server idiom for a
// transient accept error (e.g. fd exhaustion) that isn't the listener being
// closed: retry, but don't spin a CPU at 100% doing it.
const (
	acceptRetryMinDelay = 5 * time.Millisecond
	acceptRetryMaxDelay = time.Second
)

// nextAcceptRetryDelay doubles cur, floors it at acceptRetryMinDelay, and
// caps it at acceptRetryMaxDelay. Callers reset cur to 0 after a successful
// Accept so the next failure starts the backoff over.
func nextAcceptRetryDelay(cur time.Duration) time.Duration {
	if cur <= 0 {
		return acceptRetryMinDelay
	}
	cur *= 2
	if cur > acceptRetryMaxDelay {
		cur = acceptRetryMaxDelay
	}
	return cur
}
