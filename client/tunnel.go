package client

import (
	"net"
	"strconv"
	"sync"

	"github.com/relaytun/revtun/internal/cryptotun"
	"github.com/relaytun/revtun/internal/handshake"
	"github.com/relaytun/revtun/internal/netutil"
	"github.com/relaytun/revtun/internal/tunlog"
)

// tunnelState names the client-side Tunnel's lifecycle (spec.md §4.6):
// dialing the Proxy and the local application in parallel, handshaking
// the remote side (only if a secret is configured), waiting on whichever
// of the two sockets isn't ready yet, piping, and closed.
type tunnelState int

const (
	stateConnecting tunnelState = iota
	stateHandshaking
	stateLocalWait
	statePiping
	stateClosed
)

// tunnel is one dialed-out reverse connection. It owns exactly one TCP
// connection to the Proxy's Tunnel Listener and one connection to the
// local application, dialed concurrently (spec.md §4.6: "issues both
// connect calls in parallel") rather than one gated on the other.
type tunnel struct {
	cfg    *Config
	logger *tunlog.Logger

	mu         sync.Mutex
	state      tunnelState
	remoteConn net.Conn
	localConn  net.Conn
	remoteOpen bool
	localOpen  bool
	verified   bool

	connectOnce sync.Once
	connected   chan struct{}
	failOnce    sync.Once
	failed      chan error
}

func newTunnel(cfg *Config, logger *tunlog.Logger) *tunnel {
	return &tunnel{
		cfg:       cfg,
		logger:    logger,
		state:     stateConnecting,
		connected: make(chan struct{}),
		failed:    make(chan error, 1),
	}
}

func (t *tunnel) setState(s tunnelState) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// fail records the first error that ends the tunnel before it ever
// reaches piping. Later calls are ignored — only the first dial/handshake
// failure matters, the same "fires once" discipline tryEmitConnect applies
// to the success path.
func (t *tunnel) fail(err error) {
	t.failOnce.Do(func() {
		t.failed <- err
	})
}

// tryEmitConnect implements spec.md §4.6's edge-triggered predicate:
// remote-open ∧ local-open ∧ (verified ∨ no secret configured). Only when
// it becomes true does it fire the connect event exactly once, which is
// also the moment splicing gets wired up. Safe to call from either the
// remote or local dial goroutine, in either order, as each one becomes
// ready.
func (t *tunnel) tryEmitConnect() {
	t.mu.Lock()
	ready := t.remoteOpen && t.localOpen && (t.verified || len(t.cfg.Secret) == 0)
	t.mu.Unlock()
	if !ready {
		return
	}
	t.connectOnce.Do(func() {
		t.setState(statePiping)
		close(t.connected)
	})
}

// run dials the Proxy and the local application concurrently, handshakes
// the remote side when a secret is configured, and transitions to piping
// the instant tryEmitConnect's predicate is satisfied — the "connect
// event" the Pool Manager's boot probe waits on (spec.md §4.7). onConnect
// fires exactly once, at that transition. onDone fires exactly once, with
// the error (nil on a clean pipe close) that ended the tunnel's life, so
// the Pool Manager can replace it.
func (t *tunnel) run(onConnect func(), onDone func(error)) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		addr := net.JoinHostPort(t.cfg.ProxyHost, strconv.Itoa(t.cfg.TunnelPort))
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			t.fail(err)
			return
		}

		if len(t.cfg.Secret) > 0 {
			t.setState(stateHandshaking)
			if err := handshake.Send(conn, t.cfg.Secret, t.cfg.ChallengeTimeout); err != nil {
				_ = conn.Close()
				t.fail(err)
				return
			}
			t.mu.Lock()
			t.verified = true
			t.mu.Unlock()
		}
		netutil.MakeLongLived(conn)

		t.mu.Lock()
		t.remoteConn = conn
		t.remoteOpen = true
		t.mu.Unlock()
		t.setState(stateLocalWait)
		t.tryEmitConnect()
	}()

	go func() {
		defer wg.Done()
		addr := net.JoinHostPort(t.cfg.AppHost, strconv.Itoa(t.cfg.AppPort))
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			t.fail(err)
			return
		}
		t.mu.Lock()
		t.localConn = conn
		t.localOpen = true
		t.mu.Unlock()
		t.tryEmitConnect()
	}()

	select {
	case err := <-t.failed:
		wg.Wait()
		t.setState(stateClosed)
		t.closeSockets()
		onDone(err)
		return
	case <-t.connected:
	}
	wg.Wait()

	if t.cfg.OnTunnelConnected != nil {
		t.cfg.OnTunnelConnected()
	}
	onConnect()

	t.mu.Lock()
	remoteConn, localConn := t.remoteConn, t.localConn
	t.mu.Unlock()

	var proxySide netutil.Conn = remoteConn
	if t.cfg.Encryption.Configured() {
		enc, err := cryptotun.NewConn(remoteConn, t.cfg.Encryption)
		if err != nil {
			t.logger.Errorf("encryption setup: %s", err)
			t.closeSockets()
			onDone(err)
			return
		}
		proxySide = enc
	}

	netutil.Splice(proxySide, localConn)
	t.setState(stateClosed)
	if t.cfg.OnTunnelClosed != nil {
		t.cfg.OnTunnelClosed()
	}
	onDone(nil)
}

// closeSockets closes whichever of the two sockets were actually opened.
// Used only on the failure path, after both dial goroutines have
// returned, so it never races with run's own use of the connections.
func (t *tunnel) closeSockets() {
	t.mu.Lock()
	remoteConn, localConn := t.remoteConn, t.localConn
	t.mu.Unlock()
	if remoteConn != nil {
		_ = remoteConn.Close()
	}
	if localConn != nil {
		_ = localConn.Close()
	}
}
