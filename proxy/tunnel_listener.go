package proxy

import (
	"net"
	"strconv"
	"time"

	"github.com/relaytun/revtun/internal/handshake"
	"github.com/relaytun/revtun/internal/netutil"
	"github.com/relaytun/revtun/internal/tunlog"
)

// listenTunnel opens the Tunnel Listener's socket (spec.md §4.2). Unlike
// the Public Listener this is never TLS-wrapped: tunnel traffic carries
// its own optional AES-256-CTR framing instead (spec.md §4.4).
func listenTunnel(cfg *Config) (net.Listener, error) {
	addr := net.JoinHostPort(cfg.BindHost, strconv.Itoa(cfg.TunnelPort))
	return net.Listen("tcp", addr)
}

// runTunnelListener accepts connections until ln is closed. If Config.Secret
// is set each connection must pass the challenge-response handshake before
// it is trusted and offered to the Dispatcher; a failed handshake is logged
// and the connection dropped, never fatal to the listener (spec.md §4.5).
func runTunnelListener(ln net.Listener, d *dispatcher, cfg *Config, logger *tunlog.Logger) {
	var retryDelay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if isClosedErr(err) {
				return
			}
			retryDelay = nextAcceptRetryDelay(retryDelay)
			logger.Warnf("tunnel accept: %s; retrying in %s", err, retryDelay)
			time.Sleep(retryDelay)
			continue
		}
		retryDelay = 0
		go acceptTunnel(conn, d, cfg, logger)
	}
}

func acceptTunnel(conn net.Conn, d *dispatcher, cfg *Config, logger *tunlog.Logger) {
	tlogger := logger.Fork("tunnel %s", conn.RemoteAddr())
	if len(cfg.Secret) > 0 {
		if _, err := handshake.Receive(conn, cfg.Secret, cfg.ChallengeTimeout); err != nil {
			tlogger.Warnf("handshake failed: %s", err)
			_ = conn.Close()
			return
		}
	}
	netutil.MakeLongLived(conn)
	t := newTunnel(conn, tlogger)
	t.watch(0, func(err error) {
		d.retire(t)
		tlogger.Debugf("tunnel terminated while idle: %s", err)
		_ = conn.Close()
	})
	d.offerTunnel(t)
}
