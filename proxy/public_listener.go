package proxy

import (
	"crypto/tls"
	"net"
	"strconv"
	"time"

	"github.com/relaytun/revtun/internal/tunlog"
)

// listenPublic opens the Public Listener's socket (spec.md §4.1), plain TCP
// unless Config carries a TLS certificate and key.
func listenPublic(cfg *Config) (net.Listener, error) {
	addr := net.JoinHostPort(cfg.BindHost, strconv.Itoa(cfg.ProxyPort))
	if len(cfg.TLSCert) > 0 {
		cert, err := tls.X509KeyPair(cfg.TLSCert, cfg.TLSKey)
		if err != nil {
			return nil, err
		}
		return tls.Listen("tcp", addr, &tls.Config{Certificates: []tls.Certificate{cert}})
	}
	return net.Listen("tcp", addr)
}

// runPublicListener accepts connections until ln is closed. Each accepted
// connection becomes a request, watched for early termination while it
// waits in the Dispatcher's queue, per spec.md §4.1.
func runPublicListener(ln net.Listener, d *dispatcher, cfg *Config, logger *tunlog.Logger) {
	var retryDelay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if isClosedErr(err) {
				return
			}
			retryDelay = nextAcceptRetryDelay(retryDelay)
			logger.Warnf("public accept: %s; retrying in %s", err, retryDelay)
			time.Sleep(retryDelay)
			continue
		}
		retryDelay = 0
		r := newRequest(conn, logger.Fork("request %s", conn.RemoteAddr()))
		r.watch(cfg.RequestTimeout, func(err error) {
			d.retire(r)
			r.logger.Debugf("request terminated while waiting: %s", err)
			_ = conn.Close()
		})
		d.offerRequest(r)
	}
}
