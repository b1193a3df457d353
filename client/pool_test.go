package client

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/relaytun/revtun/internal/tunlog"
)

// fakeBlockingListener accepts connections and keeps each accepted
// connection open until its peer closes it; closing the listener does not
// close connections it has already accepted.
// Used to stand in for both a live-but-silent Proxy tunnel port and a
// live-but-silent local application, since a tunnel now dials both
// concurrently and needs both to stay open to reach piping.
func fakeBlockingListener(t *testing.T) (net.Listener, int) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %s", err)
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				buf := make([]byte, 1)
				_, _ = conn.Read(buf) // block until the peer closes
			}()
		}
	}()
	return ln, ln.Addr().(*net.TCPAddr).Port
}

func TestPoolFillsToConfiguredSize(t *testing.T) {
	tunnelLn, tunnelPort := fakeBlockingListener(t)
	defer tunnelLn.Close()
	appLn, appPort := fakeBlockingListener(t)
	defer appLn.Close()

	logger := tunlog.New("test", tunlog.LevelDebug, io.Discard)
	cfg := &Config{
		ProxyHost:        "127.0.0.1",
		TunnelPort:       tunnelPort,
		AppHost:          "127.0.0.1",
		AppPort:          appPort,
		ChallengeTimeout: time.Second,
		PoolSize:         3,
		ReconnectDelay:   50 * time.Millisecond,
	}
	p := newPool(cfg, logger)
	defer p.close()

	if err := p.start(); err != nil {
		t.Fatalf("start() returned error: %s", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		p.mu.Lock()
		active := p.active
		p.mu.Unlock()
		if active == cfg.PoolSize {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("active = %d after deadline, want %d", active, cfg.PoolSize)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPoolStartFailsWhenProxyUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %s", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close() // nothing listens here now

	logger := tunlog.New("test", tunlog.LevelDebug, io.Discard)
	cfg := &Config{
		ProxyHost:      "127.0.0.1",
		TunnelPort:     port,
		AppHost:        "127.0.0.1",
		AppPort:        1,
		PoolSize:       2,
		ReconnectDelay: 10 * time.Millisecond,
	}
	p := newPool(cfg, logger)
	defer p.close()

	if err := p.start(); err == nil {
		t.Fatal("start() returned nil error against an unreachable proxy")
	}
}
