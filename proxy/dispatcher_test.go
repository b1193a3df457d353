package proxy

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/relaytun/revtun/internal/cryptotun"
	"github.com/relaytun/revtun/internal/tunlog"
)

func newTestDispatcher() *dispatcher {
	logger := tunlog.New("test", tunlog.LevelDebug, io.Discard)
	return newDispatcher(logger, cryptotun.Params{}, newMetrics("test"), nil, nil)
}

func TestOfferTunnelThenRequestPairsImmediately(t *testing.T) {
	d := newTestDispatcher()
	logger := tunlog.New("test", tunlog.LevelDebug, io.Discard)

	tConn, tPeer := net.Pipe()
	defer tPeer.Close()
	rConn, rPeer := net.Pipe()
	defer rPeer.Close()

	tun := newTunnel(tConn, logger)
	tun.watch(0, func(error) {})
	d.offerTunnel(tun)

	if d.idle.Len() != 1 {
		t.Fatalf("idle.Len() = %d, want 1", d.idle.Len())
	}

	req := newRequest(rConn, logger)
	req.watch(0, func(error) {})
	d.offerRequest(req)

	if d.idle.Len() != 0 {
		t.Errorf("idle.Len() = %d after pairing, want 0", d.idle.Len())
	}
	if d.waiting.Len() != 0 {
		t.Errorf("waiting.Len() = %d after pairing, want 0", d.waiting.Len())
	}

	want := []byte("ping")
	go func() { _, _ = rPeer.Write(want) }()
	got := make([]byte, len(want))
	_ = tPeer.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := io.ReadFull(tPeer, got); err != nil {
		t.Fatalf("reading spliced data on tunnel side: %s", err)
	}
	if string(got) != string(want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestOfferRequestThenTunnelPairsImmediately(t *testing.T) {
	d := newTestDispatcher()
	logger := tunlog.New("test", tunlog.LevelDebug, io.Discard)

	rConn, rPeer := net.Pipe()
	defer rPeer.Close()
	tConn, tPeer := net.Pipe()
	defer tPeer.Close()

	req := newRequest(rConn, logger)
	req.watch(0, func(error) {})
	d.offerRequest(req)

	if d.waiting.Len() != 1 {
		t.Fatalf("waiting.Len() = %d, want 1", d.waiting.Len())
	}

	tun := newTunnel(tConn, logger)
	tun.watch(0, func(error) {})
	d.offerTunnel(tun)

	if d.waiting.Len() != 0 {
		t.Errorf("waiting.Len() = %d after pairing, want 0", d.waiting.Len())
	}
}

func TestFIFOOrderingAcrossMultipleTunnels(t *testing.T) {
	d := newTestDispatcher()
	logger := tunlog.New("test", tunlog.LevelDebug, io.Discard)

	var tunnelOuter [3]net.Conn
	for i := range tunnelOuter {
		inner, outer := net.Pipe()
		defer outer.Close()
		tunnelOuter[i] = outer
		tun := newTunnel(inner, logger)
		tun.watch(0, func(error) {})
		d.offerTunnel(tun)
	}
	if d.idle.Len() != 3 {
		t.Fatalf("idle.Len() = %d, want 3", d.idle.Len())
	}

	// The first tunnel offered must be the first one paired off.
	first := d.idle.Front().Value.(*tunnel)
	rInner, rOuter := net.Pipe()
	defer rOuter.Close()
	req := newRequest(rInner, logger)
	req.watch(0, func(error) {})
	d.offerRequest(req)

	if d.idle.Len() != 2 {
		t.Fatalf("idle.Len() = %d after one pairing, want 2", d.idle.Len())
	}
	if first.elem != nil {
		t.Error("the first-offered tunnel is still linked into idle after being paired")
	}
}

func TestRetireRemovesFromQueue(t *testing.T) {
	d := newTestDispatcher()
	logger := tunlog.New("test", tunlog.LevelDebug, io.Discard)

	inner, outer := net.Pipe()
	defer outer.Close()
	tun := newTunnel(inner, logger)
	tun.watch(0, func(error) {})
	d.offerTunnel(tun)
	if d.idle.Len() != 1 {
		t.Fatalf("idle.Len() = %d, want 1", d.idle.Len())
	}

	d.retire(tun)
	if d.idle.Len() != 0 {
		t.Errorf("idle.Len() = %d after retire, want 0", d.idle.Len())
	}

	// Retiring again (already-retired, or never-queued) must be benign.
	d.retire(tun)
}

func TestAppConnectedDisconnectedCallbacks(t *testing.T) {
	var connected, disconnected int
	logger := tunlog.New("test", tunlog.LevelDebug, io.Discard)
	d := newDispatcher(logger, cryptotun.Params{}, newMetrics("test-callbacks"),
		func() { connected++ },
		func() { disconnected++ },
	)

	inner, outer := net.Pipe()
	defer outer.Close()
	tun := newTunnel(inner, logger)
	tun.watch(0, func(error) {})
	d.offerTunnel(tun)
	if connected != 1 {
		t.Fatalf("connected = %d, want 1 after idle pool became non-empty", connected)
	}

	d.retire(tun)
	if disconnected != 1 {
		t.Fatalf("disconnected = %d, want 1 after idle pool became empty", disconnected)
	}
}
