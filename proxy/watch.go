package proxy

import (
	"bufio"
	"net"
	"sync"
	"time"

	"github.com/relaytun/revtun/internal/netutil"
)

// watchable is embedded by both request and tunnel. An entity sitting in a
// Dispatcher queue still needs to notice its socket closing, erroring, or
// (for requests) idle-timing-out — spec.md §4.1/§4.2 call this out as a
// single "terminated" event. bufio.Reader.Peek(1) blocks on exactly that
// without consuming the byte it sees, so whatever arrives stays available
// for Splice once the entity is actually paired — this is the generalized,
// protocol-agnostic form of the "FIRST_CHUNK" pre-read spec.md §9
// describes for HTTP/WebSocket upgrade detection.
type watchable struct {
	conn net.Conn
	br   *bufio.Reader

	mu     sync.Mutex
	paired bool
	done   chan struct{}
}

func newWatchable(conn net.Conn) *watchable {
	return &watchable{conn: conn, br: bufio.NewReader(conn), done: make(chan struct{})}
}

// watch starts the background Peek. onTerminate is called with the Peek
// error if the connection ends (or times out) before markPaired is
// called and before any byte has arrived; it is never called once
// markPaired has run. The watch ends as soon as a first byte arrives, so a
// later close or timeout of a still-queued entity is not reported through
// onTerminate. timeout<=0 means no
// deadline, used for idle tunnels which are meant to sit in the pool
// indefinitely. watch must be called exactly once before an entity is ever
// offered to the Dispatcher — pair() always calls markPaired, which waits
// on watch's done channel.
func (w *watchable) watch(timeout time.Duration, onTerminate func(error)) {
	go func() {
		defer close(w.done)
		netutil.ApplyRequestTimeout(w.conn, timeout)
		_, err := w.br.Peek(1)
		w.mu.Lock()
		paired := w.paired
		w.mu.Unlock()
		if paired {
			return
		}
		if err != nil {
			onTerminate(err)
		}
	}()
}

// markPaired hands the connection off to the caller: it stops the
// background Peek (forcing it to wake if still blocked) and clears any
// deadline before returning, so the connection is ready for unhindered
// splicing.
func (w *watchable) markPaired() {
	w.mu.Lock()
	w.paired = true
	w.mu.Unlock()
	_ = w.conn.SetReadDeadline(time.Now())
	<-w.done
	netutil.ApplyRequestTimeout(w.conn, 0)
}

// spliceConn returns a netutil.Conn that reads through the same
// bufio.Reader the watcher peeked from, so no byte observed by watch() is
// ever lost.
func (w *watchable) spliceConn() netutil.Conn {
	return netutil.NewPeekedConn(w.br, w.conn)
}
