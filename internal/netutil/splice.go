// Package netutil holds the raw-mode splicing primitive and the long-lived
// socket policy used for pooled tunnel connections, both adapted from the
// teacher's share/pipe.go and the keep-alive tuning scattered through its
// endpoint constructors.
package netutil

import (
	"io"
	"sync"

	"github.com/relaytun/revtun/internal/lifecycle"
)

// Conn is the minimal interface Splice needs: a full duplex byte stream
// that can also be read and written independently by two goroutines, plus
// an optional write-half shutdown.
type Conn interface {
	io.Reader
	io.Writer
	io.Closer
}

// Splice copies bytes in both directions between a and b. This is spec.md
// §4.4's "Raw mode": bytes are relayed unchanged in both directions, and
// TCP's own backpressure governs each io.Copy.
//
// The two directions do not drain independently: spec.md §8 invariant 3
// requires that closing (or erroring on) either socket destroy the pair
// within the grace window, even if the other socket's peer is still
// silently open. A plain double io.Copy doesn't give that — one direction
// can sit blocked on a Read from a peer that never sends or closes again.
// So as soon as either direction's io.Copy returns, for any reason, a
// lifecycle.Pair closes that side and gives the other side up to
// GraceWindow to finish on its own (e.g. flush a trailing response) before
// force-closing it too.
func Splice(a, b Conn) (aToB int64, bToA int64) {
	pair := lifecycle.NewPair(a, b, nil)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		aToB, _ = io.Copy(b, a)
		if whc, ok := b.(lifecycle.WriteHalfCloser); ok {
			_ = whc.CloseWrite()
		}
		pair.TriggerA()
	}()
	go func() {
		defer wg.Done()
		bToA, _ = io.Copy(a, b)
		if whc, ok := a.(lifecycle.WriteHalfCloser); ok {
			_ = whc.CloseWrite()
		}
		pair.TriggerB()
	}()
	wg.Wait()
	pair.Wait()
	return aToB, bToA
}

// CountingConn wraps a Conn, tallying bytes read/written into a
// lifecycle.ByteCounter so a Pair can report sent/received totals when it
// closes (spec.md §9 "Supplemented features": per-pairing byte counters).
type CountingConn struct {
	Conn
	Stats lifecycle.ByteCounter
}

func NewCountingConn(c Conn) *CountingConn {
	return &CountingConn{Conn: c}
}

func (c *CountingConn) Read(p []byte) (int, error) {
	n, err := c.Conn.Read(p)
	c.Stats.AddReceived(int64(n))
	return n, err
}

func (c *CountingConn) Write(p []byte) (int, error) {
	n, err := c.Conn.Write(p)
	c.Stats.AddSent(int64(n))
	return n, err
}

func (c *CountingConn) CloseWrite() error {
	if whc, ok := c.Conn.(lifecycle.WriteHalfCloser); ok {
		return whc.CloseWrite()
	}
	return nil
}
