package lifecycle

import "sync/atomic"

// ByteCounter tracks bytes sent/received over a socket-like entity. It is
// safe for concurrent use by the two halves of a spliced pair.
type ByteCounter struct {
	sent     int64
	received int64
}

func (c *ByteCounter) AddSent(n int64)     { atomic.AddInt64(&c.sent, n) }
func (c *ByteCounter) AddReceived(n int64) { atomic.AddInt64(&c.received, n) }

func (c *ByteCounter) Sent() int64     { return atomic.LoadInt64(&c.sent) }
func (c *ByteCounter) Received() int64 { return atomic.LoadInt64(&c.received) }
