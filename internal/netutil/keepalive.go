package netutil

import (
	"net"
	"time"
)

// LongLivedKeepAlivePeriod is the TCP keep-alive probe interval applied to
// long-lived sockets (spec.md §4.8).
const LongLivedKeepAlivePeriod = 10 * time.Second

// MakeLongLived disables the idle-timeout policy for a verified tunnel
// socket and switches it over to TCP keep-alive, per spec.md §4.8: tunnels
// must survive long idle periods sitting in the pool, so per-read/write
// deadlines are cleared and the kernel is asked to probe liveness instead.
// Non-TCP connections (e.g. in tests using net.Pipe or socketpair) are left
// alone beyond clearing deadlines.
func MakeLongLived(conn net.Conn) {
	_ = conn.SetDeadline(time.Time{})
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetKeepAlive(true)
		_ = tc.SetKeepAlivePeriod(LongLivedKeepAlivePeriod)
	}
}

// ApplyRequestTimeout sets (or clears, if d<=0) the deadline used for
// public-side request sockets while they wait to be paired. The deadline
// is fixed at now+d; traffic does not push it back. Unlike tunnel sockets,
// request sockets are never switched to the long-lived policy (spec.md §9
// open question (c)): once paired, the proxy's markPaired clears the
// request's deadline, so a paired request has no timeout and no keep-alive.
func ApplyRequestTimeout(conn net.Conn, d time.Duration) {
	if d <= 0 {
		_ = conn.SetDeadline(time.Time{})
		return
	}
	_ = conn.SetDeadline(time.Now().Add(d))
}
