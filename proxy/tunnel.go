package proxy

import (
	"container/list"
	"net"

	"github.com/relaytun/revtun/internal/netutil"
	"github.com/relaytun/revtun/internal/tunlog"
)

// tunnel is a single accepted inbound connection from a Client, after
// handshake (spec.md §3). States: pending-auth, idle, paired, closing —
// pending-auth is transient (handled entirely inside tunnelListener before
// a tunnel value is even offered to the Dispatcher); idle/paired are
// tracked the same way as request, via queue membership and the embedded
// watchable.
type tunnel struct {
	*watchable
	logger *tunlog.Logger
	elem   *list.Element // set while sitting in Dispatcher.idle
}

func newTunnel(conn net.Conn, logger *tunlog.Logger) *tunnel {
	return &tunnel{watchable: newWatchable(conn), logger: logger}
}

func (t *tunnel) conn() net.Conn {
	return t.watchable.conn
}

func (t *tunnel) spliceSide() netutil.Conn {
	return t.spliceConn()
}
