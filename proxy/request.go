package proxy

import (
	"container/list"
	"net"

	"github.com/relaytun/revtun/internal/netutil"
	"github.com/relaytun/revtun/internal/tunlog"
)

// request is a single accepted public-side connection (spec.md §3).
// States: queued, paired, closing — tracked implicitly by queue
// membership (elem) and the embedded watchable's "paired" flag.
type request struct {
	*watchable
	logger *tunlog.Logger
	elem   *list.Element // set while sitting in Dispatcher.waiting
}

func newRequest(conn net.Conn, logger *tunlog.Logger) *request {
	return &request{watchable: newWatchable(conn), logger: logger}
}

func (r *request) conn() net.Conn {
	return r.watchable.conn
}

func (r *request) spliceSide() netutil.Conn {
	return r.spliceConn()
}
