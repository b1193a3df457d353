package netutil

import (
	"bufio"
	"net"

	"github.com/relaytun/revtun/internal/lifecycle"
)

// PeekedConn routes Read through a bufio.Reader that something else has
// already Peek()ed from, while leaving Write, Close and (via type
// assertion) CloseWrite on the underlying net.Conn. The proxy's watchable
// uses this: having detected liveness by Peek()ing a byte, it must still
// hand that byte to Splice rather than lose it.
type PeekedConn struct {
	br *bufio.Reader
	net.Conn
}

func NewPeekedConn(br *bufio.Reader, conn net.Conn) *PeekedConn {
	return &PeekedConn{br: br, Conn: conn}
}

func (p *PeekedConn) Read(b []byte) (int, error) {
	return p.br.Read(b)
}

func (p *PeekedConn) CloseWrite() error {
	if whc, ok := p.Conn.(lifecycle.WriteHalfCloser); ok {
		return whc.CloseWrite()
	}
	return nil
}
