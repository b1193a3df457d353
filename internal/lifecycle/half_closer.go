package lifecycle

// WriteHalfCloser is implemented by bidirectional streams that support
// shutting down only the write half (net.TCPConn.CloseWrite and friends).
// Splicing calls CloseWrite on the destination once the source side of a
// copy reaches end-of-stream, so that request/response style protocols
// (a reader blocked waiting for EOF before replying) keep working across
// a tunnel the same way they would on a direct connection.
type WriteHalfCloser interface {
	CloseWrite() error
}
