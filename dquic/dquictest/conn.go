package dquictest

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/gordian-engine/dseq/dquic"
)

// PipeConn is an in-memory [dquic.Conn].
// Create a connected pair with [NewConnPair].
type PipeConn struct {
	// Uni streams opened by the remote end.
	incoming chan dquic.ReceiveStream

	remote *PipeConn

	closeOnce sync.Once
	closed    chan struct{}

	addr net.Addr
}

var _ dquic.Conn = (*PipeConn)(nil)

// NewConnPair returns two connections such that
// a uni stream opened on one is accepted on the other.
func NewConnPair() (a, b *PipeConn) {
	a = &PipeConn{
		incoming: make(chan dquic.ReceiveStream, 4),
		closed:   make(chan struct{}),
		addr:     StubAddr("pipe-a"),
	}
	b = &PipeConn{
		incoming: make(chan dquic.ReceiveStream, 4),
		closed:   make(chan struct{}),
		addr:     StubAddr("pipe-b"),
	}
	a.remote = b
	b.remote = a
	return a, b
}

var errConnClosed = errors.New("pipe connection closed")

func (c *PipeConn) AcceptUniStream(ctx context.Context) (dquic.ReceiveStream, error) {
	select {
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	case <-c.closed:
		return nil, errConnClosed
	case s := <-c.incoming:
		return s, nil
	}
}

func (c *PipeConn) OpenUniStreamSync(ctx context.Context) (dquic.SendStream, error) {
	// The remote's buffer may have room, so check closure first.
	select {
	case <-c.closed:
		return nil, errConnClosed
	default:
	}

	send, recv := NewPipe()

	select {
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	case <-c.closed:
		return nil, errConnClosed
	case c.remote.incoming <- recv:
		return send, nil
	}
}

// Close closes c, failing any pending or later stream operations on it.
// The remote end is unaffected.
func (c *PipeConn) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
}

// RemoteAddr returns the address of the other end of the pair.
func (c *PipeConn) RemoteAddr() net.Addr { return c.remote.addr }

// StubAddr is a [net.Addr] for in-memory connections.
type StubAddr string

func (a StubAddr) Network() string { return "pipe" }
func (a StubAddr) String() string  { return string(a) }
