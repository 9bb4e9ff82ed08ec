package dquic

import (
	"context"
	"net"

	"github.com/quic-go/quic-go"
)

// Conn is the subset of [*quic.Conn] needed
// to exchange retransmission requests with a peer.
type Conn interface {
	// NACK frames only ever travel one way,
	// so only unidirectional streams are exposed.
	AcceptUniStream(context.Context) (ReceiveStream, error)
	OpenUniStreamSync(context.Context) (SendStream, error)

	// Used to identify the peer in logs and errors.
	RemoteAddr() net.Addr
}

var _ Conn = ConnAdapter{}

// ConnAdapter wraps a [*quic.Conn], implementing the [Conn] interface.
//
// Create an instance with [WrapConn].
type ConnAdapter struct {
	qc *quic.Conn
}

// WrapConn wraps the given connection,
// returning a value implementing [Conn].
func WrapConn(qc *quic.Conn) ConnAdapter {
	return ConnAdapter{qc: qc}
}

func (c ConnAdapter) AcceptUniStream(ctx context.Context) (ReceiveStream, error) {
	s, err := c.qc.AcceptUniStream(ctx)
	if err != nil {
		return nil, err
	}
	return WrapReceiveStream(s), nil
}

func (c ConnAdapter) OpenUniStreamSync(ctx context.Context) (SendStream, error) {
	s, err := c.qc.OpenUniStreamSync(ctx)
	if err != nil {
		return nil, err
	}
	return WrapSendStream(s), nil
}

func (c ConnAdapter) RemoteAddr() net.Addr { return c.qc.RemoteAddr() }
