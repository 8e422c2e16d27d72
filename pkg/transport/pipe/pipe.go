// Package pipe links two transport connections in memory.
package pipe

import (
	"context"
	"sync"

	"github.com/bets-framework/ppets/pkg/protocol"
	"github.com/bets-framework/ppets/pkg/transport"
)

// Conn is one end of an in-memory pipe.
type Conn struct {
	name string
	in   chan transport.Frame
	peer *Conn

	once   sync.Once
	closed chan struct{}
}

// New creates two linked connections. What one end sends, the other receives.
func New(a, b string) (*Conn, *Conn) {
	ca := &Conn{name: a, in: make(chan transport.Frame, 1), closed: make(chan struct{})}
	cb := &Conn{name: b, in: make(chan transport.Frame, 1), closed: make(chan struct{})}
	ca.peer, cb.peer = cb, ca
	return ca, cb
}

// Name returns the name given to this end.
func (c *Conn) Name() string { return c.name }

// Send delivers cmd and payload to the other end.
func (c *Conn) Send(ctx context.Context, cmd protocol.Command, payload []byte) error {
	f := transport.Frame{Command: cmd, Payload: append([]byte(nil), payload...)}
	select {
	case <-c.closed:
		return transport.ErrClosed
	case <-c.peer.closed:
		return transport.ErrClosed
	default:
	}
	select {
	case c.peer.in <- f:
		return nil
	case <-c.closed:
		return transport.ErrClosed
	case <-c.peer.closed:
		return transport.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive waits for the next frame sent by the other end.
func (c *Conn) Receive(ctx context.Context) (protocol.Message, error) {
	select {
	case f := <-c.in:
		return f.Message(), nil
	case <-c.closed:
		return protocol.Message{}, transport.ErrClosed
	case <-c.peer.closed:
		// frames sent before the peer closed are still delivered
		select {
		case f := <-c.in:
			return f.Message(), nil
		default:
			return protocol.Message{}, transport.ErrClosed
		}
	case <-ctx.Done():
		return protocol.Message{}, ctx.Err()
	}
}

// Close closes this end. Both ends fail afterwards.
func (c *Conn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

var _ transport.Conn = (*Conn)(nil)
